package allocation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/internal/audit"
	"github.com/angelmondragon/serialstock/internal/units"
	"github.com/angelmondragon/serialstock/pkg/config"
	dbpkg "github.com/angelmondragon/serialstock/pkg/db"
	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/logger"
	"github.com/angelmondragon/serialstock/pkg/metrics"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	db    *gorm.DB
	svc   Service
	repo  units.Repository
	clock *testClock
}

func testReservationConfig() config.ReservationConfig {
	return config.ReservationConfig{
		CartHold:       30 * time.Minute,
		CheckoutHold:   15 * time.Minute,
		OnlineHold:     15 * time.Minute,
		POSHold:        15 * time.Minute,
		DefaultHold:    15 * time.Minute,
		MaxQuantity:    100,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}
}

func newHarness(t *testing.T, cfg config.ReservationConfig) *harness {
	t.Helper()
	return newHarnessWith(t, cfg, nil)
}

// newHarnessWith lets a test interpose on the ledger the engine writes through.
func newHarnessWith(t *testing.T, cfg config.ReservationConfig, wrap func(units.Repository) units.Repository) *harness {
	t.Helper()
	dsn := "file:allocation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Unit{}, &models.UnitAuditRecord{}))

	clock := &testClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	recorder, err := audit.NewService(audit.NewRepository(db), clock.Now)
	require.NoError(t, err)
	repo := units.NewRepository(db)
	engineRepo := repo
	if wrap != nil {
		engineRepo = wrap(repo)
	}
	svc, err := NewService(
		dbpkg.Wrap(db),
		engineRepo,
		recorder,
		cfg,
		metrics.NewReservationMetrics(prometheus.NewRegistry()),
		logger.New(logger.Options{ServiceName: "allocation-test", Output: io.Discard}),
		clock.Now,
	)
	require.NoError(t, err)
	return &harness{db: db, svc: svc, repo: repo, clock: clock}
}

func (h *harness) seed(t *testing.T, variantID uuid.UUID, n int) []models.Unit {
	t.Helper()
	serials := make([]string, n)
	for i := range serials {
		serials[i] = fmt.Sprintf("SN-%s-%03d", variantID.String()[:8], i)
	}
	created, err := h.svc.Import(context.Background(), ImportInput{VariantID: variantID, Serials: serials, Actor: "seeder"})
	require.NoError(t, err)
	return created
}

func (h *harness) unit(t *testing.T, id int64) models.Unit {
	t.Helper()
	unit, err := h.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, unit)
	return *unit
}

func (h *harness) auditCount(t *testing.T, unitID int64, action enums.AuditAction) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&models.UnitAuditRecord{}).
		Where("unit_id = ? AND action = ?", unitID, action).
		Count(&count).Error)
	return count
}

func (h *harness) auditTotal(t *testing.T, unitID int64) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&models.UnitAuditRecord{}).Where("unit_id = ?", unitID).Count(&count).Error)
	return count
}

// contention scripts what another writer did to the ledger between reads.
type contention struct {
	mu        sync.Mutex
	loseID    int64
	lost      int
	snapshots map[int64]models.Unit
}

// contendedRepo loses every reserve claim on contention.loseID and serves
// stale snapshots from LockByIDs.
type contendedRepo struct {
	units.Repository
	c *contention
}

func (r contendedRepo) WithTx(tx *gorm.DB) units.Repository {
	return contendedRepo{Repository: r.Repository.WithTx(tx), c: r.c}
}

func (r contendedRepo) CompareAndSwap(ctx context.Context, id int64, from enums.UnitStatus, changes units.Changes) (bool, error) {
	r.c.mu.Lock()
	lose := id == r.c.loseID && changes.Status == enums.UnitStatusReserved
	if lose {
		r.c.lost++
	}
	r.c.mu.Unlock()
	if lose {
		return false, nil
	}
	return r.Repository.CompareAndSwap(ctx, id, from, changes)
}

func (r contendedRepo) LockByIDs(ctx context.Context, ids []int64) ([]models.Unit, error) {
	rows, err := r.Repository.LockByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for i, row := range rows {
		if snapshot, ok := r.c.snapshots[row.ID]; ok {
			rows[i] = snapshot
		}
	}
	return rows, nil
}

func newContendedHarness(t *testing.T) (*harness, *contention) {
	t.Helper()
	c := &contention{snapshots: map[int64]models.Unit{}}
	h := newHarnessWith(t, testReservationConfig(), func(repo units.Repository) units.Repository {
		return contendedRepo{Repository: repo, c: c}
	})
	return h, c
}

func reserveInput(variantID uuid.UUID, qty int, correlationID string) ReserveInput {
	return ReserveInput{
		VariantID:     variantID,
		Quantity:      qty,
		Channel:       enums.ReservationChannelCart,
		CorrelationID: correlationID,
		Actor:         "cart-service",
	}
}

func TestReserveClaimsLowestIDsAndAudits(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()
	seeded := h.seed(t, variantID, 5)

	res, err := h.svc.Reserve(ctx, reserveInput(variantID, 3, "CART-7-abc"))
	require.NoError(t, err)
	require.Len(t, res.Units, 3)
	assert.True(t, res.ExpiresAt.Equal(h.clock.Now().Add(30*time.Minute)), "cart holds last 30 minutes")

	for i, unit := range res.Units {
		assert.Equal(t, seeded[i].ID, unit.ID)
		stored := h.unit(t, unit.ID)
		assert.Equal(t, enums.UnitStatusReserved, stored.Status)
		require.NotNil(t, stored.ReservedAt)
		require.NotNil(t, stored.ReservationCorrelationID)
		assert.Equal(t, "CART-7-abc", *stored.ReservationCorrelationID)
		assert.Equal(t, "cart-service", stored.UpdatedBy)
		assert.EqualValues(t, 1, h.auditCount(t, unit.ID, enums.AuditActionReserve))
	}
	assert.Equal(t, enums.UnitStatusAvailable, h.unit(t, seeded[3].ID).Status)
}

func TestReserveShortfallRollsBackEverything(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()
	seeded := h.seed(t, variantID, 2)

	_, err := h.svc.Reserve(ctx, reserveInput(variantID, 3, "CART-1-a"))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficient), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, details["available"])

	for _, unit := range seeded {
		assert.Equal(t, enums.UnitStatusAvailable, h.unit(t, unit.ID).Status)
		assert.Zero(t, h.auditCount(t, unit.ID, enums.AuditActionReserve))
	}
}

func TestReserveValidation(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()

	cases := map[string]ReserveInput{
		"missing variant":     reserveInput(uuid.Nil, 1, "CART-1-a"),
		"zero quantity":       reserveInput(variantID, 0, "CART-1-a"),
		"too many":            reserveInput(variantID, 101, "CART-1-a"),
		"missing correlation": reserveInput(variantID, 1, " "),
	}
	badChannel := reserveInput(variantID, 1, "CART-1-a")
	badChannel.Channel = "FAX"
	cases["bad channel"] = badChannel

	for name, input := range cases {
		_, err := h.svc.Reserve(ctx, input)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "%s: got %v", name, err)
	}
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	variantID := uuid.New()
	h.seed(t, variantID, 10)

	const callers = 25
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		claimed      = map[int64]int{}
		successes    int
		insufficient int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.svc.Reserve(context.Background(), reserveInput(variantID, 1, fmt.Sprintf("CART-%d-t", i)))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if pkgerrors.Is(err, pkgerrors.CodeInsufficient) {
					insufficient++
				}
				return
			}
			successes++
			for _, unit := range res.Units {
				claimed[unit.ID]++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, successes)
	assert.Equal(t, callers-10, insufficient)
	assert.Len(t, claimed, 10)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "unit %d claimed more than once", id)
	}
}

func TestTwoConcurrentReservesOfTwoOnThreeUnits(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	variantID := uuid.New()
	h.seed(t, variantID, 3)

	results := make([]*Reservation, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.Reserve(context.Background(), reserveInput(variantID, 2, fmt.Sprintf("CART-%d-x", i)))
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	total := 0
	for i := range results {
		if errs[i] != nil {
			require.True(t, pkgerrors.Is(errs[i], pkgerrors.CodeInsufficient), "unexpected error %v", errs[i])
			continue
		}
		for _, unit := range results[i].Units {
			require.False(t, seen[unit.ID], "unit %d claimed twice", unit.ID)
			seen[unit.ID] = true
			total++
		}
	}
	assert.LessOrEqual(t, total, 3)
	assert.Equal(t, 2, total)
}

func TestReserveEnforcesPerCustomerHoldLimit(t *testing.T) {
	cfg := testReservationConfig()
	cfg.MaxUnitsPerCustomer = 3
	h := newHarness(t, cfg)
	ctx := context.Background()
	variantID := uuid.New()
	h.seed(t, variantID, 10)

	_, err := h.svc.Reserve(ctx, reserveInput(variantID, 2, "CART-7-tab1"))
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, reserveInput(variantID, 2, "CART-7-tab2"))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeHoldLimit), "got %v", err)

	_, err = h.svc.Reserve(ctx, reserveInput(variantID, 1, "CART-7-tab2"))
	require.NoError(t, err)
	_, err = h.svc.Reserve(ctx, reserveInput(variantID, 3, "CART-8-tab1"))
	require.NoError(t, err, "other customers are unaffected")
	_, err = h.svc.Reserve(ctx, reserveInput(variantID, 4, "ORDER-99"))
	require.NoError(t, err, "non-cart keys are not capped")
}

func TestReleaseIsIdempotent(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()
	seeded := h.seed(t, variantID, 3)

	res, err := h.svc.Reserve(ctx, reserveInput(variantID, 2, "CART-7-abc"))
	require.NoError(t, err)
	ids := []int64{res.Units[0].ID, res.Units[1].ID, seeded[2].ID}

	released, err := h.svc.Release(ctx, ids, "cart-service", "cart cleared")
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	released, err = h.svc.Release(ctx, ids, "cart-service", "cart cleared")
	require.NoError(t, err)
	assert.Zero(t, released)

	for _, unit := range res.Units {
		stored := h.unit(t, unit.ID)
		assert.Equal(t, enums.UnitStatusAvailable, stored.Status)
		assert.Nil(t, stored.ReservedAt)
		assert.Nil(t, stored.ReservationCorrelationID)
		assert.EqualValues(t, 1, h.auditCount(t, unit.ID, enums.AuditActionRelease))
	}
	assert.Zero(t, h.auditCount(t, seeded[2].ID, enums.AuditActionRelease))

	released, err = h.svc.Release(ctx, []int64{9999}, "cart-service", "")
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestMarkSold(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()
	seeded := h.seed(t, variantID, 4)

	res, err := h.svc.Reserve(ctx, reserveInput(variantID, 1, "ORDER-1"))
	require.NoError(t, err)
	reservedID := res.Units[0].ID

	_, err = h.svc.MarkSold(ctx, []int64{reservedID}, "payments", "ORDER-2")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict), "foreign correlation must be rejected, got %v", err)

	_, err = h.svc.MarkSold(ctx, []int64{reservedID, 9999}, "payments", "ORDER-1")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "got %v", err)
	assert.Equal(t, enums.UnitStatusReserved, h.unit(t, reservedID).Status)

	sold, err := h.svc.MarkSold(ctx, []int64{reservedID, seeded[3].ID}, "payments", "ORDER-1")
	require.NoError(t, err)
	require.Len(t, sold, 2)
	for _, unit := range sold {
		stored := h.unit(t, unit.ID)
		assert.Equal(t, enums.UnitStatusSold, stored.Status)
		assert.Nil(t, stored.ReservedAt)
		assert.EqualValues(t, 1, h.auditCount(t, unit.ID, enums.AuditActionSell))
	}

	_, err = h.svc.MarkSold(ctx, []int64{seeded[2].ID, reservedID}, "payments", "")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict), "selling a sold unit must fail, got %v", err)
	assert.Equal(t, enums.UnitStatusAvailable, h.unit(t, seeded[2].ID).Status, "call is all-or-nothing")
}

func TestLifecycleTransitionsWriteOneAuditRecordEach(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()
	seeded := h.seed(t, variantID, 2)
	id := seeded[0].ID

	_, err := h.svc.MarkReturned(ctx, id, "support", "not sold yet")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	_, err = h.svc.MarkSold(ctx, []int64{id}, "pos", "")
	require.NoError(t, err)
	unit, err := h.svc.MarkReturned(ctx, id, "support", "customer return")
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusReturned, unit.Status)
	unit, err = h.svc.ReleaseFromSold(ctx, id, "support", "refund issued")
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusAvailable, unit.Status)
	unit, err = h.svc.MarkDamaged(ctx, id, "warehouse", "dropped")
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusDamaged, unit.Status)

	_, err = h.svc.MarkDamaged(ctx, id, "warehouse", "again")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	unit, err = h.svc.MarkUnavailable(ctx, id, "warehouse", "written off")
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusUnavailable, unit.Status)

	assert.EqualValues(t, 1, h.auditCount(t, id, enums.AuditActionSell))
	assert.EqualValues(t, 1, h.auditCount(t, id, enums.AuditActionReturn))
	assert.EqualValues(t, 3, h.auditCount(t, id, enums.AuditActionStatusChange))

	_, err = h.svc.MarkDamaged(ctx, 9999, "warehouse", "")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestExpireHonorsCutoffBoundary(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()
	h.seed(t, variantID, 2)

	res, err := h.svc.Reserve(ctx, reserveInput(variantID, 2, "CART-7-abc"))
	require.NoError(t, err)
	reservedAt := res.ReservedAt
	first, second := res.Units[0].ID, res.Units[1].ID

	expired, err := h.svc.Expire(ctx, first, reservedAt)
	require.NoError(t, err)
	assert.False(t, expired, "hold exactly at the cutoff is still live")
	assert.Equal(t, enums.UnitStatusReserved, h.unit(t, first).Status)

	expired, err = h.svc.Expire(ctx, first, reservedAt.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, expired)
	stored := h.unit(t, first)
	assert.Equal(t, enums.UnitStatusAvailable, stored.Status)
	assert.Equal(t, SystemActor, stored.UpdatedBy)

	expired, err = h.svc.Expire(ctx, first, reservedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, expired, "already released units are a no-op")
	assert.EqualValues(t, 1, h.auditCount(t, first, enums.AuditActionRelease))

	_, err = h.svc.Release(ctx, []int64{second}, "cart-service", "manual")
	require.NoError(t, err)
	expired, err = h.svc.Expire(ctx, second, reservedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, expired)
	assert.EqualValues(t, 1, h.auditCount(t, second, enums.AuditActionRelease))

	expired, err = h.svc.Expire(ctx, 9999, reservedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestImportRejectsDuplicateSerials(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()

	_, err := h.svc.Import(ctx, ImportInput{VariantID: variantID, Serials: []string{"A1", "A1"}, Actor: "ops"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict), "got %v", err)

	created, err := h.svc.Import(ctx, ImportInput{
		VariantID:  variantID,
		Serials:    []string{"A1", "A2"},
		Provenance: Provenance{Supplier: "Acme", BatchNumber: "B-7"},
		Actor:      "ops",
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.NotNil(t, created[0].Supplier)
	assert.Equal(t, "Acme", *created[0].Supplier)
	require.NotNil(t, created[0].ImportBatchID)
	assert.EqualValues(t, 1, h.auditCount(t, created[0].ID, enums.AuditActionImport))

	_, err = h.svc.Import(ctx, ImportInput{VariantID: variantID, Serials: []string{"A2"}, Actor: "ops"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict), "serials are never reused, got %v", err)
}

func TestGenerateIssuesSequentialSerials(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()

	first, err := h.svc.Generate(ctx, GenerateInput{VariantID: variantID, Prefix: "phn", Count: 2, Actor: "ops"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "PHN-20260601-000001", first[0].SerialValue)
	assert.Equal(t, "PHN-20260601-000002", first[1].SerialValue)

	next, err := h.svc.Generate(ctx, GenerateInput{VariantID: variantID, Prefix: "PHN", Count: 1, Actor: "ops"})
	require.NoError(t, err)
	assert.Equal(t, "PHN-20260601-000003", next[0].SerialValue)
	assert.EqualValues(t, 1, h.auditCount(t, next[0].ID, enums.AuditActionGenerate))

	_, err = h.svc.Generate(ctx, GenerateInput{VariantID: variantID, Prefix: "PHN", Count: 0, Actor: "ops"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestReserveRollsBackWhenClaimIsLostOnEveryAttempt(t *testing.T) {
	h, c := newContendedHarness(t)
	ctx := context.Background()
	variantID := uuid.New()
	seeded := h.seed(t, variantID, 3)
	c.loseID = seeded[1].ID

	_, err := h.svc.Reserve(ctx, reserveInput(variantID, 2, "CART-7-abc"))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict), "got %v", err)
	assert.Equal(t, testReservationConfig().RetryAttempts+1, c.lost, "every attempt retried the lost claim")

	for _, unit := range seeded {
		assert.Equal(t, enums.UnitStatusAvailable, h.unit(t, unit.ID).Status)
		assert.Zero(t, h.auditCount(t, unit.ID, enums.AuditActionReserve), "claims before the lost one roll back with their audit rows")
	}
}

func TestExpireAfterConcurrentManualRelease(t *testing.T) {
	h, c := newContendedHarness(t)
	ctx := context.Background()
	variantID := uuid.New()
	h.seed(t, variantID, 1)

	res, err := h.svc.Reserve(ctx, reserveInput(variantID, 1, "CART-7-abc"))
	require.NoError(t, err)
	id := res.Units[0].ID
	stale := h.unit(t, id)

	released, err := h.svc.Release(ctx, []int64{id}, "cart-service", "manual")
	require.NoError(t, err)
	require.Equal(t, 1, released)
	audits := h.auditTotal(t, id)

	// the sweeper still sees the hold it read before the release
	c.snapshots[id] = stale

	expired, err := h.svc.Expire(ctx, id, res.ReservedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, expired)
	released, err = h.svc.Release(ctx, []int64{id}, "cart-service", "manual")
	require.NoError(t, err)
	assert.Zero(t, released)

	assert.Equal(t, enums.UnitStatusAvailable, h.unit(t, id).Status)
	assert.Equal(t, audits, h.auditTotal(t, id), "no audit row for a transition that did not happen")
}

func TestReleaseHeldBySkipsOtherHolders(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()
	h.seed(t, variantID, 2)

	mine, err := h.svc.Reserve(ctx, reserveInput(variantID, 1, "CART-7-abc"))
	require.NoError(t, err)
	theirs, err := h.svc.Reserve(ctx, reserveInput(variantID, 1, "CART-9-other"))
	require.NoError(t, err)
	ids := []int64{mine.Units[0].ID, theirs.Units[0].ID}

	released, err := h.svc.ReleaseHeldBy(ctx, "CART-7-abc", ids, "cart-service", "cart cleared")
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, enums.UnitStatusAvailable, h.unit(t, ids[0]).Status)
	assert.Equal(t, enums.UnitStatusReserved, h.unit(t, ids[1]).Status)
	assert.Zero(t, h.auditCount(t, ids[1], enums.AuditActionRelease))
}

func TestGenerateContinuesAfterImportedSerials(t *testing.T) {
	h := newHarness(t, testReservationConfig())
	ctx := context.Background()
	variantID := uuid.New()

	_, err := h.svc.Import(ctx, ImportInput{VariantID: variantID, Serials: []string{"ABC-20260601-000005"}, Actor: "ops"})
	require.NoError(t, err)

	created, err := h.svc.Generate(ctx, GenerateInput{VariantID: variantID, Prefix: "ABC", Count: 2, Actor: "ops"})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "ABC-20260601-000006", created[0].SerialValue)
	assert.Equal(t, "ABC-20260601-000007", created[1].SerialValue)
}
