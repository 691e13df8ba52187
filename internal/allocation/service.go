package allocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
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

const (
	expiredReason    = "reservation expired"
	maxGenerateCount = 10000

	releaseLabelManual = "release"
	releaseLabelExpiry = "expire"
	releaseLabelRefund = "refund"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) (*models.UnitAuditRecord, error)
}

// Service is the only writer of unit status. Every change runs through the
// state machine, a compare-and-swap update and one audit record in the same
// transaction.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*Reservation, error)
	Release(ctx context.Context, unitIDs []int64, actor, reason string) (int, error)
	ReleaseHeldBy(ctx context.Context, correlationID string, unitIDs []int64, actor, reason string) (int, error)
	MarkSold(ctx context.Context, unitIDs []int64, actor, correlationID string) ([]models.Unit, error)
	MarkReturned(ctx context.Context, unitID int64, actor, reason string) (*models.Unit, error)
	ReleaseFromSold(ctx context.Context, unitID int64, actor, reason string) (*models.Unit, error)
	MarkDamaged(ctx context.Context, unitID int64, actor, reason string) (*models.Unit, error)
	MarkUnavailable(ctx context.Context, unitID int64, actor, reason string) (*models.Unit, error)
	Expire(ctx context.Context, unitID int64, cutoff time.Time) (bool, error)
	Import(ctx context.Context, input ImportInput) ([]models.Unit, error)
	Generate(ctx context.Context, input GenerateInput) ([]models.Unit, error)
}

type service struct {
	tx      txRunner
	repo    units.Repository
	audit   auditRecorder
	policy  units.TimeoutPolicy
	cfg     config.ReservationConfig
	metrics *metrics.ReservationMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the allocation engine.
func NewService(
	tx txRunner,
	repo units.Repository,
	recorder auditRecorder,
	cfg config.ReservationConfig,
	reservationMetrics *metrics.ReservationMetrics,
	logg *logger.Logger,
	now func() time.Time,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:      tx,
		repo:    repo,
		audit:   recorder,
		policy:  units.NewTimeoutPolicy(cfg),
		cfg:     cfg,
		metrics: reservationMetrics,
		logg:    logg,
		now:     now,
	}, nil
}

// change carries the context of one unit transition.
type change struct {
	event          units.Event
	actor          string
	reason         string
	channel        enums.ReservationChannel
	correlationID  string
	at             time.Time
	reservedBefore *time.Time
	heldBy         *string
}

func (s *service) Reserve(ctx context.Context, input ReserveInput) (*Reservation, error) {
	if err := s.validateReserve(&input); err != nil {
		s.metrics.ObserveAttempt(string(input.Channel), metrics.OutcomeError)
		return nil, err
	}

	var reservation *Reservation
	err := s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.reserveOnce(ctx, input)
		if err != nil {
			return err
		}
		reservation = res
		return nil
	})

	ctx = s.logg.WithFields(ctx, map[string]any{
		"variant_id":     input.VariantID.String(),
		"quantity":       input.Quantity,
		"channel":        input.Channel,
		"correlation_id": input.CorrelationID,
	})
	if err != nil {
		err = normalize(err)
		s.metrics.ObserveAttempt(string(input.Channel), reserveOutcome(err))
		if pkgerrors.Is(err, pkgerrors.CodePersistence) {
			s.logg.Error(ctx, "reservation failed", err)
		} else {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "reservation rejected")
		}
		return nil, err
	}
	s.metrics.ObserveAttempt(string(input.Channel), metrics.OutcomeReserved)
	s.logg.Info(ctx, "units reserved")
	return reservation, nil
}

func (s *service) validateReserve(input *ReserveInput) error {
	input.CorrelationID = strings.TrimSpace(input.CorrelationID)
	input.Actor = strings.TrimSpace(input.Actor)
	switch {
	case input.VariantID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	case input.Quantity < 1:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	case s.cfg.MaxQuantity > 0 && input.Quantity > s.cfg.MaxQuantity:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must not exceed %d", s.cfg.MaxQuantity))
	case !input.Channel.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid reservation channel %q", input.Channel))
	case input.CorrelationID == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "correlation id is required")
	case input.Actor == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	return nil
}

func (s *service) reserveOnce(ctx context.Context, input ReserveInput) (*Reservation, error) {
	now := s.clock()
	reservation := &Reservation{
		Units:      make([]models.Unit, 0, input.Quantity),
		ReservedAt: now,
		ExpiresAt:  s.policy.ExpiresAt(input.Channel, now),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := s.checkHoldLimit(ctx, repo, input); err != nil {
			return err
		}

		candidates, err := repo.LockAvailable(ctx, input.VariantID, input.Quantity)
		if err != nil {
			return err
		}
		if len(candidates) < input.Quantity {
			counts, err := repo.CountByStatus(ctx, input.VariantID)
			if err != nil {
				return err
			}
			return &shortfallError{
				variantID: input.VariantID,
				requested: input.Quantity,
				claimed:   len(candidates),
				available: counts[enums.UnitStatusAvailable],
			}
		}

		for _, unit := range candidates {
			reserved, err := s.apply(ctx, tx, repo, unit, change{
				event:         units.EventReserve,
				actor:         input.Actor,
				channel:       input.Channel,
				correlationID: input.CorrelationID,
				at:            now,
			})
			if err != nil {
				return err
			}
			reservation.Units = append(reservation.Units, *reserved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// checkHoldLimit caps how many units one cart user may hold across tabs.
func (s *service) checkHoldLimit(ctx context.Context, repo units.Repository, input ReserveInput) error {
	limit := s.cfg.MaxUnitsPerCustomer
	if limit <= 0 {
		return nil
	}
	userID, _, ok := units.ParseCartCorrelationID(input.CorrelationID)
	if !ok {
		return nil
	}
	held, err := repo.CountReservedByCorrelationPrefix(ctx, units.CartPrefix(userID), &input.VariantID)
	if err != nil {
		return err
	}
	if held+int64(input.Quantity) > int64(limit) {
		return pkgerrors.New(pkgerrors.CodeHoldLimit, "reservation limit exceeded").WithDetails(map[string]any{
			"variant_id": input.VariantID,
			"held":       held,
			"requested":  input.Quantity,
			"limit":      limit,
		})
	}
	return nil
}

func (s *service) Release(ctx context.Context, unitIDs []int64, actor, reason string) (int, error) {
	return s.release(ctx, nil, unitIDs, actor, reason)
}

// ReleaseHeldBy releases only those units still reserved under correlationID.
// Units re-reserved by another holder since the caller looked them up are
// skipped.
func (s *service) ReleaseHeldBy(ctx context.Context, correlationID string, unitIDs []int64, actor, reason string) (int, error) {
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "correlation id is required")
	}
	return s.release(ctx, &correlationID, unitIDs, actor, reason)
}

func (s *service) release(ctx context.Context, heldBy *string, unitIDs []int64, actor, reason string) (int, error) {
	ids := dedupe(unitIDs)
	if len(ids) == 0 {
		return 0, nil
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}

	var released int
	err := s.withRetry(ctx, func(ctx context.Context) error {
		released = 0
		now := s.clock()
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			rows, err := repo.LockByIDs(ctx, ids)
			if err != nil {
				return err
			}
			for _, unit := range rows {
				if unit.Status != enums.UnitStatusReserved || !isHeldBy(unit, heldBy) {
					continue
				}
				_, err := s.apply(ctx, tx, repo, unit, change{event: units.EventRelease, actor: actor, reason: reason, at: now, heldBy: heldBy})
				if errors.Is(err, errClaimLost) {
					continue
				}
				if err != nil {
					return err
				}
				released++
			}
			return nil
		})
	})
	if err != nil {
		return 0, normalize(err)
	}
	s.metrics.AddReleased(releaseLabelManual, released)
	if released > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{"requested": len(ids), "released": released, "actor": actor})
		s.logg.Info(logCtx, "units released")
	}
	return released, nil
}

func isHeldBy(unit models.Unit, heldBy *string) bool {
	if heldBy == nil {
		return true
	}
	return unit.ReservationCorrelationID != nil && *unit.ReservationCorrelationID == *heldBy
}

func (s *service) MarkSold(ctx context.Context, unitIDs []int64, actor, correlationID string) ([]models.Unit, error) {
	ids := dedupe(unitIDs)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit ids are required")
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	correlationID = strings.TrimSpace(correlationID)

	var sold []models.Unit
	err := s.withRetry(ctx, func(ctx context.Context) error {
		sold = make([]models.Unit, 0, len(ids))
		now := s.clock()
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			rows, err := repo.LockByIDs(ctx, ids)
			if err != nil {
				return err
			}
			if missing := missingIDs(ids, rows); len(missing) > 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "units not found").WithDetails(map[string]any{"unit_ids": missing})
			}
			for _, unit := range rows {
				if unit.Status == enums.UnitStatusReserved && correlationID != "" &&
					(unit.ReservationCorrelationID == nil || *unit.ReservationCorrelationID != correlationID) {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "unit is held by another reservation").WithDetails(map[string]any{
						"unit_id":        unit.ID,
						"correlation_id": correlationID,
					})
				}
				updated, err := s.apply(ctx, tx, repo, unit, change{
					event:         units.EventSell,
					actor:         actor,
					correlationID: correlationID,
					at:            now,
				})
				if err != nil {
					return err
				}
				sold = append(sold, *updated)
			}
			return nil
		})
	})
	if err != nil {
		return nil, normalize(err)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"units": len(sold), "actor": actor, "correlation_id": correlationID})
	s.logg.Info(logCtx, "units sold")
	return sold, nil
}

func (s *service) MarkReturned(ctx context.Context, unitID int64, actor, reason string) (*models.Unit, error) {
	return s.transitionOne(ctx, unitID, units.EventReturn, actor, reason)
}

func (s *service) ReleaseFromSold(ctx context.Context, unitID int64, actor, reason string) (*models.Unit, error) {
	unit, err := s.transitionOne(ctx, unitID, units.EventRefund, actor, reason)
	if err == nil {
		s.metrics.AddReleased(releaseLabelRefund, 1)
	}
	return unit, err
}

func (s *service) MarkDamaged(ctx context.Context, unitID int64, actor, reason string) (*models.Unit, error) {
	return s.transitionOne(ctx, unitID, units.EventDamage, actor, reason)
}

func (s *service) MarkUnavailable(ctx context.Context, unitID int64, actor, reason string) (*models.Unit, error) {
	return s.transitionOne(ctx, unitID, units.EventMarkUnavailable, actor, reason)
}

func (s *service) transitionOne(ctx context.Context, unitID int64, event units.Event, actor, reason string) (*models.Unit, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	var result *models.Unit
	err := s.withRetry(ctx, func(ctx context.Context) error {
		now := s.clock()
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			rows, err := repo.LockByIDs(ctx, []int64{unitID})
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unit %d not found", unitID))
			}
			updated, err := s.apply(ctx, tx, repo, rows[0], change{event: event, actor: actor, reason: reason, at: now})
			if err != nil {
				return err
			}
			result = updated
			return nil
		})
	})
	if err != nil {
		return nil, normalize(err)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"unit_id": unitID, "event": event, "status": result.Status, "actor": actor})
	s.logg.Info(logCtx, "unit status changed")
	return result, nil
}

// Expire returns a RESERVED unit to AVAILABLE if its hold started before cutoff.
// Units released or sold in the meantime are left alone and report false.
func (s *service) Expire(ctx context.Context, unitID int64, cutoff time.Time) (bool, error) {
	cutoff = cutoff.UTC()
	var expired bool
	err := s.withRetry(ctx, func(ctx context.Context) error {
		expired = false
		now := s.clock()
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			rows, err := repo.LockByIDs(ctx, []int64{unitID})
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}
			unit := rows[0]
			if unit.Status != enums.UnitStatusReserved || unit.ReservedAt == nil || !unit.ReservedAt.Before(cutoff) {
				return nil
			}
			_, err = s.apply(ctx, tx, repo, unit, change{
				event:          units.EventExpire,
				actor:          SystemActor,
				reason:         expiredReason,
				at:             now,
				reservedBefore: &cutoff,
			})
			if errors.Is(err, errClaimLost) {
				return nil
			}
			if err != nil {
				return err
			}
			expired = true
			return nil
		})
	})
	if err != nil {
		return false, normalize(err)
	}
	if expired {
		s.metrics.AddReleased(releaseLabelExpiry, 1)
	}
	return expired, nil
}

func (s *service) Import(ctx context.Context, input ImportInput) ([]models.Unit, error) {
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	actor := strings.TrimSpace(input.Actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	serials := make([]string, 0, len(input.Serials))
	seen := make(map[string]struct{}, len(input.Serials))
	for _, raw := range input.Serials {
		serial := strings.TrimSpace(raw)
		if serial == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial numbers must not be blank")
		}
		if _, dup := seen[serial]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "duplicate serial number in request").WithDetails(map[string]any{"serial": serial})
		}
		seen[serial] = struct{}{}
		serials = append(serials, serial)
	}
	if len(serials) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one serial number is required")
	}
	batchID := strings.TrimSpace(input.ImportBatchID)
	if batchID == "" {
		batchID = uuid.NewString()
	}

	var created []models.Unit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		created, err = s.register(ctx, tx, input.VariantID, serials, &batchID, input.Provenance, actor, enums.AuditActionImport)
		return err
	})
	if err != nil {
		return nil, normalize(err)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"variant_id": input.VariantID.String(), "units": len(created), "import_batch_id": batchID})
	s.logg.Info(logCtx, "units imported")
	return created, nil
}

func (s *service) Generate(ctx context.Context, input GenerateInput) ([]models.Unit, error) {
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	prefix := strings.ToUpper(strings.TrimSpace(input.Prefix))
	if prefix == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial prefix is required")
	}
	if input.Count < 1 || input.Count > maxGenerateCount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("count must be between 1 and %d", maxGenerateCount))
	}
	actor := strings.TrimSpace(input.Actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}

	var created []models.Unit
	err := s.withRetryOn(ctx, retryGenerate, func(ctx context.Context) error {
		now := s.clock()
		base := fmt.Sprintf("%s-%s-", prefix, now.Format("20060102"))
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			last, err := s.repo.WithTx(tx).LastSerialSequence(ctx, base)
			if err != nil {
				return err
			}
			serials := make([]string, input.Count)
			for i := range serials {
				serials[i] = fmt.Sprintf("%s%06d", base, last+int64(i)+1)
			}
			created, err = s.register(ctx, tx, input.VariantID, serials, nil, input.Provenance, actor, enums.AuditActionGenerate)
			return err
		})
	})
	if err != nil {
		return nil, normalize(err)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"variant_id": input.VariantID.String(), "units": len(created), "prefix": prefix})
	s.logg.Info(logCtx, "units generated")
	return created, nil
}

func (s *service) register(
	ctx context.Context,
	tx *gorm.DB,
	variantID uuid.UUID,
	serials []string,
	batchID *string,
	prov Provenance,
	actor string,
	action enums.AuditAction,
) ([]models.Unit, error) {
	now := s.clock()
	rows := make([]models.Unit, len(serials))
	for i, serial := range serials {
		rows[i] = models.Unit{
			SerialValue:     serial,
			VariantID:       variantID,
			Status:          enums.UnitStatusAvailable,
			BatchNumber:     optional(prov.BatchNumber),
			ManufactureDate: prov.ManufactureDate,
			WarrantyExpiry:  prov.WarrantyExpiry,
			Supplier:        optional(prov.Supplier),
			ImportBatchID:   batchID,
			Notes:           optional(prov.Notes),
			CreatedAt:       now,
			CreatedBy:       actor,
			UpdatedAt:       now,
			UpdatedBy:       actor,
		}
	}
	if err := s.repo.WithTx(tx).Create(ctx, rows); err != nil {
		return nil, err
	}
	for _, unit := range rows {
		id := unit.ID
		if _, err := s.audit.Record(ctx, tx, audit.Entry{
			UnitID: &id,
			Action: action,
			Actor:  actor,
			After:  audit.SnapshotOf(unit),
		}); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// apply moves one unit through the state machine and persists the result with a
// compare-and-swap on its current status plus one audit record.
func (s *service) apply(ctx context.Context, tx *gorm.DB, repo units.Repository, unit models.Unit, c change) (*models.Unit, error) {
	next, err := units.Transition(unit.Status, c.event)
	if err != nil {
		return nil, err
	}

	changes := units.Changes{
		Status:         next,
		UpdatedAt:      c.at,
		UpdatedBy:      c.actor,
		ReservedBefore: c.reservedBefore,
		HeldBy:         c.heldBy,
	}
	if next == enums.UnitStatusReserved {
		at := c.at
		channel := c.channel
		correlationID := c.correlationID
		changes.ReservedAt = &at
		changes.Channel = &channel
		changes.CorrelationID = &correlationID
	}
	ok, err := repo.CompareAndSwap(ctx, unit.ID, unit.Status, changes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errClaimLost
	}

	after := unit
	after.Status = next
	after.ReservedAt = changes.ReservedAt
	after.ReservationChannel = changes.Channel
	after.ReservationCorrelationID = changes.CorrelationID
	after.UpdatedAt = c.at
	after.UpdatedBy = c.actor

	channel := string(c.channel)
	if channel == "" && unit.ReservationChannel != nil {
		channel = string(*unit.ReservationChannel)
	}
	correlationID := c.correlationID
	if correlationID == "" && unit.ReservationCorrelationID != nil {
		correlationID = *unit.ReservationCorrelationID
	}
	unitID := unit.ID
	if _, err := s.audit.Record(ctx, tx, audit.Entry{
		UnitID:        &unitID,
		Action:        c.event.AuditAction(),
		Actor:         c.actor,
		Reason:        c.reason,
		Before:        audit.SnapshotOf(unit),
		After:         audit.SnapshotOf(after),
		Channel:       channel,
		CorrelationID: correlationID,
	}); err != nil {
		return nil, err
	}
	return &after, nil
}

type retryClass func(err error) bool

func retryDefault(err error) bool {
	var short *shortfallError
	if errors.As(err, &short) {
		return short.contended()
	}
	return errors.Is(err, errClaimLost) || dbpkg.IsTransient(err)
}

// Two generators racing on the same prefix and day collide on the sequence.
func retryGenerate(err error) bool {
	return dbpkg.IsTransient(err) || dbpkg.IsUniqueViolation(err, "")
}

func (s *service) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	return s.withRetryOn(ctx, retryDefault, op)
}

func (s *service) withRetryOn(ctx context.Context, retryable retryClass, op func(ctx context.Context) error) error {
	attempts := s.cfg.RetryAttempts
	if attempts < 0 {
		attempts = 0
	}
	base := s.cfg.RetryBaseDelay
	if base <= 0 {
		base = 10 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(attempts), retry.NewExponential(base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if retryable(err) {
			s.metrics.IncRetry()
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func reserveOutcome(err error) string {
	switch {
	case pkgerrors.Is(err, pkgerrors.CodeInsufficient):
		return metrics.OutcomeInsufficient
	case pkgerrors.Is(err, pkgerrors.CodeHoldLimit):
		return metrics.OutcomeHoldLimit
	default:
		return metrics.OutcomeError
	}
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(want []int64, rows []models.Unit) []int64 {
	found := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		found[row.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
