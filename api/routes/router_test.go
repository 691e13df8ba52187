package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/internal/allocation"
	"github.com/angelmondragon/serialstock/internal/audit"
	"github.com/angelmondragon/serialstock/internal/availability"
	"github.com/angelmondragon/serialstock/internal/correlation"
	"github.com/angelmondragon/serialstock/internal/units"
	pkgauth "github.com/angelmondragon/serialstock/pkg/auth"
	"github.com/angelmondragon/serialstock/pkg/config"
	dbpkg "github.com/angelmondragon/serialstock/pkg/db"
	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/logger"
	"github.com/angelmondragon/serialstock/pkg/metrics"
)

type envelope struct {
	Data json.RawMessage `json:"data"`
	Page *struct {
		Page    int  `json:"page"`
		Size    int  `json:"size"`
		HasMore bool `json:"has_more"`
	} `json:"page"`
	Error *struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type harness struct {
	handler http.Handler
	cfg     *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Unit{}, &models.UnitAuditRecord{}))

	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "route-secret", Issuer: "serialstock"},
		Reservation: config.ReservationConfig{
			CartHold:       30 * time.Minute,
			CheckoutHold:   15 * time.Minute,
			OnlineHold:     15 * time.Minute,
			POSHold:        15 * time.Minute,
			DefaultHold:    15 * time.Minute,
			MaxQuantity:    100,
			RetryAttempts:  1,
			RetryBaseDelay: time.Millisecond,
		},
	}
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	client := dbpkg.Wrap(db)
	reg := prometheus.NewRegistry()

	recorder, err := audit.NewService(audit.NewRepository(db), nil)
	require.NoError(t, err)
	repo := units.NewRepository(db)
	alloc, err := allocation.NewService(client, repo, recorder, cfg.Reservation, metrics.NewReservationMetrics(reg), logg, nil)
	require.NoError(t, err)
	index, err := correlation.NewService(repo, alloc, logg)
	require.NoError(t, err)
	avail, err := availability.NewService(repo)
	require.NoError(t, err)

	handler := NewRouter(cfg, logg, client, nil, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), alloc, index, avail, recorder)
	return &harness{handler: handler, cfg: cfg}
}

func (h *harness) do(t *testing.T, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func mintToken(cfg config.JWTConfig, actor, role string, ttl time.Duration) (string, error) {
	keys, err := pkgauth.NewKeys(cfg)
	if err != nil {
		return "", err
	}
	return keys.Mint(time.Now(), actor, role, ttl)
}

func TestReservationFlowOverHTTP(t *testing.T) {
	h := newHarness(t)
	variantID := uuid.New()

	code, _ := h.do(t, http.MethodPost, "/api/v1/units/import", map[string]any{
		"variant_id": variantID.String(),
		"serials":    []string{"SN-A", "SN-B", "SN-C"},
		"actor":      "receiving",
	}, "")
	require.Equal(t, http.StatusCreated, code)

	token, err := mintToken(h.cfg.JWT, "clerk-9", "pos", time.Hour)
	require.NoError(t, err)
	code, env := h.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"variant_id":     variantID.String(),
		"quantity":       2,
		"channel":        "pos",
		"correlation_id": "order-1",
	}, token)
	require.Equal(t, http.StatusCreated, code)
	var reservation struct {
		Units []models.Unit `json:"units"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reservation))
	require.Len(t, reservation.Units, 2)
	assert.Equal(t, "SN-A", reservation.Units[0].SerialValue)
	assert.Equal(t, "clerk-9", reservation.Units[0].UpdatedBy)

	code, env = h.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"variant_id":     variantID.String(),
		"quantity":       2,
		"channel":        "ONLINE",
		"correlation_id": "order-2",
		"actor":          "web",
	}, "")
	require.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Error.Code)

	code, env = h.do(t, http.MethodGet, "/api/v1/variants/"+variantID.String()+"/availability", nil, "")
	require.Equal(t, http.StatusOK, code)
	var snap availability.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, int64(3), snap.Total)
	assert.Equal(t, int64(1), snap.Available)
	assert.Equal(t, int64(2), snap.Reserved)

	code, env = h.do(t, http.MethodDelete, "/api/v1/reservations/order-1/variants/"+variantID.String()+"?count=1", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"released":1}`, string(env.Data))

	code, env = h.do(t, http.MethodGet, "/api/v1/audit?correlation_id=order-1&size=2", nil, "")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Page)
	assert.True(t, env.Page.HasMore)
	var records []models.UnitAuditRecord
	require.NoError(t, json.Unmarshal(env.Data, &records))
	require.Len(t, records, 2)

	code, _ = h.do(t, http.MethodDelete, "/api/v1/reservations/order-1", nil, "")
	require.Equal(t, http.StatusOK, code)
	code, env = h.do(t, http.MethodGet, "/api/v1/reservations/order-1", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"correlation_id":"order-1","units":[]}`, string(env.Data))
}

func TestSaleAndLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	variantID := uuid.New()
	code, env := h.do(t, http.MethodPost, "/api/v1/units/generate", map[string]any{
		"variant_id": variantID.String(),
		"prefix":     "TV",
		"count":      1,
		"actor":      "receiving",
	}, "")
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		Units []models.Unit `json:"units"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Len(t, created.Units, 1)
	unitID := created.Units[0].ID

	code, _ = h.do(t, http.MethodPost, "/api/v1/sales/confirm", map[string]any{"unit_ids": []int64{unitID}, "actor": "pos"}, "")
	require.Equal(t, http.StatusOK, code)

	path := "/api/v1/units/" + strconv.FormatInt(unitID, 10)
	code, _ = h.do(t, http.MethodPost, path+"/return", map[string]any{"reason": "changed mind"}, "")
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(t, http.MethodPost, path+"/damage", nil, "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "STATE_CONFLICT", env.Error.Code)

	code, env = h.do(t, http.MethodPost, path+"/refund", nil, "")
	require.Equal(t, http.StatusOK, code)
	var unit models.Unit
	require.NoError(t, json.Unmarshal(env.Data, &unit))
	assert.Equal(t, "AVAILABLE", string(unit.Status))

	code, _ = h.do(t, http.MethodPost, path+"/damage", nil, "")
	require.Equal(t, http.StatusOK, code)
	code, _ = h.do(t, http.MethodPost, path+"/unavailable", nil, "")
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(t, http.MethodPost, "/api/v1/units/release", map[string]any{"unit_ids": []int64{unitID}}, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"released":0}`, string(env.Data))
}

func TestRouterRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	code, env := h.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"variant_id":     "nope",
		"quantity":       0,
		"channel":        "CART",
		"correlation_id": "c",
	}, "")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, _ = h.do(t, http.MethodGet, "/api/v1/reservations/order-x", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.do(t, http.MethodGet, "/api/v1/audit", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	code, _ := h.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = h.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
