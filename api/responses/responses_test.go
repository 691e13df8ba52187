package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error
}

func TestWriteSuccessOmitsPage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]int{"count": 2})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store cache header")
	}
	var env map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := env["page"]; ok {
		t.Fatalf("page should be omitted for single payloads")
	}
}

func TestWritePageIncludesMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	WritePage(rec, []int{1, 2}, types.PageMeta{Page: 0, Size: 2, HasMore: true})

	var env types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Page == nil || env.Page.Size != 2 || !env.Page.HasMore {
		t.Fatalf("unexpected page meta %+v", env.Page)
	}
}

func TestWriteErrorExposesDomainDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set(RequestIDHeader, "req-1")
	err := fmt.Errorf("reserve: %w", pkgerrors.New(pkgerrors.CodeInsufficient, "not enough units").
		WithDetails(map[string]any{"requested": 3, "available": 1}))
	WriteError(context.Background(), nil, rec, err)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	apiErr := decodeError(t, rec)
	if apiErr.Code != string(pkgerrors.CodeInsufficient) || apiErr.Message != "not enough units" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if apiErr.Details == nil || apiErr.RequestID != "req-1" || apiErr.Retryable {
		t.Fatalf("unexpected envelope fields %+v", apiErr)
	}
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeStateConflict: http.StatusUnprocessableEntity,
		pkgerrors.CodeHoldLimit:     http.StatusConflict,
		pkgerrors.CodeNotFound:      http.StatusNotFound,
		pkgerrors.CodePersistence:   http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), nil, rec, pkgerrors.New(code, "x"))
		if rec.Code != status {
			t.Fatalf("%s: expected %d, got %d", code, status, rec.Code)
		}
	}
}

func TestWriteErrorHidesServerFailures(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.Wrap(pkgerrors.CodePersistence, errors.New("dial tcp 10.0.0.3:5432"), "select units"))

	apiErr := decodeError(t, rec)
	if apiErr.Message != "datastore unavailable" || !apiErr.Retryable || apiErr.Details != nil {
		t.Fatalf("server failure leaked or misreported: %+v", apiErr)
	}

	rec = httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("boom"))
	if rec.Code != http.StatusInternalServerError || decodeError(t, rec).Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("uncoded errors should map to internal")
	}
}
