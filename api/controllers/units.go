package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/serialstock/api/middleware"
	"github.com/angelmondragon/serialstock/api/responses"
	"github.com/angelmondragon/serialstock/api/validators"
	"github.com/angelmondragon/serialstock/internal/allocation"
	"github.com/angelmondragon/serialstock/pkg/db/models"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

const dateLayout = "2006-01-02"

type releaseUnitsRequest struct {
	UnitIDs []int64 `json:"unit_ids" validate:"required,min=1,dive,gt=0"`
	Reason  string  `json:"reason,omitempty" validate:"max=500"`
	Actor   string  `json:"actor,omitempty" validate:"max=200"`
}

type confirmSaleRequest struct {
	UnitIDs       []int64 `json:"unit_ids" validate:"required,min=1,dive,gt=0"`
	CorrelationID string  `json:"correlation_id,omitempty" validate:"max=200"`
	Actor         string  `json:"actor,omitempty" validate:"max=200"`
}

type lifecycleRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
	Actor  string `json:"actor,omitempty" validate:"max=200"`
}

type provenanceRequest struct {
	BatchNumber     string `json:"batch_number,omitempty" validate:"max=100"`
	ManufactureDate string `json:"manufacture_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	WarrantyExpiry  string `json:"warranty_expiry,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Supplier        string `json:"supplier,omitempty" validate:"max=200"`
	Notes           string `json:"notes,omitempty" validate:"max=2000"`
}

type importUnitsRequest struct {
	VariantID     string            `json:"variant_id" validate:"required,uuid"`
	Serials       []string          `json:"serials" validate:"required,min=1,dive,required,max=100"`
	ImportBatchID string            `json:"import_batch_id,omitempty" validate:"max=100"`
	Provenance    provenanceRequest `json:"provenance"`
	Actor         string            `json:"actor,omitempty" validate:"max=200"`
}

type generateUnitsRequest struct {
	VariantID  string            `json:"variant_id" validate:"required,uuid"`
	Prefix     string            `json:"prefix" validate:"required,max=32"`
	Count      int               `json:"count" validate:"gt=0,max=10000"`
	Provenance provenanceRequest `json:"provenance"`
	Actor      string            `json:"actor,omitempty" validate:"max=200"`
}

// LifecycleAction names an admin transition exposed over HTTP.
type LifecycleAction string

const (
	LifecycleReturn      LifecycleAction = "return"
	LifecycleRefund      LifecycleAction = "refund"
	LifecycleDamage      LifecycleAction = "damage"
	LifecycleUnavailable LifecycleAction = "unavailable"
)

// ReleaseUnits returns reserved units to stock by id. Units that are no
// longer reserved are skipped.
func ReleaseUnits(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req releaseUnitsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = "released by caller"
		}
		released, err := svc.Release(r.Context(), req.UnitIDs, middleware.ResolveActor(r.Context(), req.Actor), reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, releaseResponse{Released: released})
	}
}

// ConfirmSale marks units SOLD after payment confirmation.
func ConfirmSale(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmSaleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sold, err := svc.MarkSold(r.Context(), req.UnitIDs, middleware.ResolveActor(r.Context(), req.Actor), strings.TrimSpace(req.CorrelationID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"units": sold})
	}
}

// UnitLifecycle applies an admin transition to a single unit.
func UnitLifecycle(svc allocation.Service, action LifecycleAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unitID, err := validators.PathInt64(r, "unitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req lifecycleRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		actor := middleware.ResolveActor(r.Context(), req.Actor)
		reason := strings.TrimSpace(req.Reason)

		var unit *models.Unit
		switch action {
		case LifecycleReturn:
			unit, err = svc.MarkReturned(r.Context(), unitID, actor, reason)
		case LifecycleRefund:
			unit, err = svc.ReleaseFromSold(r.Context(), unitID, actor, reason)
		case LifecycleDamage:
			unit, err = svc.MarkDamaged(r.Context(), unitID, actor, reason)
		case LifecycleUnavailable:
			unit, err = svc.MarkUnavailable(r.Context(), unitID, actor, reason)
		default:
			err = pkgerrors.New(pkgerrors.CodeNotFound, "unknown lifecycle action")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

// ImportUnits registers caller-supplied serial numbers.
func ImportUnits(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importUnitsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		provenance, err := req.Provenance.toProvenance()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, _ := uuid.Parse(req.VariantID)
		created, err := svc.Import(r.Context(), allocation.ImportInput{
			VariantID:     variantID,
			Serials:       req.Serials,
			ImportBatchID: req.ImportBatchID,
			Provenance:    provenance,
			Actor:         middleware.ResolveActor(r.Context(), req.Actor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"units": created})
	}
}

// GenerateUnits registers count units with system-issued serial numbers.
func GenerateUnits(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateUnitsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		provenance, err := req.Provenance.toProvenance()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, _ := uuid.Parse(req.VariantID)
		created, err := svc.Generate(r.Context(), allocation.GenerateInput{
			VariantID:  variantID,
			Prefix:     req.Prefix,
			Count:      req.Count,
			Provenance: provenance,
			Actor:      middleware.ResolveActor(r.Context(), req.Actor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"units": created})
	}
}

func (p provenanceRequest) toProvenance() (allocation.Provenance, error) {
	out := allocation.Provenance{
		BatchNumber: strings.TrimSpace(p.BatchNumber),
		Supplier:    strings.TrimSpace(p.Supplier),
		Notes:       strings.TrimSpace(p.Notes),
	}
	var err error
	if out.ManufactureDate, err = parseDate("manufacture_date", p.ManufactureDate); err != nil {
		return out, err
	}
	if out.WarrantyExpiry, err = parseDate("warranty_expiry", p.WarrantyExpiry); err != nil {
		return out, err
	}
	return out, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date").WithDetails(map[string]any{"field": field})
	}
	return &t, nil
}
