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
	"github.com/angelmondragon/serialstock/internal/correlation"
	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

type reserveRequest struct {
	VariantID     string `json:"variant_id" validate:"required,uuid"`
	Quantity      int    `json:"quantity" validate:"gt=0"`
	Channel       string `json:"channel" validate:"required,channel"`
	CorrelationID string `json:"correlation_id" validate:"required,max=200"`
	Actor         string `json:"actor,omitempty" validate:"max=200"`
}

type reservationResponse struct {
	CorrelationID string        `json:"correlation_id"`
	Units         []models.Unit `json:"units"`
	ReservedAt    time.Time     `json:"reserved_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

type releaseResponse struct {
	Released int `json:"released"`
}

// CreateReservation holds quantity units of a variant under a correlation id.
func CreateReservation(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reserveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, _ := uuid.Parse(req.VariantID)
		channel, err := enums.ParseReservationChannel(req.Channel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel").WithDetails(map[string]any{"field": "channel"}))
			return
		}

		reservation, err := svc.Reserve(r.Context(), allocation.ReserveInput{
			VariantID:     variantID,
			Quantity:      req.Quantity,
			Channel:       channel,
			CorrelationID: strings.TrimSpace(req.CorrelationID),
			Actor:         middleware.ResolveActor(r.Context(), req.Actor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reservationResponse{
			CorrelationID: strings.TrimSpace(req.CorrelationID),
			Units:         reservation.Units,
			ReservedAt:    reservation.ReservedAt,
			ExpiresAt:     reservation.ExpiresAt,
		})
	}
}

// GetReservation lists the units currently held under a correlation id.
func GetReservation(svc correlation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID, err := validators.PathString(r, "correlationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		held, err := svc.FindByCorrelationID(r.Context(), correlationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if held == nil {
			held = []models.Unit{}
		}
		responses.WriteSuccess(w, map[string]any{"correlation_id": correlationID, "units": held})
	}
}

// ReleaseReservation releases every unit held under a correlation id.
func ReleaseReservation(svc correlation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID, err := validators.PathString(r, "correlationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason := strings.TrimSpace(r.URL.Query().Get("reason"))
		if reason == "" {
			reason = "released by caller"
		}
		released, err := svc.ReleaseByCorrelationID(r.Context(), correlationID, middleware.ResolveActor(r.Context(), ""), reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, releaseResponse{Released: released})
	}
}

// ReleaseReservationVariant releases up to count of the oldest holds for one
// variant under a correlation id.
func ReleaseReservationVariant(svc correlation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID, err := validators.PathString(r, "correlationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.PathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := validators.QueryInt(r, "count", validators.IntRange{Default: 1, Min: 1, Max: 10000})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		released, err := svc.ReleaseByCorrelationIDAndVariant(r.Context(), correlationID, variantID, count, middleware.ResolveActor(r.Context(), ""))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, releaseResponse{Released: released})
	}
}
