package controllers

import (
	"net/http"

	"github.com/angelmondragon/serialstock/api/responses"
	"github.com/angelmondragon/serialstock/api/validators"
	"github.com/angelmondragon/serialstock/internal/availability"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

// VariantAvailability returns the status counts for a variant.
func VariantAvailability(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := validators.PathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap, err := svc.Snapshot(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}
