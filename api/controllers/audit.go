package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/serialstock/api/responses"
	"github.com/angelmondragon/serialstock/internal/audit"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/logger"
	"github.com/angelmondragon/serialstock/pkg/pagination"
	"github.com/angelmondragon/serialstock/pkg/types"
)

// AuditHistory pages through audit records for a unit or a correlation id.
func AuditHistory(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params, err := pagination.Parse(q.Get("page"), q.Get("size"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pagination"))
			return
		}
		query := audit.Query{
			CorrelationID: strings.TrimSpace(q.Get("correlation_id")),
			Page:          params,
		}
		if raw := strings.TrimSpace(q.Get("unit_id")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit_id").WithDetails(map[string]any{"field": "unit_id"}))
				return
			}
			query.UnitID = &id
		}

		history, err := svc.History(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, history.Records, types.PageMeta{
			Page:    history.Page,
			Size:    history.Size,
			HasMore: history.HasMore,
		})
	}
}
