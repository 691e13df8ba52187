package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/serialstock/api/responses"
	"github.com/angelmondragon/serialstock/pkg/config"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

const envHeader = "X-Serialstock-Env"

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the database and, when configured, redis.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		if db == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodePersistence, "database not configured"))
			return
		}
		if err := db.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "database unavailable"))
			return
		}
		checks := map[string]string{"status": "ready", "database": "ok"}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "redis unavailable"))
				return
			}
			checks["redis"] = "ok"
		}
		responses.WriteSuccess(w, checks)
	}
}
