// Command api serves the reservation, lifecycle and query HTTP surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/serialstock/api/controllers"
	"github.com/angelmondragon/serialstock/api/routes"
	"github.com/angelmondragon/serialstock/internal/allocation"
	"github.com/angelmondragon/serialstock/internal/audit"
	"github.com/angelmondragon/serialstock/internal/availability"
	"github.com/angelmondragon/serialstock/internal/correlation"
	"github.com/angelmondragon/serialstock/internal/units"
	"github.com/angelmondragon/serialstock/pkg/bootstrap"
	"github.com/angelmondragon/serialstock/pkg/logger"
	"github.com/angelmondragon/serialstock/pkg/metrics"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, serviceName, bootstrap.RedisOptional)
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(ctx, "startup failed", err)
		os.Exit(1)
	}
	logg := rt.Logger

	err = serve(ctx, rt)
	if closeErr := rt.Close(); closeErr != nil {
		logg.Error(ctx, "shutdown cleanup failed", closeErr)
	}
	if err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func serve(ctx context.Context, rt *bootstrap.Runtime) error {
	handler, err := newHandler(rt)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = rt.Config.App.Port
	}
	server := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	ctx = rt.Logger.WithFields(ctx, map[string]any{"env": rt.Config.App.Env, "addr": server.Addr})
	rt.Logger.Info(ctx, "starting api server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func newHandler(rt *bootstrap.Runtime) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gdb := rt.DB.DB()
	unitRepo := units.NewRepository(gdb)
	auditService, err := audit.NewService(audit.NewRepository(gdb), nil)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}
	allocationService, err := allocation.NewService(rt.DB, unitRepo, auditService, rt.Config.Reservation, metrics.NewReservationMetrics(registry), rt.Logger, nil)
	if err != nil {
		return nil, fmt.Errorf("allocation service: %w", err)
	}
	correlationService, err := correlation.NewService(unitRepo, allocationService, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("correlation service: %w", err)
	}
	availabilityService, err := availability.NewService(unitRepo)
	if err != nil {
		return nil, fmt.Errorf("availability service: %w", err)
	}

	var cache controllers.Pinger
	if rt.Redis != nil {
		cache = rt.Redis
	}
	return routes.NewRouter(
		rt.Config,
		rt.Logger,
		rt.DB,
		cache,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		allocationService,
		correlationService,
		availabilityService,
		auditService,
	), nil
}
