// Command outbox-publisher relays committed outbox events to Redis streams.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/serialstock/pkg/bootstrap"
	"github.com/angelmondragon/serialstock/pkg/logger"
	"github.com/angelmondragon/serialstock/pkg/metrics"
	"github.com/angelmondragon/serialstock/pkg/outbox"
)

const serviceName = "outbox-publisher"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, serviceName, bootstrap.RedisRequired)
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(ctx, "startup failed", err)
		os.Exit(1)
	}
	logg := rt.Logger
	ctx = logg.WithField(ctx, "env", rt.Config.App.Env)

	err = run(ctx, rt)
	if closeErr := rt.Close(); closeErr != nil {
		logg.Error(ctx, "shutdown cleanup failed", closeErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher stopped cleanly")
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger
	registry := prometheus.NewRegistry()
	relay, err := NewRelay(RelayParams{
		Config:  cfg.Outbox,
		Logger:  logg,
		Metrics: metrics.NewRelayMetrics(registry),
		DB:      rt.DB,
		Streams: rt.Redis,
		Events:  outbox.NewRepository(rt.DB.DB()),
		DLQ:     outbox.NewDLQRepository(rt.DB.DB()),
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"batch_size":    cfg.Outbox.BatchSize,
		"poll_interval": cfg.Outbox.PollInterval.String(),
		"max_attempts":  cfg.Outbox.MaxAttempts,
	}), "outbox publisher starting")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return relay.Run(groupCtx) })
	group.Go(func() error { return metrics.Serve(groupCtx, cfg.App.MetricsAddr, registry, logg) })
	return group.Wait()
}
