// Command sweeper runs the reservation-expiry and payment-timeout sweeps.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/serialstock/internal/allocation"
	"github.com/angelmondragon/serialstock/internal/audit"
	"github.com/angelmondragon/serialstock/internal/correlation"
	"github.com/angelmondragon/serialstock/internal/cron"
	"github.com/angelmondragon/serialstock/internal/notifications"
	"github.com/angelmondragon/serialstock/internal/orders"
	"github.com/angelmondragon/serialstock/internal/units"
	"github.com/angelmondragon/serialstock/pkg/bootstrap"
	"github.com/angelmondragon/serialstock/pkg/logger"
	"github.com/angelmondragon/serialstock/pkg/metrics"
	"github.com/angelmondragon/serialstock/pkg/outbox"
)

const (
	serviceName          = "sweeper"
	expirySchedulerName  = "reservation-expiry"
	paymentSchedulerName = "payment-timeout"
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
	ctx = logg.WithField(ctx, "env", rt.Config.App.Env)

	err = run(ctx, rt)
	if closeErr := rt.Close(); closeErr != nil {
		logg.Error(ctx, "shutdown cleanup failed", closeErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweeper stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "sweeper shut down gracefully")
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	schedulers, err := wire(rt, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	if rt.Redis == nil {
		rt.Logger.Warn(ctx, "sweeps only guard against overlap within this process")
	}
	rt.Logger.Info(ctx, "starting sweeper")

	group, groupCtx := errgroup.WithContext(ctx)
	for _, s := range schedulers {
		group.Go(func() error { return s.Run(groupCtx) })
	}
	group.Go(func() error {
		return metrics.Serve(groupCtx, rt.Config.App.MetricsAddr, prometheus.DefaultGatherer, rt.Logger)
	})
	return group.Wait()
}

// wire builds one scheduler per sweep, each with its own lock.
func wire(rt *bootstrap.Runtime, reg prometheus.Registerer) ([]*cron.Scheduler, error) {
	cfg, logg, gdb := rt.Config, rt.Logger, rt.DB.DB()
	sweepMetrics := metrics.NewCronJobMetrics(reg)

	unitRepo := units.NewRepository(gdb)
	auditService, err := audit.NewService(audit.NewRepository(gdb), nil)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}
	allocationService, err := allocation.NewService(rt.DB, unitRepo, auditService, cfg.Reservation, metrics.NewReservationMetrics(reg), logg, nil)
	if err != nil {
		return nil, fmt.Errorf("allocation service: %w", err)
	}
	correlationService, err := correlation.NewService(unitRepo, allocationService, logg)
	if err != nil {
		return nil, fmt.Errorf("correlation service: %w", err)
	}
	publisher := outbox.NewService(outbox.NewRepository(gdb), logg)
	orderService, err := orders.NewService(rt.DB, orders.NewRepository(gdb), publisher, nil)
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}
	notifier, err := notifications.NewOutboxNotifier(rt.DB, publisher, nil)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	expiryJob, err := cron.NewReservationExpiryJob(cron.ReservationExpiryJobParams{
		Logger:  logg,
		Finder:  unitRepo,
		Expirer: allocationService,
		Policy:  units.NewTimeoutPolicy(cfg.Reservation),
		Sweeper: cfg.Sweeper,
	})
	if err != nil {
		return nil, fmt.Errorf("reservation expiry job: %w", err)
	}
	paymentJob, err := cron.NewPaymentTimeoutJob(cron.PaymentTimeoutJobParams{
		Logger:    logg,
		Orders:    orderService,
		Updater:   orderService,
		Releaser:  correlationService,
		Notifier:  notifier,
		Audit:     auditService,
		Deadline:  cfg.Sweeper.PaymentDeadline,
		BatchSize: cfg.Sweeper.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("payment timeout job: %w", err)
	}

	sweeps := []struct {
		name string
		job  cron.Job
		p    cron.SchedulerParams
	}{
		{expirySchedulerName, expiryJob, cron.SchedulerParams{Interval: cfg.Sweeper.ExpiryInterval}},
		{paymentSchedulerName, paymentJob, cron.SchedulerParams{Interval: cfg.Sweeper.PaymentInterval}},
	}
	schedulers := make([]*cron.Scheduler, 0, len(sweeps))
	for _, sweep := range sweeps {
		lock, err := sweepLock(rt, sweep.name)
		if err != nil {
			return nil, err
		}
		p := sweep.p
		p.Name, p.Logger, p.Lock, p.Metrics = sweep.name, logg, lock, sweepMetrics
		p.Registry = cron.NewRegistry(sweep.job)
		s, err := cron.NewScheduler(p)
		if err != nil {
			return nil, fmt.Errorf("%s scheduler: %w", sweep.name, err)
		}
		schedulers = append(schedulers, s)
	}
	return schedulers, nil
}

func sweepLock(rt *bootstrap.Runtime, name string) (cron.Lock, error) {
	if rt.Redis == nil {
		return cron.NewLocalLock(), nil
	}
	lock, err := cron.NewRedisLock(rt.Redis, rt.Redis.LockKey(name), rt.Config.Sweeper.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s lock: %w", name, err)
	}
	return lock, nil
}
