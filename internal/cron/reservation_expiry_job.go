package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/serialstock/internal/units"
	"github.com/angelmondragon/serialstock/pkg/config"
	"github.com/angelmondragon/serialstock/pkg/enums"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

const defaultBatchSize = 500

type expiredCandidateFinder interface {
	FindExpiredCandidates(ctx context.Context, channel *enums.ReservationChannel, cutoff time.Time, limit int) ([]int64, error)
}

type unitExpirer interface {
	Expire(ctx context.Context, unitID int64, cutoff time.Time) (bool, error)
}

// ReservationExpiryJobParams configure the hold expiry sweep.
type ReservationExpiryJobParams struct {
	Logger   *logger.Logger
	Finder   expiredCandidateFinder
	Expirer  unitExpirer
	Policy   units.TimeoutPolicy
	Sweeper  config.SweeperConfig
	Now      func() time.Time
	Channels []enums.ReservationChannel
}

type reservationExpiryJob struct {
	logg      *logger.Logger
	finder    expiredCandidateFinder
	expirer   unitExpirer
	policy    units.TimeoutPolicy
	channels  []enums.ReservationChannel
	batchSize int
	attempts  int
	baseDelay time.Duration
	now       func() time.Time
}

// NewReservationExpiryJob builds the job that returns stale holds to AVAILABLE.
func NewReservationExpiryJob(params ReservationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Finder == nil {
		return nil, fmt.Errorf("candidate finder required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("expirer required")
	}
	channels := params.Channels
	if len(channels) == 0 {
		channels = enums.ReservationChannels()
	}
	batch := params.Sweeper.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &reservationExpiryJob{
		logg:      params.Logger,
		finder:    params.Finder,
		expirer:   params.Expirer,
		policy:    params.Policy,
		channels:  channels,
		batchSize: batch,
		attempts:  params.Sweeper.ItemRetryAttempts,
		baseDelay: params.Sweeper.ItemRetryBaseDelay,
		now:       now,
	}, nil
}

func (j *reservationExpiryJob) Name() string { return "reservation-expiry" }

// Run sweeps every channel and holds without a channel. A failed unit is
// logged and skipped; only candidate queries fail the run.
func (j *reservationExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	released, failed := 0, 0
	for _, channel := range j.channels {
		ch := channel
		r, f, err := j.sweep(ctx, &ch, j.policy.Cutoff(ch, now))
		released += r
		failed += f
		if err != nil {
			return err
		}
	}
	r, f, err := j.sweep(ctx, nil, now.Add(-j.policy.Default()))
	released += r
	failed += f
	if err != nil {
		return err
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"released": released, "failed": failed})
	j.logg.Info(logCtx, "reservation expiry sweep complete")
	return nil
}

func (j *reservationExpiryJob) sweep(ctx context.Context, channel *enums.ReservationChannel, cutoff time.Time) (int, int, error) {
	label := "none"
	if channel != nil {
		label = string(*channel)
	}
	ids, err := j.finder.FindExpiredCandidates(ctx, channel, cutoff, j.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("find expired holds for channel %s: %w", label, err)
	}
	released, failed := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return released, failed, ctx.Err()
		}
		itemCtx := j.logg.WithFields(ctx, map[string]any{"unit_id": id, "channel": label, "cutoff": cutoff})
		ok, err := j.expire(itemCtx, id, cutoff)
		if err != nil {
			failed++
			j.logg.Error(itemCtx, "failed to expire reservation", err)
			continue
		}
		if ok {
			released++
			j.logg.Info(itemCtx, "reservation expired")
		}
	}
	return released, failed, nil
}

func (j *reservationExpiryJob) expire(ctx context.Context, id int64, cutoff time.Time) (bool, error) {
	var released bool
	err := retryItem(ctx, j.attempts, j.baseDelay, func(ctx context.Context) error {
		ok, err := j.expirer.Expire(ctx, id, cutoff)
		released = ok
		return err
	})
	return released, err
}

// retryItem retries op while it fails with a retryable typed error.
func retryItem(ctx context.Context, attempts int, base time.Duration, op func(ctx context.Context) error) error {
	if attempts < 0 {
		attempts = 0
	}
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(attempts), retry.NewExponential(base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if pkgerrors.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
