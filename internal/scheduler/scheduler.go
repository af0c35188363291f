// Package scheduler runs periodic maintenance over subscriptions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"github.com/consensusai/consensus/internal/clock"
	obsmetrics "github.com/consensusai/consensus/internal/observability/metrics"
	"github.com/consensusai/consensus/internal/ratelimit"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobExpireTrials = "expire_trials"

	keyJobLock = "consensus:lock:scheduler:%s"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Billing    billingdomain.Service
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     Config                        `optional:"true"`
	Redis      redis.UniversalClient         `optional:"true"`
	AccMetrics *obsmetrics.AccountingMetrics `optional:"true"`
}

type Scheduler struct {
	billing    billingdomain.Service
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	locker     *ratelimit.Locker
	accMetrics *obsmetrics.AccountingMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Billing == nil || p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		billing:    p.Billing,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		locker:     ratelimit.NewLocker(p.Redis),
		accMetrics: p.AccMetrics,
	}, nil
}

// runJob runs fn under a timeout. With Redis configured only one instance
// runs a given job at a time; the others skip it.
func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if s.locker != nil {
		key := fmt.Sprintf(keyJobLock, name)
		lease, err := s.locker.Acquire(ctx, key, timeout)
		if err != nil {
			s.accMetrics.ObserveJob(name, "error", 0)
			return fmt.Errorf("%s: lock: %w", name, err)
		}
		if lease == nil {
			s.logger(ctx).Debug("scheduler.job.skipped", zap.String("job", name))
			s.accMetrics.ObserveJob(name, "skipped", 0)
			return nil
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger(ctx).Warn("scheduler job unlock failed", zap.String("job", name), zap.Error(err))
			}
		}()
	}

	ctx, run := s.beginSweep(ctx, name)
	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)

	switch {
	case err == nil:
		s.endSweep(ctx, run, "ok", nil)
		s.accMetrics.ObserveJob(name, "ok", elapsed)
		return nil
	// deadline is a soft timeout; the next tick picks up the remainder
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.endSweep(ctx, run, "timeout", err)
		s.accMetrics.ObserveJob(name, "timeout", elapsed)
		return nil
	default:
		s.endSweep(ctx, run, "error", err)
		s.accMetrics.ObserveJob(name, "error", elapsed)
		return fmt.Errorf("%s: %w", name, err)
	}
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobExpireTrials, s.ExpireTrialsJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.JobTimeout, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ExpireTrialsJob converts ended trials to active in batches until none remain.
func (s *Scheduler) ExpireTrialsJob(ctx context.Context) error {
	run := sweepFrom(ctx)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		expired, err := s.billing.ExpireTrials(ctx, s.cfg.BatchSize)
		run.addBatch(expired)
		if err != nil {
			return err
		}
		if expired < s.cfg.BatchSize {
			return nil
		}
	}
}
