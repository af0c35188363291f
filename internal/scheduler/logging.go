package scheduler

import (
	"context"
	"time"

	obslogger "github.com/consensusai/consensus/internal/observability/logger"
	"go.uber.org/zap"
)

// sweep accumulates what a single job invocation did.
type sweep struct {
	job     string
	runID   string
	started time.Time
	batches int
	expired int
}

type sweepKey struct{}

func (w *sweep) addBatch(expired int) {
	if w == nil {
		return
	}
	w.batches++
	if expired > 0 {
		w.expired += expired
	}
}

func (w *sweep) fields(now time.Time) []zap.Field {
	return []zap.Field{
		zap.String("job", w.job),
		zap.String("run_id", w.runID),
		zap.Duration("elapsed", now.Sub(w.started)),
		zap.Int("batches", w.batches),
		zap.Int("subscriptions_expired", w.expired),
	}
}

func sweepFrom(ctx context.Context) *sweep {
	w, _ := ctx.Value(sweepKey{}).(*sweep)
	return w
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

// beginSweep attaches a fresh sweep to ctx and logs its start.
func (s *Scheduler) beginSweep(ctx context.Context, job string) (context.Context, *sweep) {
	w := &sweep{
		job:     job,
		runID:   s.genID.Generate().String(),
		started: s.clock.Now(),
	}
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("job", job),
		zap.String("run_id", w.runID),
		zap.Int("batch_size", s.cfg.BatchSize),
	)
	return context.WithValue(ctx, sweepKey{}, w), w
}

func (s *Scheduler) endSweep(ctx context.Context, w *sweep, outcome string, err error) {
	fields := append(w.fields(s.clock.Now()), zap.String("outcome", outcome))
	log := s.logger(ctx)
	if err != nil {
		log.Warn("scheduler.job.finish", append(fields, zap.Error(err))...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}
