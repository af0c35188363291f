package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/consensusai/consensus/internal/clock"
	obslogger "github.com/consensusai/consensus/internal/observability/logger"
	obsmetrics "github.com/consensusai/consensus/internal/observability/metrics"
	"github.com/consensusai/consensus/internal/pricing"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// maxClockSkew bounds how far in the future a caller-supplied RecordedAt may be.
const maxClockSkew = 5 * time.Minute

type RecorderParam struct {
	fx.In

	Store      usagedomain.EventStore
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Pricing    *pricing.Calculator           `optional:"true"`
	Metrics    *obsmetrics.Metrics           `optional:"true"`
	AccMetrics *obsmetrics.AccountingMetrics `optional:"true"`
}

// Recorder validates usage events and appends them to the log.
type Recorder struct {
	store      usagedomain.EventStore
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	pricing    *pricing.Calculator
	metrics    *obsmetrics.Metrics
	accMetrics *obsmetrics.AccountingMetrics
}

func NewRecorder(p RecorderParam) *Recorder {
	return &Recorder{
		store:      p.Store,
		log:        p.Log.Named("usage.recorder"),
		genID:      p.GenID,
		clock:      p.Clock,
		pricing:    p.Pricing,
		metrics:    p.Metrics,
		accMetrics: p.AccMetrics,
	}
}

func (r *Recorder) RecordEvent(ctx context.Context, req usagedomain.RecordEventRequest) (*usagedomain.UsageEvent, error) {
	event, _, err := r.record(ctx, req)
	return event, err
}

// record appends the event. When the idempotency key was already used by the
// user, the stored event is returned with deduplicated set and nothing is appended.
func (r *Recorder) record(ctx context.Context, req usagedomain.RecordEventRequest) (*usagedomain.UsageEvent, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	now := r.clock.Now().UTC()
	recordedAt := req.RecordedAt.UTC()
	if req.RecordedAt.IsZero() {
		recordedAt = now
	}
	if recordedAt.After(now.Add(maxClockSkew)) {
		return nil, false, &usagedomain.ValidationError{Field: "recorded_at", Code: "in_future"}
	}

	if req.IdempotencyKey != "" {
		existing, err := r.store.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
		if err != nil {
			r.accMetrics.ObserveStoreError("find_idempotency_key", err)
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	estimatedMicros := usagedomain.ToMicros(req.EstimatedCost)
	if estimatedMicros == 0 && r.pricing != nil {
		estimatedMicros = r.pricing.EstimateMicros(req.Model, req.TokensUsed)
		if estimatedMicros > usagedomain.MaxCostMicrosPerEvent {
			return nil, false, &usagedomain.ValidationError{Field: "tokens_used", Code: usagedomain.CodeOutOfRange}
		}
	}
	actualMicros := estimatedMicros
	if req.ActualCost != nil {
		actualMicros = usagedomain.ToMicros(*req.ActualCost)
	}

	event := &usagedomain.UsageEvent{
		ID:                  r.genID.Generate(),
		UserID:              req.UserID,
		Type:                req.Type,
		Model:               req.Model,
		TokensUsed:          req.TokensUsed,
		EstimatedCostMicros: estimatedMicros,
		ActualCostMicros:    actualMicros,
		RecordedAt:          recordedAt,
		CreatedAt:           now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		event.IdempotencyKey = &key
	}
	if req.Metadata != nil {
		event.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := r.store.Append(ctx, event); err != nil {
		if errors.Is(err, usagedomain.ErrDuplicateEvent) && event.IdempotencyKey != nil {
			existing, findErr := r.store.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
			if findErr == nil && existing != nil {
				return existing, true, nil
			}
		}
		r.accMetrics.ObserveStoreError("append", err)
		return nil, false, err
	}

	r.metrics.RecordUsageEvent(ctx, string(event.Type), event.Model, event.ActualCost())
	obslogger.WithContext(ctx, r.log).Debug("usage event recorded",
		zap.String("event_id", event.ID.String()),
		zap.String("type", string(event.Type)),
		zap.Int64("tokens_used", event.TokensUsed),
		zap.Int64("actual_cost_micros", event.ActualCostMicros),
	)
	return event, false, nil
}

var _ usagedomain.Recorder = (*Recorder)(nil)
