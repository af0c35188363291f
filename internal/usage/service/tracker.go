package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/consensusai/consensus/internal/cache"
	"github.com/consensusai/consensus/internal/clock"
	"github.com/consensusai/consensus/internal/config"
	obslogger "github.com/consensusai/consensus/internal/observability/logger"
	obsmetrics "github.com/consensusai/consensus/internal/observability/metrics"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"github.com/consensusai/consensus/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	releaseTimeout  = 2 * time.Second
)

// UserLocker serializes a user's updates across processes sharing one store.
type UserLocker interface {
	LockUser(ctx context.Context, userID string) (func(context.Context) error, error)
}

type TrackerParam struct {
	fx.In

	Recorder   *Recorder
	Store      usagedomain.EventStore
	Cache      cache.AggregateCache
	Clock      clock.Clock
	Log        *zap.Logger
	Locker     UserLocker                    `optional:"true"`
	Tiers      usagedomain.TierResolver      `optional:"true"`
	AccMetrics *obsmetrics.AccountingMetrics `optional:"true"`
}

// Tracker folds the usage log into per-user, per-period aggregates.
//
// Writes for one user are serialized by an in-process keyed mutex and, when
// configured, a distributed lock. Cached aggregates are versioned by
// EventCount and re-folded from the log whenever the store holds a different
// number of events for the period.
type Tracker struct {
	recorder   *Recorder
	store      usagedomain.EventStore
	cache      cache.AggregateCache
	clock      clock.Clock
	log        *zap.Logger
	locker     UserLocker
	tiers      usagedomain.TierResolver
	accMetrics *obsmetrics.AccountingMetrics

	locks *keyedMutex
	group singleflight.Group
}

func NewTracker(p TrackerParam) usagedomain.Tracker {
	return newTracker(p)
}

func newTracker(p TrackerParam) *Tracker {
	return &Tracker{
		recorder:   p.Recorder,
		store:      p.Store,
		cache:      p.Cache,
		clock:      p.Clock,
		log:        p.Log.Named("usage.tracker"),
		locker:     p.Locker,
		tiers:      p.Tiers,
		accMetrics: p.AccMetrics,
		locks:      newKeyedMutex(),
	}
}

func (t *Tracker) RecordMessage(ctx context.Context, req usagedomain.RecordUsageRequest) (*usagedomain.RecordUsageResponse, error) {
	return t.Record(ctx, req.Event(usagedomain.EventTypeMessage))
}

func (t *Tracker) RecordDebate(ctx context.Context, req usagedomain.RecordUsageRequest) (*usagedomain.RecordUsageResponse, error) {
	return t.Record(ctx, req.Event(usagedomain.EventTypeDebate))
}

// Record appends the event and folds it into the aggregate of the event's period.
// A failed append leaves every aggregate untouched.
func (t *Tracker) Record(ctx context.Context, req usagedomain.RecordEventRequest) (*usagedomain.RecordUsageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock, err := t.lockUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	event, deduplicated, err := t.recorder.record(ctx, req)
	if err != nil {
		return nil, err
	}

	period := usagedomain.PeriodOf(event.RecordedAt)
	var agg usagedomain.UsageAggregate
	if deduplicated {
		agg, err = t.verified(ctx, event.UserID, period)
	} else {
		agg, err = t.fold(ctx, *event, period)
	}
	if err != nil {
		return nil, err
	}
	agg.Tier = t.tierFor(ctx, event.UserID)

	return &usagedomain.RecordUsageResponse{
		Event:        *event,
		Usage:        agg,
		Deduplicated: deduplicated,
	}, nil
}

// fold applies a freshly appended event to the cached aggregate. Must hold the user lock.
func (t *Tracker) fold(ctx context.Context, event usagedomain.UsageEvent, period usagedomain.Period) (usagedomain.UsageAggregate, error) {
	cached, ok := t.cache.Get(event.UserID, period)
	if !ok {
		return t.refold(ctx, event.UserID, period, t.missReason(event.UserID, period))
	}

	next := cached
	next.Apply(event)
	count, err := t.store.CountPeriod(ctx, event.UserID, period.Start(), period.End())
	if err != nil {
		t.accMetrics.ObserveStoreError("count_period", err)
		t.cache.Invalidate(event.UserID, period)
		return usagedomain.UsageAggregate{}, err
	}
	if count != next.EventCount {
		return t.refold(ctx, event.UserID, period, obsmetrics.RefoldReasonStale)
	}
	t.cache.Set(next)
	return next, nil
}

// verified returns the cached aggregate after checking its version against the log.
func (t *Tracker) verified(ctx context.Context, userID string, period usagedomain.Period) (usagedomain.UsageAggregate, error) {
	cached, ok := t.cache.Get(userID, period)
	if !ok {
		return t.refold(ctx, userID, period, t.missReason(userID, period))
	}
	count, err := t.store.CountPeriod(ctx, userID, period.Start(), period.End())
	if err != nil {
		t.accMetrics.ObserveStoreError("count_period", err)
		return usagedomain.UsageAggregate{}, err
	}
	if count != cached.EventCount {
		return t.refold(ctx, userID, period, obsmetrics.RefoldReasonStale)
	}
	return cached, nil
}

func (t *Tracker) refold(ctx context.Context, userID string, period usagedomain.Period, reason string) (usagedomain.UsageAggregate, error) {
	events, err := t.store.ReadPeriod(ctx, userID, period.Start(), period.End())
	if err != nil {
		t.accMetrics.ObserveStoreError("read_period", err)
		return usagedomain.UsageAggregate{}, err
	}
	agg := usagedomain.Fold(userID, period, events)
	t.accMetrics.ObserveRefold(reason, len(events))

	// A concurrent reader may have cached a newer fold; never move the version backwards.
	if cached, ok := t.cache.Get(userID, period); !ok || cached.EventCount <= agg.EventCount {
		t.cache.Set(agg)
	}
	if reason == obsmetrics.RefoldReasonStale {
		obslogger.WithContext(ctx, t.log).Debug("stale usage aggregate re-folded",
			zap.String("user_id", userID),
			zap.String("period", period.String()),
			zap.Int64("event_count", agg.EventCount),
		)
	}
	return agg, nil
}

func (t *Tracker) missReason(userID string, period usagedomain.Period) string {
	previous := usagedomain.PeriodOf(period.Start().AddDate(0, -1, 0))
	if _, ok := t.cache.Get(userID, previous); ok {
		return obsmetrics.RefoldReasonRollover
	}
	return obsmetrics.RefoldReasonMiss
}

func (t *Tracker) GetUsageSummary(ctx context.Context, userID string) (usagedomain.UsageAggregate, error) {
	return t.GetUsageForPeriod(ctx, userID, usagedomain.PeriodOf(t.clock.Now()).String())
}

func (t *Tracker) GetUsageForPeriod(ctx context.Context, userID string, rawPeriod string) (usagedomain.UsageAggregate, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return usagedomain.UsageAggregate{}, usagedomain.ErrInvalidUser
	}
	period, err := usagedomain.ParsePeriod(rawPeriod)
	if err != nil {
		return usagedomain.UsageAggregate{}, err
	}

	key := userID + "|" + period.String()
	v, err, _ := t.group.Do(key, func() (interface{}, error) {
		return t.verified(ctx, userID, period)
	})
	if err != nil {
		return usagedomain.UsageAggregate{}, err
	}
	agg := v.(usagedomain.UsageAggregate)
	agg.Tier = t.tierFor(ctx, userID)
	return agg, nil
}

// GetUsageHistory folds the whole log of a user, one aggregate per period with events.
func (t *Tracker) GetUsageHistory(ctx context.Context, userID string) ([]usagedomain.UsageAggregate, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, usagedomain.ErrInvalidUser
	}
	events, err := t.store.ReadAll(ctx, userID)
	if err != nil {
		t.accMetrics.ObserveStoreError("read_all", err)
		return nil, err
	}
	return usagedomain.FoldAll(userID, events), nil
}

func (t *Tracker) ListEvents(ctx context.Context, req usagedomain.ListEventsRequest) (usagedomain.ListEventsResponse, error) {
	filter, pageSize, err := buildEventFilter(req)
	if err != nil {
		return usagedomain.ListEventsResponse{}, err
	}
	items, err := t.store.List(ctx, filter)
	if err != nil {
		t.accMetrics.ObserveStoreError("list", err)
		return usagedomain.ListEventsResponse{}, err
	}
	return buildListResponse(items, pageSize), nil
}

func buildEventFilter(req usagedomain.ListEventsRequest) (usagedomain.EventFilter, int32, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return usagedomain.EventFilter{}, 0, usagedomain.ErrInvalidUser
	}
	filter := usagedomain.EventFilter{UserID: userID}

	if raw := strings.TrimSpace(req.Period); raw != "" {
		period, err := usagedomain.ParsePeriod(raw)
		if err != nil {
			return usagedomain.EventFilter{}, 0, err
		}
		filter.From, filter.To = period.Start(), period.End()
	}
	if req.Type != "" {
		eventType := usagedomain.EventType(strings.ToLower(strings.TrimSpace(string(req.Type))))
		if !eventType.Valid() {
			return usagedomain.EventFilter{}, 0, &usagedomain.ValidationError{Field: "type", Code: usagedomain.CodeUnsupported}
		}
		filter.Type = eventType
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		if _, err := pagination.DecodeCursor(token); err != nil {
			return usagedomain.EventFilter{}, 0, usagedomain.ErrInvalidPageToken
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Page = pagination.Pagination{PageToken: strings.TrimSpace(req.PageToken), PageSize: int(pageSize)}
	return filter, pageSize, nil
}

func buildListResponse(items []*usagedomain.UsageEvent, pageSize int32) usagedomain.ListEventsResponse {
	items, pageInfo := pagination.Trim(items, pageSize, func(e *usagedomain.UsageEvent) pagination.Cursor {
		return pagination.Cursor{ID: e.ID.String(), RecordedAt: e.RecordedAt}
	})

	events := make([]usagedomain.UsageEvent, 0, len(items))
	for _, item := range items {
		if item != nil {
			events = append(events, *item)
		}
	}
	return usagedomain.ListEventsResponse{Events: events, PageInfo: pageInfo}
}

func (t *Tracker) tierFor(ctx context.Context, userID string) string {
	if t.tiers == nil {
		return config.FreeTier
	}
	tier, err := t.tiers.TierFor(ctx, userID)
	if err != nil || tier == "" {
		if err != nil {
			obslogger.WithContext(ctx, t.log).Warn("tier lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return config.FreeTier
	}
	return tier
}

// lockUser takes the in-process lock and then the distributed one, if any.
func (t *Tracker) lockUser(ctx context.Context, userID string) (func(), error) {
	start := time.Now()
	unlockLocal := t.locks.Lock(userID)
	t.accMetrics.ObserveLockWait("local", time.Since(start))

	if t.locker == nil {
		return unlockLocal, nil
	}

	start = time.Now()
	release, err := t.locker.LockUser(ctx, userID)
	if err != nil {
		unlockLocal()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, errors.Join(usagedomain.ErrLockUnavailable, err)
	}
	t.accMetrics.ObserveLockWait("redis", time.Since(start))

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			obslogger.WithContext(ctx, t.log).Warn("releasing user lock failed", zap.String("user_id", userID), zap.Error(err))
		}
		unlockLocal()
	}, nil
}

var _ usagedomain.Tracker = (*Tracker)(nil)
