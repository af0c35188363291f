package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMessageAndDebateFoldIntoSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1", TokensUsed: 1500, EstimatedCost: 0.045})
	require.NoError(t, err)
	resp, err := f.tracker.RecordDebate(ctx, usagedomain.RecordUsageRequest{UserID: "u1", EstimatedCost: 0.009})
	require.NoError(t, err)

	assert.EqualValues(t, 1, resp.Usage.MessageCount)
	assert.EqualValues(t, 1, resp.Usage.DebateCount)
	assert.Equal(t, 0.054, resp.Usage.TotalCost())

	summary, err := f.tracker.GetUsageSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, usagedomain.Period("2026-10"), summary.Period)
	assert.EqualValues(t, 1, summary.MessageCount)
	assert.EqualValues(t, 1, summary.DebateCount)
	assert.EqualValues(t, 1500, summary.TokensUsed)
	assert.Equal(t, 0.054, summary.TotalCost())
	assert.Equal(t, "free", summary.Tier)
}

func TestSummaryEqualsFoldOfLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	costs := []float64{0.045, 0.009, 0.0001, 0.3, 0.015}
	for i, c := range costs {
		record := f.tracker.RecordMessage
		if i%2 == 1 {
			record = f.tracker.RecordDebate
		}
		_, err := record(ctx, usagedomain.RecordUsageRequest{UserID: "u1", TokensUsed: int64(100 * i), ActualCost: cost(c)})
		require.NoError(t, err)
	}

	summary, err := f.tracker.GetUsageSummary(ctx, "u1")
	require.NoError(t, err)

	events, err := f.store.ReadAll(ctx, "u1")
	require.NoError(t, err)
	var sum int64
	for _, e := range events {
		sum += e.ActualCostMicros
	}
	assert.Equal(t, sum, summary.TotalCostMicros)

	folded := usagedomain.Fold("u1", summary.Period, events)
	folded.Tier = summary.Tier
	assert.Equal(t, folded, summary)
}

func TestInvalidEventLeavesAggregateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1", TokensUsed: 10})
	require.NoError(t, err)
	before, err := f.tracker.GetUsageSummary(ctx, "u1")
	require.NoError(t, err)

	_, err = f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1", TokensUsed: -5})
	require.ErrorIs(t, err, usagedomain.ErrInvalidEvent)

	after, err := f.tracker.GetUsageSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFailedAppendLeavesAggregateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1"})
	require.NoError(t, err)

	f.store.FailAppend = errors.New("unavailable")
	_, err = f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1"})
	require.Error(t, err)
	f.store.FailAppend = nil

	summary, err := f.tracker.GetUsageSummary(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.MessageCount)
}

func TestConcurrentRecordMessagesForOneUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const n = 64

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1", TokensUsed: 10, ActualCost: cost(0.001)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	summary, err := f.tracker.GetUsageSummary(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, n, summary.MessageCount)
	assert.EqualValues(t, n, summary.EventCount)
	assert.Equal(t, 0.064, summary.TotalCost())

	events, err := f.store.ReadAll(ctx, "u1")
	require.NoError(t, err)
	folded := usagedomain.Fold("u1", summary.Period, events)
	assert.Equal(t, folded.TotalCostMicros, summary.TotalCostMicros)
	assert.Zero(t, f.tracker.locks.size(), "keyed locks are released")
}

func TestStaleCacheIsRefolded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1"})
	require.NoError(t, err)

	// another process appends directly to the shared log
	_, err = f.recorder.RecordEvent(ctx, usagedomain.RecordEventRequest{UserID: "u1", Type: usagedomain.EventTypeDebate})
	require.NoError(t, err)

	summary, err := f.tracker.GetUsageSummary(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.MessageCount)
	assert.EqualValues(t, 1, summary.DebateCount)

	resp, err := f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.Usage.EventCount)
}

func TestPeriodsAreCalendarMonths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.Set(time.Date(2026, 9, 30, 23, 59, 0, 0, time.UTC))
	_, err := f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1"})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	_, err = f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1"})
	require.NoError(t, err)

	current, err := f.tracker.GetUsageSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, usagedomain.Period("2026-10"), current.Period)
	assert.EqualValues(t, 1, current.MessageCount)

	september, err := f.tracker.GetUsageForPeriod(ctx, "u1", "2026-09")
	require.NoError(t, err)
	assert.EqualValues(t, 1, september.MessageCount)

	history, err := f.tracker.GetUsageHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, usagedomain.Period("2026-09"), history[0].Period)
	assert.Equal(t, usagedomain.Period("2026-10"), history[1].Period)

	_, err = f.tracker.GetUsageForPeriod(ctx, "u1", "September")
	assert.ErrorIs(t, err, usagedomain.ErrInvalidPeriod)
}

func TestDeduplicatedRecordDoesNotDoubleCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := usagedomain.RecordUsageRequest{UserID: "u1", IdempotencyKey: "m-1", ActualCost: cost(0.01)}

	_, err := f.tracker.RecordMessage(ctx, req)
	require.NoError(t, err)
	resp, err := f.tracker.RecordMessage(ctx, req)
	require.NoError(t, err)

	assert.True(t, resp.Deduplicated)
	assert.EqualValues(t, 1, resp.Usage.MessageCount)
	assert.Equal(t, 0.01, resp.Usage.TotalCost())
}

func TestTierResolverAndLocker(t *testing.T) {
	f := newFixture(t)
	f.tracker.tiers = staticTiers{"u1": "professional"}

	var locked, released int
	f.tracker.locker = lockerFunc(func(_ context.Context, userID string) (func(context.Context) error, error) {
		locked++
		return func(context.Context) error { released++; return nil }, nil
	})

	resp, err := f.tracker.RecordMessage(context.Background(), usagedomain.RecordUsageRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "professional", resp.Usage.Tier)
	assert.Equal(t, 1, locked)
	assert.Equal(t, 1, released)
}

func TestLockFailureRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.tracker.locker = lockerFunc(func(context.Context, string) (func(context.Context) error, error) {
		return nil, errors.New("redis down")
	})

	_, err := f.tracker.RecordMessage(context.Background(), usagedomain.RecordUsageRequest{UserID: "u1"})
	require.ErrorIs(t, err, usagedomain.ErrLockUnavailable)
	assert.Zero(t, f.store.Len())
	assert.Zero(t, f.tracker.locks.size())
}

func TestListEventsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.tracker.RecordMessage(ctx, usagedomain.RecordUsageRequest{UserID: "u1", Metadata: map[string]any{"n": fmt.Sprint(i)}})
		require.NoError(t, err)
	}
	_, err := f.tracker.RecordDebate(ctx, usagedomain.RecordUsageRequest{UserID: "u1"})
	require.NoError(t, err)

	page, err := f.tracker.ListEvents(ctx, usagedomain.ListEventsRequest{UserID: "u1", Type: "message", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextPageToken)

	seen := len(page.Events)
	for page.HasMore {
		page, err = f.tracker.ListEvents(ctx, usagedomain.ListEventsRequest{UserID: "u1", Type: "message", PageSize: 2, PageToken: page.NextPageToken})
		require.NoError(t, err)
		seen += len(page.Events)
	}
	assert.Equal(t, 5, seen)

	_, err = f.tracker.ListEvents(ctx, usagedomain.ListEventsRequest{UserID: "u1", PageToken: "%%%"})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidPageToken)

	_, err = f.tracker.ListEvents(ctx, usagedomain.ListEventsRequest{})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidUser)
}
