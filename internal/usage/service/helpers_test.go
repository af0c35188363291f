package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/consensusai/consensus/internal/cache"
	"github.com/consensusai/consensus/internal/clock"
	"github.com/consensusai/consensus/internal/config"
	"github.com/consensusai/consensus/internal/pricing"
	"github.com/consensusai/consensus/internal/usage/repository"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *repository.MemoryEventStore
	clock    *clock.FakeClock
	recorder *Recorder
	tracker  *Tracker
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	holder, err := config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())
	if err != nil {
		t.Fatalf("billing config: %v", err)
	}

	store := repository.NewMemoryEventStore()
	clk := clock.NewFakeClock(testNow)
	recorder := NewRecorder(RecorderParam{
		Store:   store,
		Log:     zap.NewNop(),
		GenID:   mustNode(t),
		Clock:   clk,
		Pricing: pricing.NewCalculator(holder),
	})
	tracker := newTracker(TrackerParam{
		Recorder: recorder,
		Store:    store,
		Cache:    cache.NewAggregateCache(),
		Clock:    clk,
		Log:      zap.NewNop(),
	})
	return &fixture{store: store, clock: clk, recorder: recorder, tracker: tracker}
}

type staticTiers map[string]string

func (s staticTiers) TierFor(_ context.Context, userID string) (string, error) {
	return s[userID], nil
}

type lockerFunc func(ctx context.Context, userID string) (func(context.Context) error, error)

func (f lockerFunc) LockUser(ctx context.Context, userID string) (func(context.Context) error, error) {
	return f(ctx, userID)
}

func cost(v float64) *float64 { return &v }
