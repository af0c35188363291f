package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	billingmocks "github.com/consensusai/consensus/internal/billing/mocks"
	"github.com/consensusai/consensus/internal/clock"
	"github.com/consensusai/consensus/internal/ratelimit"
	"github.com/golang/mock/gomock"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *billingmocks.MockService) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	billing := billingmocks.NewMockService(gomock.NewController(t))

	s, err := New(Params{
		Billing: billing,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)),
		Config:  cfg,
	})
	require.NoError(t, err)
	return s, billing
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExpireTrialsJobDrainsBatches(t *testing.T) {
	s, billing := newTestScheduler(t, Config{BatchSize: 2})

	gomock.InOrder(
		billing.EXPECT().ExpireTrials(gomock.Any(), 2).Return(2, nil),
		billing.EXPECT().ExpireTrials(gomock.Any(), 2).Return(2, nil),
		billing.EXPECT().ExpireTrials(gomock.Any(), 2).Return(1, nil),
	)

	require.NoError(t, s.RunOnce(context.Background()))
}

func TestSweepLogsExpiredTotal(t *testing.T) {
	s, billing := newTestScheduler(t, Config{BatchSize: 3})
	core, logs := observer.New(zapcore.InfoLevel)
	s.log = zap.New(core)

	gomock.InOrder(
		billing.EXPECT().ExpireTrials(gomock.Any(), 3).Return(3, nil),
		billing.EXPECT().ExpireTrials(gomock.Any(), 3).Return(2, nil),
	)
	require.NoError(t, s.RunOnce(context.Background()))

	finished := logs.FilterMessage("scheduler.job.finish").All()
	require.Len(t, finished, 1)
	fields := finished[0].ContextMap()
	assert.EqualValues(t, 5, fields["subscriptions_expired"])
	assert.EqualValues(t, 2, fields["batches"])
	assert.Equal(t, "ok", fields["outcome"])
}

func TestRunOnceReportsJobError(t *testing.T) {
	s, billing := newTestScheduler(t, Config{})

	billing.EXPECT().ExpireTrials(gomock.Any(), DefaultConfig().BatchSize).Return(0, errors.New("store down"))

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobExpireTrials)
}

func TestRunJobTimeoutIsNotAnError(t *testing.T) {
	s, _ := newTestScheduler(t, Config{})

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.NoError(t, err)
}

func TestDisabledJobIsSkipped(t *testing.T) {
	s, _ := newTestScheduler(t, Config{EnabledJobs: []string{"something_else"}})

	require.NoError(t, s.RunOnce(context.Background()))
}

func TestRunJobSkipsWhenAnotherInstanceHoldsLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s, _ := newTestScheduler(t, Config{})
	s.locker = ratelimit.NewLocker(client)

	require.NoError(t, mr.Set("consensus:lock:scheduler:"+JobExpireTrials, "other"))

	called := false
	err := s.runJob(context.Background(), JobExpireTrials, time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)

	mr.Del("consensus:lock:scheduler:" + JobExpireTrials)
	err = s.runJob(context.Background(), JobExpireTrials, time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, mr.Exists("consensus:lock:scheduler:"+JobExpireTrials), "lock is released after the run")
}
