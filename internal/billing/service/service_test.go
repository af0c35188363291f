package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"github.com/consensusai/consensus/internal/billing/repository"
	"github.com/consensusai/consensus/internal/cache"
	"github.com/consensusai/consensus/internal/clock"
	"github.com/consensusai/consensus/internal/config"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	usagerepository "github.com/consensusai/consensus/internal/usage/repository"
	usageservice "github.com/consensusai/consensus/internal/usage/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	store   *repository.MemorySubscriptionStore
	tracker usagedomain.Tracker
	clock   *clock.FakeClock
}

func testBillingConfig() config.BillingConfig {
	cfg := config.DefaultBillingConfig()
	cfg.Tiers = []config.Tier{
		{Code: "free", MonthlyMessages: 2, MonthlyDebates: 1},
		{Code: "starter", MonthlyMessages: 3, MonthlyDebates: 1, MonthlyPrice: 9.99, AnnualPrice: 99.90, OveragePerMessage: 0.02},
		{Code: "professional", MonthlyMessages: 5000, MonthlyDebates: 500, MonthlyPrice: 29.99, AnnualPrice: 299.90, OveragePerMessage: 0.01},
		{Code: "enterprise", MonthlyMessages: config.Unlimited, MonthlyDebates: config.Unlimited, MonthlyPrice: 99.99},
	}
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	holder, err := config.NewStaticBillingConfigHolder(testBillingConfig())
	require.NoError(t, err)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	clk := clock.NewFakeClock(testNow)
	subs := repository.NewMemorySubscriptionStore()
	events := usagerepository.NewMemoryEventStore()
	recorder := usageservice.NewRecorder(usageservice.RecorderParam{
		Store: events,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})
	tracker := usageservice.NewTracker(usageservice.TrackerParam{
		Recorder: recorder,
		Store:    events,
		Cache:    cache.NewAggregateCache(),
		Clock:    clk,
		Log:      zap.NewNop(),
		Tiers:    NewTierResolver(subs),
	})
	svc := newService(ServiceParam{
		Store: subs,
		Usage: tracker,
		Tiers: holder,
		GenID: node,
		Clock: clk,
		Log:   zap.NewNop(),
	})
	return &fixture{svc: svc, store: subs, tracker: tracker, clock: clk}
}

func (f *fixture) sendMessages(t *testing.T, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.tracker.RecordMessage(context.Background(), usagedomain.RecordUsageRequest{
			UserID: userID, Model: "default", TokensUsed: 100, EstimatedCost: 0.003,
		})
		require.NoError(t, err)
	}
}

func TestCreateSubscriptionWithTrialThenCheckQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{
		UserID: "u1", Tier: "professional", BillingCycle: billingdomain.BillingCycleMonthly, TrialDays: 14,
	})
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusTrialing, sub.Status)
	require.NotNil(t, sub.TrialEndsAt)
	assert.Equal(t, testNow.AddDate(0, 0, 14), *sub.TrialEndsAt)
	assert.Equal(t, *sub.TrialEndsAt, sub.CurrentPeriodEnd)

	decision, err := f.svc.CheckQuota(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, billingdomain.SubscriptionStatusTrialing, decision.Status)
	assert.Equal(t, "professional", decision.Tier)
	assert.Equal(t, 14, decision.TrialDaysRemaining)
	assert.Equal(t, usagedomain.Period("2026-10"), decision.Period)
}

func TestCreateSubscriptionWithoutTrialIsActive(t *testing.T) {
	f := newFixture(t)

	sub, err := f.svc.CreateSubscription(context.Background(), billingdomain.CreateSubscriptionRequest{
		UserID: " u1 ", Tier: "Starter", BillingCycle: "ANNUAL",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", sub.UserID)
	assert.Equal(t, "starter", sub.Tier)
	assert.Equal(t, billingdomain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, billingdomain.BillingCycleAnnual, sub.BillingCycle)
	assert.Nil(t, sub.TrialEndsAt)
	assert.Equal(t, testNow.AddDate(1, 0, 0), sub.CurrentPeriodEnd)
}

func TestCreateSubscriptionRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "starter", BillingCycle: billingdomain.BillingCycleMonthly}

	first, err := f.svc.CreateSubscription(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "enterprise"})
	assert.ErrorIs(t, err, billingdomain.ErrDuplicateSubscription)

	current, err := f.svc.GetSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
	assert.Equal(t, "starter", current.Tier)
}

func TestCreateSubscriptionValidation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]struct {
		req  billingdomain.CreateSubscriptionRequest
		want error
	}{
		"missing user":   {billingdomain.CreateSubscriptionRequest{Tier: "starter"}, billingdomain.ErrInvalidUser},
		"unknown tier":   {billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "platinum"}, billingdomain.ErrInvalidTier},
		"missing tier":   {billingdomain.CreateSubscriptionRequest{UserID: "u1"}, billingdomain.ErrInvalidTier},
		"bad cycle":      {billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "starter", BillingCycle: "weekly"}, billingdomain.ErrInvalidBillingCycle},
		"negative trial": {billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "starter", TrialDays: -1}, billingdomain.ErrInvalidTrialDays},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateSubscription(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	sub, err := f.store.FindByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, sub, "rejected requests store nothing")
}

func TestCheckQuotaDeniesExactlyAboveLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "starter"})
	require.NoError(t, err)

	f.sendMessages(t, "u1", 3)
	decision, err := f.svc.CheckQuota(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.EqualValues(t, 0, decision.MessagesRemaining)

	f.sendMessages(t, "u1", 1)
	decision, err = f.svc.CheckQuota(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.EqualValues(t, 4, decision.MessagesUsed)
	assert.EqualValues(t, 1, decision.OverageMessages)
	assert.InDelta(t, 0.02, decision.OverageCost, 1e-9)

	_, err = f.svc.EnforceQuota(ctx, "u1")
	assert.ErrorIs(t, err, billingdomain.ErrQuotaExceeded)
}

func TestCheckQuotaWithoutSubscriptionUsesFreeTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sendMessages(t, "u2", 3)
	decision, err := f.svc.CheckQuota(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, config.FreeTier, decision.Tier)
	assert.Equal(t, billingdomain.SubscriptionStatusNone, decision.Status)
	assert.False(t, decision.Allowed)

	agg, err := f.tracker.GetUsageSummary(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, config.FreeTier, agg.Tier)
}

func TestCheckQuotaUnlimitedTierNeverDenies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "enterprise"})
	require.NoError(t, err)

	f.sendMessages(t, "u1", 10)
	decision, err := f.svc.EnforceQuota(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, config.Unlimited, decision.MessagesLimit)
}

func TestTrialExpiresLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "professional", TrialDays: 14})
	require.NoError(t, err)

	f.clock.AdvanceDays(15)

	sub, err := f.svc.GetSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, *created.TrialEndsAt, sub.CurrentPeriodStart)
	assert.Equal(t, created.TrialEndsAt.AddDate(0, 1, 0), sub.CurrentPeriodEnd)
	assert.Equal(t, 0, sub.TrialDaysRemaining(f.clock.Now()))

	stored, err := f.store.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusActive, stored.Status, "expiry is persisted")
}

func TestActivateAfterTrialRanOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, userID := range []string{"swept", "lazy"} {
		_, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: userID, Tier: "starter", TrialDays: 7})
		require.NoError(t, err)
	}

	f.clock.AdvanceDays(8)
	expired, err := f.svc.ExpireTrials(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	for userID, stored := range map[string]billingdomain.SubscriptionStatus{
		"swept": billingdomain.SubscriptionStatusActive,
		"lazy":  billingdomain.SubscriptionStatusTrialing,
	} {
		before, err := f.store.FindByUserID(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, stored, before.Status, userID)

		sub, err := f.svc.Activate(ctx, userID)
		require.NoError(t, err, userID)
		assert.Equal(t, billingdomain.SubscriptionStatusActive, sub.Status, userID)
		assert.Equal(t, *sub.TrialEndsAt, sub.CurrentPeriodStart, "%s period starts where the trial ended", userID)
		assert.Equal(t, sub.TrialEndsAt.AddDate(0, 1, 0), sub.CurrentPeriodEnd, userID)
	}

	_, err = f.svc.Renew(ctx, "lazy")
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, "lazy")
	assert.ErrorIs(t, err, billingdomain.ErrInvalidTransition, "renewed subscription is plainly active")
}

func TestExpireTrialsSweepsEndedTrials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, req := range []billingdomain.CreateSubscriptionRequest{
		{UserID: "short", Tier: "starter", TrialDays: 3},
		{UserID: "long", Tier: "starter", TrialDays: 30},
		{UserID: "paid", Tier: "starter"},
	} {
		_, err := f.svc.CreateSubscription(ctx, req)
		require.NoError(t, err)
	}

	f.clock.AdvanceDays(4)

	expired, err := f.svc.ExpireTrials(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	short, err := f.store.FindByUserID(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusActive, short.Status)

	long, err := f.store.FindByUserID(ctx, "long")
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusTrialing, long.Status)

	again, err := f.svc.ExpireTrials(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestSubscriptionStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "starter", TrialDays: 7})
	require.NoError(t, err)

	_, err = f.svc.MarkPastDue(ctx, "u1")
	assert.ErrorIs(t, err, billingdomain.ErrInvalidTransition, "trialing cannot go past due")
	_, err = f.svc.Renew(ctx, "u1")
	assert.ErrorIs(t, err, billingdomain.ErrInvalidTransition, "trialing cannot renew")

	sub, err := f.svc.Activate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, testNow, sub.CurrentPeriodStart)

	_, err = f.svc.Activate(ctx, "u1")
	assert.ErrorIs(t, err, billingdomain.ErrInvalidTransition)

	sub, err = f.svc.MarkPastDue(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusPastDue, sub.Status)

	decision, err := f.svc.CheckQuota(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "starter", decision.Tier, "past due keeps the subscribed tier")

	periodEnd := sub.CurrentPeriodEnd
	sub, err = f.svc.Renew(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, periodEnd, sub.CurrentPeriodStart)
	assert.Equal(t, periodEnd.AddDate(0, 1, 0), sub.CurrentPeriodEnd)

	sub, err = f.svc.Cancel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SubscriptionStatusCanceled, sub.Status)
	require.NotNil(t, sub.CanceledAt)

	for name, op := range map[string]func(context.Context, string) (*billingdomain.Subscription, error){
		"activate": f.svc.Activate,
		"past due": f.svc.MarkPastDue,
		"renew":    f.svc.Renew,
		"cancel":   f.svc.Cancel,
	} {
		_, err := op(ctx, "u1")
		assert.ErrorIs(t, err, billingdomain.ErrInvalidTransition, "%s after cancel", name)
	}
	_, err = f.svc.ChangeTier(ctx, billingdomain.ChangeTierRequest{UserID: "u1", Tier: "enterprise"})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidTransition)

	decision, err = f.svc.CheckQuota(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, config.FreeTier, decision.Tier)
	assert.Equal(t, billingdomain.SubscriptionStatusCanceled, decision.Status)
}

func TestTransitionsOnMissingSubscription(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Cancel(context.Background(), "ghost")
	assert.ErrorIs(t, err, billingdomain.ErrSubscriptionNotFound)
	_, err = f.svc.GetSubscription(context.Background(), "ghost")
	assert.ErrorIs(t, err, billingdomain.ErrSubscriptionNotFound)
}

func TestRenewAnnualAdvancesOneYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "starter", BillingCycle: billingdomain.BillingCycleAnnual})
	require.NoError(t, err)

	sub, err := f.svc.Renew(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, created.CurrentPeriodEnd, sub.CurrentPeriodStart)
	assert.Equal(t, created.CurrentPeriodEnd.AddDate(1, 0, 0), sub.CurrentPeriodEnd)
}

func TestResubscribeAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "starter"})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, "u1")
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	again, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "professional", TrialDays: 3})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "professional", again.Tier)
	assert.Equal(t, billingdomain.SubscriptionStatusTrialing, again.Status)
	assert.Nil(t, again.CanceledAt)
}

func TestChangeTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "starter"})
	require.NoError(t, err)

	sub, err := f.svc.ChangeTier(ctx, billingdomain.ChangeTierRequest{UserID: "u1", Tier: "Enterprise", BillingCycle: billingdomain.BillingCycleAnnual})
	require.NoError(t, err)
	assert.Equal(t, "enterprise", sub.Tier)
	assert.Equal(t, billingdomain.BillingCycleAnnual, sub.BillingCycle)
	assert.Equal(t, billingdomain.SubscriptionStatusActive, sub.Status)

	_, err = f.svc.ChangeTier(ctx, billingdomain.ChangeTierRequest{UserID: "u1", Tier: "nope"})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidTier)

	agg, err := f.tracker.GetUsageSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "enterprise", agg.Tier)
}

func TestGetBillingSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "starter"})
	require.NoError(t, err)
	f.sendMessages(t, "u1", 5)

	summary, err := f.svc.GetBillingSummary(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, summary.Subscription)
	assert.EqualValues(t, 5, summary.Usage.MessageCount)
	assert.InDelta(t, 0.015, summary.Usage.TotalCost(), 1e-9)
	assert.InDelta(t, 9.99, summary.BasePrice, 1e-9)
	assert.InDelta(t, 0.04, summary.OverageCost, 1e-9)
	assert.InDelta(t, 10.03, summary.ProjectedCharge, 1e-9)
	assert.False(t, summary.Quota.Allowed)
}

func TestGetBillingSummaryTrialHasNoBasePrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSubscription(ctx, billingdomain.CreateSubscriptionRequest{UserID: "u1", Tier: "professional", TrialDays: 14})
	require.NoError(t, err)

	summary, err := f.svc.GetBillingSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, summary.BasePrice)
	assert.Zero(t, summary.ProjectedCharge)
}

func TestListTiersReturnsCopy(t *testing.T) {
	f := newFixture(t)
	tiers := f.svc.ListTiers()
	require.Len(t, tiers, 4)
	tiers[0].Code = "mutated"
	assert.Equal(t, "free", f.svc.ListTiers()[0].Code)
}

func TestIsTransitionAllowed(t *testing.T) {
	statuses := []billingdomain.SubscriptionStatus{
		billingdomain.SubscriptionStatusTrialing,
		billingdomain.SubscriptionStatusActive,
		billingdomain.SubscriptionStatusPastDue,
		billingdomain.SubscriptionStatusCanceled,
	}
	allowed := map[[2]billingdomain.SubscriptionStatus]bool{
		{billingdomain.SubscriptionStatusTrialing, billingdomain.SubscriptionStatusActive}:   true,
		{billingdomain.SubscriptionStatusTrialing, billingdomain.SubscriptionStatusCanceled}: true,
		{billingdomain.SubscriptionStatusActive, billingdomain.SubscriptionStatusPastDue}:    true,
		{billingdomain.SubscriptionStatusActive, billingdomain.SubscriptionStatusCanceled}:   true,
		{billingdomain.SubscriptionStatusPastDue, billingdomain.SubscriptionStatusActive}:    true,
		{billingdomain.SubscriptionStatusPastDue, billingdomain.SubscriptionStatusCanceled}:  true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]billingdomain.SubscriptionStatus{from, to}], isTransitionAllowed(from, to), "%s -> %s", from, to)
		}
	}
}
