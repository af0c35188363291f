package domain

import (
	"testing"
	"time"

	"github.com/consensusai/consensus/internal/config"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"github.com/stretchr/testify/assert"
)

func TestDecideDeniesOnlyAboveLimit(t *testing.T) {
	tier := config.Tier{Code: "starter", MonthlyMessages: 10, MonthlyDebates: 2, OveragePerMessage: 0.02}

	cases := []struct {
		messages  int64
		allowed   bool
		remaining int64
		overage   int64
	}{
		{messages: 0, allowed: true, remaining: 10},
		{messages: 9, allowed: true, remaining: 1},
		{messages: 10, allowed: true, remaining: 0},
		{messages: 11, allowed: false, remaining: 0, overage: 1},
		{messages: 25, allowed: false, remaining: 0, overage: 15},
	}
	for _, tc := range cases {
		d := Decide(tier, usagedomain.UsageAggregate{UserID: "u1", Period: "2026-10", MessageCount: tc.messages, DebateCount: 3})
		assert.Equal(t, tc.allowed, d.Allowed, "messages=%d", tc.messages)
		assert.Equal(t, tc.remaining, d.MessagesRemaining, "messages=%d", tc.messages)
		assert.Equal(t, tc.overage, d.OverageMessages, "messages=%d", tc.messages)
		assert.EqualValues(t, 1, d.OverageDebates)
		assert.InDelta(t, float64(tc.overage)*0.02, d.OverageCost, 1e-9)
	}
}

func TestDecideUnlimitedNeverDenies(t *testing.T) {
	tier := config.Tier{Code: "enterprise", MonthlyMessages: config.Unlimited, MonthlyDebates: config.Unlimited}
	d := Decide(tier, usagedomain.UsageAggregate{MessageCount: 1 << 40, DebateCount: 1 << 30})
	assert.True(t, d.Allowed)
	assert.Equal(t, config.Unlimited, d.MessagesRemaining)
	assert.Equal(t, config.Unlimited, d.DebatesRemaining)
	assert.Zero(t, d.OverageMessages)
	assert.Zero(t, d.OverageCost)
}

func TestDecideMixedLimits(t *testing.T) {
	tier := config.Tier{Code: "research", MonthlyMessages: 5, MonthlyDebates: config.Unlimited}
	d := Decide(tier, usagedomain.UsageAggregate{MessageCount: 6, DebateCount: 900})
	assert.False(t, d.Allowed)
	assert.EqualValues(t, 1, d.OverageMessages)
	assert.Equal(t, config.Unlimited, d.DebatesRemaining)
	assert.Zero(t, d.OverageDebates)
}

func TestTrialDaysRemaining(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	end := now.Add(36 * time.Hour)
	sub := Subscription{Status: SubscriptionStatusTrialing, TrialEndsAt: &end}

	assert.Equal(t, 2, sub.TrialDaysRemaining(now))
	assert.False(t, sub.TrialExpired(now))
	assert.Equal(t, 0, sub.TrialDaysRemaining(end))
	assert.True(t, sub.TrialExpired(end))

	sub.Status = SubscriptionStatusActive
	assert.Equal(t, 0, sub.TrialDaysRemaining(now))
}

func TestBillingCycleAdvance(t *testing.T) {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), BillingCycleMonthly.Advance(start))
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), BillingCycleAnnual.Advance(start))
	assert.False(t, BillingCycle("weekly").Valid())
}
