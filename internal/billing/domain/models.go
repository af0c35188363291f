// Package domain contains subscription records and quota decisions.
package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"

	// SubscriptionStatusNone is reported for users billed on the free fallback.
	SubscriptionStatusNone SubscriptionStatus = "none"
)

type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
)

func (c BillingCycle) Valid() bool {
	return c == BillingCycleMonthly || c == BillingCycleAnnual
}

// Advance returns t moved forward by one cycle.
func (c BillingCycle) Advance(t time.Time) time.Time {
	if c == BillingCycleAnnual {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

// Subscription is a user's billing agreement; one per user.
type Subscription struct {
	ID                 snowflake.ID       `gorm:"primaryKey" json:"id"`
	UserID             string             `gorm:"size:191;not null;uniqueIndex:ux_subscriptions_user" json:"user_id"`
	Tier               string             `gorm:"size:64;not null" json:"tier"`
	BillingCycle       BillingCycle       `gorm:"size:16;not null" json:"billing_cycle"`
	Status             SubscriptionStatus `gorm:"size:16;not null;index" json:"status"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at,omitempty"`
	CurrentPeriodStart time.Time          `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `gorm:"not null" json:"current_period_end"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt          time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Live reports whether the subscription still determines the user's tier.
func (s Subscription) Live() bool {
	return s.Status != SubscriptionStatusCanceled
}

// TrialExpired reports whether a trialing subscription has reached its trial end.
func (s Subscription) TrialExpired(now time.Time) bool {
	return s.Status == SubscriptionStatusTrialing && s.TrialEndsAt != nil && !now.Before(*s.TrialEndsAt)
}

// TrialDaysRemaining rounds partial days up; zero outside a running trial.
func (s Subscription) TrialDaysRemaining(now time.Time) int {
	if s.Status != SubscriptionStatusTrialing || s.TrialEndsAt == nil {
		return 0
	}
	left := s.TrialEndsAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}
