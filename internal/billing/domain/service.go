package domain

import (
	"context"
	"time"

	"github.com/consensusai/consensus/internal/config"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
)

type CreateSubscriptionRequest struct {
	UserID       string       `json:"user_id"`
	Tier         string       `json:"tier"`
	BillingCycle BillingCycle `json:"billing_cycle"`
	TrialDays    int          `json:"trial_days"`
}

type ChangeTierRequest struct {
	UserID       string       `json:"user_id"`
	Tier         string       `json:"tier"`
	BillingCycle BillingCycle `json:"billing_cycle"`
}

// BillingSummary is the projected charge for the user's current usage period.
type BillingSummary struct {
	UserID          string                     `json:"user_id"`
	Subscription    *Subscription              `json:"subscription,omitempty"`
	Tier            config.Tier                `json:"tier"`
	Usage           usagedomain.UsageAggregate `json:"usage"`
	Quota           QuotaDecision              `json:"quota"`
	BasePrice       float64                    `json:"base_price"`
	OverageCost     float64                    `json:"overage_cost"`
	ProjectedCharge float64                    `json:"projected_charge"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

type Service interface {
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*Subscription, error)
	GetSubscription(ctx context.Context, userID string) (*Subscription, error)
	CheckQuota(ctx context.Context, userID string) (QuotaDecision, error)
	EnforceQuota(ctx context.Context, userID string) (QuotaDecision, error)
	ChangeTier(ctx context.Context, req ChangeTierRequest) (*Subscription, error)
	Activate(ctx context.Context, userID string) (*Subscription, error)
	MarkPastDue(ctx context.Context, userID string) (*Subscription, error)
	Renew(ctx context.Context, userID string) (*Subscription, error)
	Cancel(ctx context.Context, userID string) (*Subscription, error)
	GetBillingSummary(ctx context.Context, userID string) (BillingSummary, error)
	ListTiers() []config.Tier
	// ExpireTrials converts up to limit expired trials to active and reports how many changed.
	ExpireTrials(ctx context.Context, limit int) (int, error)
}
