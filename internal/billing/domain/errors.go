package domain

import "errors"

var (
	ErrDuplicateSubscription = errors.New("duplicate_subscription")
	ErrSubscriptionNotFound  = errors.New("subscription_not_found")
	ErrQuotaExceeded         = errors.New("quota_exceeded")
	ErrInvalidTransition     = errors.New("invalid_transition")
	ErrInvalidUser           = errors.New("invalid_user")
	ErrInvalidTier           = errors.New("invalid_tier")
	ErrInvalidBillingCycle   = errors.New("invalid_billing_cycle")
	ErrInvalidTrialDays      = errors.New("invalid_trial_days")
)
