package domain

import (
	"context"
	"time"
)

// SubscriptionStore persists one subscription per user.
type SubscriptionStore interface {
	// Insert fails with ErrDuplicateSubscription when the user already has a row.
	Insert(ctx context.Context, sub *Subscription) error
	// Upsert stores sub as the user's row, inserting it or replacing a canceled
	// row in place. The replaced row keeps its ID and CreatedAt, which are copied
	// back into sub. A live row is never overwritten: ErrDuplicateSubscription.
	Upsert(ctx context.Context, sub *Subscription) error
	// FindByUserID returns nil, nil when the user has no subscription.
	FindByUserID(ctx context.Context, userID string) (*Subscription, error)
	// Update applies fn to the user's row under a row lock and stores the result.
	// An error from fn aborts the update and is returned unchanged.
	Update(ctx context.Context, userID string, fn func(*Subscription) error) (*Subscription, error)
	// ListExpiredTrials returns up to limit trialing subscriptions whose trial
	// ended at or before now, oldest first.
	ListExpiredTrials(ctx context.Context, now time.Time, limit int) ([]Subscription, error)
}
