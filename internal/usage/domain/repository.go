package domain

import (
	"context"
	"time"

	"github.com/consensusai/consensus/pkg/db/pagination"
)

type EventFilter struct {
	UserID string
	Type   EventType
	From   time.Time
	To     time.Time
	Page   pagination.Pagination
}

// EventStore is the append-only usage log. Reads return events in ID order.
type EventStore interface {
	// Append stores e. A repeated idempotency key for the same user yields ErrDuplicateEvent.
	Append(ctx context.Context, e *UsageEvent) error
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*UsageEvent, error)
	ReadAll(ctx context.Context, userID string) ([]UsageEvent, error)
	// ReadPeriod returns events with RecordedAt in [from, to).
	ReadPeriod(ctx context.Context, userID string, from, to time.Time) ([]UsageEvent, error)
	CountPeriod(ctx context.Context, userID string, from, to time.Time) (int64, error)
	// List returns up to Page.PageSize+1 events after the page token.
	List(ctx context.Context, filter EventFilter) ([]*UsageEvent, error)
}
