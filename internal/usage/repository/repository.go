package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"github.com/consensusai/consensus/pkg/db/option"
	"github.com/consensusai/consensus/pkg/repository"
	"gorm.io/gorm"
)

type eventStore struct {
	db   *gorm.DB
	repo *repository.Table[usagedomain.UsageEvent]
}

// NewEventStore returns the gorm-backed usage log.
func NewEventStore(conn *gorm.DB) usagedomain.EventStore {
	return &eventStore{
		db:   conn,
		repo: repository.New[usagedomain.UsageEvent](conn),
	}
}

func (s *eventStore) Append(ctx context.Context, e *usagedomain.UsageEvent) error {
	if e == nil {
		return errors.New("missing_usage_event")
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return usagedomain.ErrDuplicateEvent
		}
		return err
	}
	return nil
}

func (s *eventStore) FindByIdempotencyKey(ctx context.Context, userID, key string) (*usagedomain.UsageEvent, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	return s.repo.First(ctx, &usagedomain.UsageEvent{UserID: userID, IdempotencyKey: &key})
}

func (s *eventStore) ReadAll(ctx context.Context, userID string) ([]usagedomain.UsageEvent, error) {
	items, err := s.repo.List(ctx, &usagedomain.UsageEvent{UserID: userID},
		option.WithSortBy(option.QuerySortBy{}),
	)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *eventStore) ReadPeriod(ctx context.Context, userID string, from, to time.Time) ([]usagedomain.UsageEvent, error) {
	opts := append(withinRange(from, to), option.WithSortBy(option.QuerySortBy{}))
	items, err := s.repo.List(ctx, &usagedomain.UsageEvent{UserID: userID}, opts...)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *eventStore) CountPeriod(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	return s.repo.Count(ctx, &usagedomain.UsageEvent{UserID: userID}, withinRange(from, to)...)
}

func (s *eventStore) List(ctx context.Context, filter usagedomain.EventFilter) ([]*usagedomain.UsageEvent, error) {
	opts := []option.QueryOption{}
	if !filter.From.IsZero() {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "recorded_at", Operator: option.GTE, Value: filter.From.UTC()}))
	}
	if !filter.To.IsZero() {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "recorded_at", Operator: option.LT, Value: filter.To.UTC()}))
	}
	opts = append(opts,
		option.ApplyPagination(filter.Page),
		option.WithSortBy(option.QuerySortBy{}),
	)
	return s.repo.List(ctx, &usagedomain.UsageEvent{UserID: filter.UserID, Type: filter.Type}, opts...)
}

func withinRange(from, to time.Time) []option.QueryOption {
	return []option.QueryOption{
		option.ApplyOperator(option.Condition{Field: "recorded_at", Operator: option.GTE, Value: from.UTC()}),
		option.ApplyOperator(option.Condition{Field: "recorded_at", Operator: option.LT, Value: to.UTC()}),
	}
}

func deref(items []*usagedomain.UsageEvent) []usagedomain.UsageEvent {
	out := make([]usagedomain.UsageEvent, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
