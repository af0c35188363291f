package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"github.com/consensusai/consensus/pkg/db/pagination"
)

// MemoryEventStore keeps the usage log in process. Used by tests and STORAGE=memory.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []usagedomain.UsageEvent
	keys   map[string]struct{}

	// FailAppend, when set, is returned by Append instead of storing the event.
	FailAppend error
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{keys: make(map[string]struct{})}
}

func idempotencyIndex(userID, key string) string {
	return userID + "\x00" + key
}

func (s *MemoryEventStore) Append(_ context.Context, e *usagedomain.UsageEvent) error {
	if e == nil {
		return errors.New("missing_usage_event")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return s.FailAppend
	}
	if e.IdempotencyKey != nil {
		idx := idempotencyIndex(e.UserID, *e.IdempotencyKey)
		if _, ok := s.keys[idx]; ok {
			return usagedomain.ErrDuplicateEvent
		}
		s.keys[idx] = struct{}{}
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *MemoryEventStore) FindByIdempotencyKey(_ context.Context, userID, key string) (*usagedomain.UsageEvent, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.UserID == userID && e.IdempotencyKey != nil && *e.IdempotencyKey == key {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryEventStore) ReadAll(_ context.Context, userID string) ([]usagedomain.UsageEvent, error) {
	return s.filter(func(e usagedomain.UsageEvent) bool { return e.UserID == userID }), nil
}

func (s *MemoryEventStore) ReadPeriod(_ context.Context, userID string, from, to time.Time) ([]usagedomain.UsageEvent, error) {
	return s.filter(func(e usagedomain.UsageEvent) bool {
		return e.UserID == userID && inRange(e.RecordedAt, from, to)
	}), nil
}

func (s *MemoryEventStore) CountPeriod(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	events, err := s.ReadPeriod(ctx, userID, from, to)
	return int64(len(events)), err
}

func (s *MemoryEventStore) List(_ context.Context, filter usagedomain.EventFilter) ([]*usagedomain.UsageEvent, error) {
	var after snowflake.ID
	if token := strings.TrimSpace(filter.Page.PageToken); token != "" {
		if cursor, err := pagination.DecodeCursor(token); err == nil {
			after, _ = snowflake.ParseString(cursor.ID)
		}
	}
	size := filter.Page.PageSize
	if size <= 0 {
		size = 50
	}

	matched := s.filter(func(e usagedomain.UsageEvent) bool {
		if filter.UserID != "" && e.UserID != filter.UserID {
			return false
		}
		if filter.Type != "" && e.Type != filter.Type {
			return false
		}
		if !filter.From.IsZero() && e.RecordedAt.Before(filter.From) {
			return false
		}
		if !filter.To.IsZero() && !e.RecordedAt.Before(filter.To) {
			return false
		}
		return e.ID > after
	})

	out := make([]*usagedomain.UsageEvent, 0, size+1)
	for i := range matched {
		if len(out) == size+1 {
			break
		}
		out = append(out, &matched[i])
	}
	return out, nil
}

// Len returns the number of stored events.
func (s *MemoryEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *MemoryEventStore) filter(keep func(usagedomain.UsageEvent) bool) []usagedomain.UsageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]usagedomain.UsageEvent, 0)
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

var _ usagedomain.EventStore = (*MemoryEventStore)(nil)
