package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
)

// MemorySubscriptionStore keeps subscriptions in process. Used by tests and STORAGE=memory.
type MemorySubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]billingdomain.Subscription
}

func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[string]billingdomain.Subscription)}
}

func (s *MemorySubscriptionStore) Insert(_ context.Context, sub *billingdomain.Subscription) error {
	if sub == nil {
		return errors.New("missing_subscription")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.UserID]; ok {
		return billingdomain.ErrDuplicateSubscription
	}
	s.subs[sub.UserID] = *sub
	return nil
}

func (s *MemorySubscriptionStore) Upsert(_ context.Context, sub *billingdomain.Subscription) error {
	if sub == nil {
		return errors.New("missing_subscription")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.subs[sub.UserID]; ok {
		if existing.Live() {
			return billingdomain.ErrDuplicateSubscription
		}
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	}
	s.subs[sub.UserID] = *sub
	return nil
}

func (s *MemorySubscriptionStore) FindByUserID(_ context.Context, userID string) (*billingdomain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[strings.TrimSpace(userID)]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *MemorySubscriptionStore) Update(_ context.Context, userID string, fn func(*billingdomain.Subscription) error) (*billingdomain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok {
		return nil, billingdomain.ErrSubscriptionNotFound
	}
	if err := fn(&sub); err != nil {
		return nil, err
	}
	s.subs[userID] = sub
	return &sub, nil
}

func (s *MemorySubscriptionStore) ListExpiredTrials(_ context.Context, now time.Time, limit int) ([]billingdomain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []billingdomain.Subscription
	for _, sub := range s.subs {
		if sub.TrialExpired(now) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TrialEndsAt.Equal(*out[j].TrialEndsAt) {
			return out[i].TrialEndsAt.Before(*out[j].TrialEndsAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
