package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"github.com/consensusai/consensus/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionStore struct {
	db   *gorm.DB
	repo *repository.Table[billingdomain.Subscription]
}

// NewSubscriptionStore returns the gorm-backed subscription table.
func NewSubscriptionStore(conn *gorm.DB) billingdomain.SubscriptionStore {
	return &subscriptionStore{
		db:   conn,
		repo: repository.New[billingdomain.Subscription](conn),
	}
}

func (s *subscriptionStore) Insert(ctx context.Context, sub *billingdomain.Subscription) error {
	if sub == nil {
		return errors.New("missing_subscription")
	}
	if err := s.repo.Insert(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return billingdomain.ErrDuplicateSubscription
		}
		return err
	}
	return nil
}

func (s *subscriptionStore) Upsert(ctx context.Context, sub *billingdomain.Subscription) error {
	if sub == nil {
		return errors.New("missing_subscription")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing billingdomain.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&billingdomain.Subscription{UserID: sub.UserID}).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := s.repo.Tx(tx).Insert(ctx, sub); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return billingdomain.ErrDuplicateSubscription
				}
				return err
			}
			return nil
		case err != nil:
			return err
		case existing.Live():
			return billingdomain.ErrDuplicateSubscription
		}
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		return s.repo.Tx(tx).Save(ctx, sub)
	})
}

func (s *subscriptionStore) FindByUserID(ctx context.Context, userID string) (*billingdomain.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	return s.repo.First(ctx, &billingdomain.Subscription{UserID: userID})
}

func (s *subscriptionStore) Update(ctx context.Context, userID string, fn func(*billingdomain.Subscription) error) (*billingdomain.Subscription, error) {
	var updated *billingdomain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub billingdomain.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&billingdomain.Subscription{UserID: userID}).
			First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return billingdomain.ErrSubscriptionNotFound
			}
			return err
		}
		if err := fn(&sub); err != nil {
			return err
		}
		if err := s.repo.Tx(tx).Save(ctx, &sub); err != nil {
			return err
		}
		updated = &sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *subscriptionStore) ListExpiredTrials(ctx context.Context, now time.Time, limit int) ([]billingdomain.Subscription, error) {
	var subs []billingdomain.Subscription
	q := s.db.WithContext(ctx).
		Where("status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at <= ?", billingdomain.SubscriptionStatusTrialing, now).
		Order("trial_ends_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
