package service

import (
	"context"
	"strings"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"github.com/consensusai/consensus/internal/config"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
)

type tierResolver struct {
	store billingdomain.SubscriptionStore
}

// NewTierResolver labels usage aggregates with the user's subscribed tier.
// It reads the store directly so the usage tracker does not depend on Service.
func NewTierResolver(store billingdomain.SubscriptionStore) usagedomain.TierResolver {
	return &tierResolver{store: store}
}

func (r *tierResolver) TierFor(ctx context.Context, userID string) (string, error) {
	sub, err := r.store.FindByUserID(ctx, strings.TrimSpace(userID))
	if err != nil {
		return "", err
	}
	if sub == nil || !sub.Live() {
		return config.FreeTier, nil
	}
	return sub.Tier, nil
}
