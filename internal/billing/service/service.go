package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"github.com/consensusai/consensus/internal/clock"
	"github.com/consensusai/consensus/internal/config"
	obslogger "github.com/consensusai/consensus/internal/observability/logger"
	obsmetrics "github.com/consensusai/consensus/internal/observability/metrics"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Store   billingdomain.SubscriptionStore
	Usage   usagedomain.Tracker
	Tiers   *config.BillingConfigHolder
	GenID   *snowflake.Node
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Service owns subscriptions and applies tier limits to usage aggregates.
type Service struct {
	store   billingdomain.SubscriptionStore
	usage   usagedomain.Tracker
	tiers   *config.BillingConfigHolder
	genID   *snowflake.Node
	clock   clock.Clock
	log     *zap.Logger
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) billingdomain.Service {
	return newService(p)
}

func newService(p ServiceParam) *Service {
	return &Service{
		store:   p.Store,
		usage:   p.Usage,
		tiers:   p.Tiers,
		genID:   p.GenID,
		clock:   p.Clock,
		log:     p.Log.Named("billing.service"),
		metrics: p.Metrics,
	}
}

func (s *Service) CreateSubscription(ctx context.Context, req billingdomain.CreateSubscriptionRequest) (*billingdomain.Subscription, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, billingdomain.ErrInvalidUser
	}
	tier, err := s.lookupTier(req.Tier)
	if err != nil {
		return nil, err
	}
	cycle, err := normalizeBillingCycle(req.BillingCycle)
	if err != nil {
		return nil, err
	}
	if req.TrialDays < 0 {
		return nil, billingdomain.ErrInvalidTrialDays
	}

	now := s.clock.Now().UTC()
	existing, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var sub *billingdomain.Subscription
	switch {
	case existing == nil:
		sub = &billingdomain.Subscription{ID: s.genID.Generate(), UserID: userID, CreatedAt: now}
		startSubscription(sub, tier.Code, cycle, req.TrialDays, now)
		if err := s.store.Insert(ctx, sub); err != nil {
			return nil, err
		}
	case existing.Live():
		return nil, billingdomain.ErrDuplicateSubscription
	default:
		sub = &billingdomain.Subscription{ID: existing.ID, UserID: userID, CreatedAt: existing.CreatedAt}
		startSubscription(sub, tier.Code, cycle, req.TrialDays, now)
		if err := s.store.Upsert(ctx, sub); err != nil {
			return nil, err
		}
		s.metrics.RecordSubscriptionTransition(ctx, string(billingdomain.SubscriptionStatusCanceled), string(sub.Status))
	}

	obslogger.WithContext(ctx, s.log).Info("subscription created",
		zap.String("user_id", userID),
		zap.String("tier", sub.Tier),
		zap.String("billing_cycle", string(sub.BillingCycle)),
		zap.String("status", string(sub.Status)),
	)
	return sub, nil
}

func startSubscription(sub *billingdomain.Subscription, tier string, cycle billingdomain.BillingCycle, trialDays int, now time.Time) {
	sub.Tier = tier
	sub.BillingCycle = cycle
	sub.CanceledAt = nil
	sub.TrialEndsAt = nil
	sub.CurrentPeriodStart = now
	sub.UpdatedAt = now
	if trialDays > 0 {
		trialEnd := now.AddDate(0, 0, trialDays)
		sub.Status = billingdomain.SubscriptionStatusTrialing
		sub.TrialEndsAt = &trialEnd
		sub.CurrentPeriodEnd = trialEnd
		return
	}
	sub.Status = billingdomain.SubscriptionStatusActive
	sub.CurrentPeriodEnd = cycle.Advance(now)
}

// GetSubscription returns the user's subscription, converting an expired trial
// to active on the way.
func (s *Service) GetSubscription(ctx context.Context, userID string) (*billingdomain.Subscription, error) {
	sub, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, billingdomain.ErrSubscriptionNotFound
	}
	return sub, nil
}

// current is GetSubscription without the not-found error.
func (s *Service) current(ctx context.Context, userID string) (*billingdomain.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, billingdomain.ErrInvalidUser
	}
	sub, err := s.store.FindByUserID(ctx, userID)
	if err != nil || sub == nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if !sub.TrialExpired(now) {
		return sub, nil
	}

	expired := false
	updated, err := s.store.Update(ctx, userID, func(current *billingdomain.Subscription) error {
		expired = expireTrial(current, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.recordTransition(ctx, userID, billingdomain.SubscriptionStatusTrialing, updated.Status)
	}
	return updated, nil
}

func (s *Service) ExpireTrials(ctx context.Context, limit int) (int, error) {
	subs, err := s.store.ListExpiredTrials(ctx, s.clock.Now().UTC(), limit)
	if err != nil {
		return 0, err
	}
	var (
		expired int
		errs    error
	)
	for _, sub := range subs {
		updated, err := s.current(ctx, sub.UserID)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("expire trial %s: %w", sub.UserID, err))
			continue
		}
		if updated != nil && updated.Status != billingdomain.SubscriptionStatusTrialing {
			expired++
		}
	}
	return expired, errs
}

func expireTrial(sub *billingdomain.Subscription, now time.Time) bool {
	if !sub.TrialExpired(now) {
		return false
	}
	start := *sub.TrialEndsAt
	sub.Status = billingdomain.SubscriptionStatusActive
	sub.CurrentPeriodStart = start
	sub.CurrentPeriodEnd = sub.BillingCycle.Advance(start)
	sub.UpdatedAt = now
	return true
}

func (s *Service) CheckQuota(ctx context.Context, userID string) (billingdomain.QuotaDecision, error) {
	decision, _, _, err := s.evaluate(ctx, userID)
	return decision, err
}

// EnforceQuota is CheckQuota that fails with ErrQuotaExceeded when the user is over the limit.
func (s *Service) EnforceQuota(ctx context.Context, userID string) (billingdomain.QuotaDecision, error) {
	decision, err := s.CheckQuota(ctx, userID)
	if err != nil {
		return decision, err
	}
	if !decision.Allowed {
		return decision, fmt.Errorf("%w: %d of %d messages used in %s",
			billingdomain.ErrQuotaExceeded, decision.MessagesUsed, decision.MessagesLimit, decision.Period)
	}
	return decision, nil
}

func (s *Service) evaluate(ctx context.Context, userID string) (billingdomain.QuotaDecision, *billingdomain.Subscription, usagedomain.UsageAggregate, error) {
	sub, err := s.current(ctx, userID)
	if err != nil {
		return billingdomain.QuotaDecision{}, nil, usagedomain.UsageAggregate{}, err
	}
	tier := s.effectiveTier(ctx, sub)

	agg, err := s.usage.GetUsageSummary(ctx, userID)
	if err != nil {
		return billingdomain.QuotaDecision{}, nil, usagedomain.UsageAggregate{}, err
	}

	decision := billingdomain.Decide(tier, agg)
	decision.UserID = strings.TrimSpace(userID)
	decision.Status = billingdomain.SubscriptionStatusNone
	if sub != nil {
		decision.Status = sub.Status
		decision.TrialDaysRemaining = sub.TrialDaysRemaining(s.clock.Now())
	}
	s.metrics.RecordQuotaDecision(ctx, decision.Tier, decision.Allowed)

	if !decision.Allowed {
		obslogger.WithContext(ctx, s.log).Info("quota exceeded",
			zap.String("user_id", decision.UserID),
			zap.String("tier", decision.Tier),
			zap.Int64("messages_used", decision.MessagesUsed),
			zap.Int64("messages_limit", decision.MessagesLimit),
		)
	}
	return decision, sub, agg, nil
}

// effectiveTier is the subscribed tier for live subscriptions and the free tier otherwise.
func (s *Service) effectiveTier(ctx context.Context, sub *billingdomain.Subscription) config.Tier {
	free, _ := s.tiers.Tier(config.FreeTier)
	if sub == nil || !sub.Live() {
		return free
	}
	tier, ok := s.tiers.Tier(sub.Tier)
	if !ok {
		obslogger.WithContext(ctx, s.log).Warn("subscribed tier missing from billing config, using free tier",
			zap.String("user_id", sub.UserID),
			zap.String("tier", sub.Tier),
		)
		return free
	}
	return tier
}

func (s *Service) ChangeTier(ctx context.Context, req billingdomain.ChangeTierRequest) (*billingdomain.Subscription, error) {
	tier, err := s.lookupTier(req.Tier)
	if err != nil {
		return nil, err
	}
	var cycle billingdomain.BillingCycle
	if strings.TrimSpace(string(req.BillingCycle)) != "" {
		if cycle, err = normalizeBillingCycle(req.BillingCycle); err != nil {
			return nil, err
		}
	}

	return s.transition(ctx, req.UserID, func(sub *billingdomain.Subscription, now time.Time) error {
		if !sub.Live() {
			return billingdomain.ErrInvalidTransition
		}
		sub.Tier = tier.Code
		if cycle != "" {
			sub.BillingCycle = cycle
		}
		return nil
	})
}

// Activate ends a trial early or recovers a past-due subscription. A trial that
// already ran out is active on its own, and activating it returns it unchanged.
func (s *Service) Activate(ctx context.Context, userID string) (*billingdomain.Subscription, error) {
	return s.transition(ctx, userID, func(sub *billingdomain.Subscription, now time.Time) error {
		if lapsedTrial(sub) {
			return nil
		}
		from := sub.Status
		if err := moveTo(sub, billingdomain.SubscriptionStatusActive); err != nil {
			return err
		}
		if from == billingdomain.SubscriptionStatusTrialing {
			sub.CurrentPeriodStart = now
			sub.CurrentPeriodEnd = sub.BillingCycle.Advance(now)
		}
		return nil
	})
}

// lapsedTrial reports whether sub is still in the first period that followed
// its trial running out.
func lapsedTrial(sub *billingdomain.Subscription) bool {
	return sub.Status == billingdomain.SubscriptionStatusActive &&
		sub.TrialEndsAt != nil &&
		sub.CurrentPeriodStart.Equal(*sub.TrialEndsAt)
}

func (s *Service) MarkPastDue(ctx context.Context, userID string) (*billingdomain.Subscription, error) {
	return s.transition(ctx, userID, func(sub *billingdomain.Subscription, _ time.Time) error {
		return moveTo(sub, billingdomain.SubscriptionStatusPastDue)
	})
}

// Renew records a successful renewal and advances the billing period by one cycle.
func (s *Service) Renew(ctx context.Context, userID string) (*billingdomain.Subscription, error) {
	return s.transition(ctx, userID, func(sub *billingdomain.Subscription, _ time.Time) error {
		switch sub.Status {
		case billingdomain.SubscriptionStatusActive:
		case billingdomain.SubscriptionStatusPastDue:
			if err := moveTo(sub, billingdomain.SubscriptionStatusActive); err != nil {
				return err
			}
		default:
			return billingdomain.ErrInvalidTransition
		}
		sub.CurrentPeriodStart = sub.CurrentPeriodEnd
		sub.CurrentPeriodEnd = sub.BillingCycle.Advance(sub.CurrentPeriodStart)
		return nil
	})
}

func (s *Service) Cancel(ctx context.Context, userID string) (*billingdomain.Subscription, error) {
	return s.transition(ctx, userID, func(sub *billingdomain.Subscription, now time.Time) error {
		if err := moveTo(sub, billingdomain.SubscriptionStatusCanceled); err != nil {
			return err
		}
		sub.CanceledAt = &now
		return nil
	})
}

// transition applies mutate to the user's subscription under the store's row lock.
// An expired trial is converted to active before mutate sees it.
func (s *Service) transition(ctx context.Context, userID string, mutate func(*billingdomain.Subscription, time.Time) error) (*billingdomain.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, billingdomain.ErrInvalidUser
	}
	now := s.clock.Now().UTC()

	var from billingdomain.SubscriptionStatus
	sub, err := s.store.Update(ctx, userID, func(sub *billingdomain.Subscription) error {
		from = sub.Status
		expireTrial(sub, now)
		if err := mutate(sub, now); err != nil {
			return err
		}
		sub.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, billingdomain.ErrInvalidTransition) {
			obslogger.WithContext(ctx, s.log).Info("subscription transition rejected",
				zap.String("user_id", userID),
				zap.String("status", string(from)),
			)
		}
		return nil, err
	}
	if from != sub.Status {
		s.recordTransition(ctx, userID, from, sub.Status)
	}
	return sub, nil
}

func (s *Service) recordTransition(ctx context.Context, userID string, from, to billingdomain.SubscriptionStatus) {
	s.metrics.RecordSubscriptionTransition(ctx, string(from), string(to))
	obslogger.WithContext(ctx, s.log).Info("subscription transitioned",
		zap.String("user_id", userID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
}

func moveTo(sub *billingdomain.Subscription, to billingdomain.SubscriptionStatus) error {
	if !isTransitionAllowed(sub.Status, to) {
		return billingdomain.ErrInvalidTransition
	}
	sub.Status = to
	return nil
}

func isTransitionAllowed(from, to billingdomain.SubscriptionStatus) bool {
	switch from {
	case billingdomain.SubscriptionStatusTrialing:
		return to == billingdomain.SubscriptionStatusActive || to == billingdomain.SubscriptionStatusCanceled
	case billingdomain.SubscriptionStatusActive:
		return to == billingdomain.SubscriptionStatusPastDue || to == billingdomain.SubscriptionStatusCanceled
	case billingdomain.SubscriptionStatusPastDue:
		return to == billingdomain.SubscriptionStatusActive || to == billingdomain.SubscriptionStatusCanceled
	default:
		return false
	}
}

// GetBillingSummary projects the charge for the current usage period: the
// cycle's base price plus message overage. Trials and the free fallback carry
// no base price.
func (s *Service) GetBillingSummary(ctx context.Context, userID string) (billingdomain.BillingSummary, error) {
	decision, sub, agg, err := s.evaluate(ctx, userID)
	if err != nil {
		return billingdomain.BillingSummary{}, err
	}
	tier := s.effectiveTier(ctx, sub)

	var base float64
	if sub != nil && sub.Live() && sub.Status != billingdomain.SubscriptionStatusTrialing {
		base = tier.MonthlyPrice
		if sub.BillingCycle == billingdomain.BillingCycleAnnual {
			base = tier.AnnualPrice
		}
	}
	projected := usagedomain.ToMicros(base) + usagedomain.ToMicros(decision.OverageCost)

	return billingdomain.BillingSummary{
		UserID:          decision.UserID,
		Subscription:    sub,
		Tier:            tier,
		Usage:           agg,
		Quota:           decision,
		BasePrice:       base,
		OverageCost:     decision.OverageCost,
		ProjectedCharge: usagedomain.FromMicros(projected),
		GeneratedAt:     s.clock.Now().UTC(),
	}, nil
}

func (s *Service) ListTiers() []config.Tier {
	tiers := s.tiers.Current().Tiers
	out := make([]config.Tier, len(tiers))
	copy(out, tiers)
	return out
}

func (s *Service) lookupTier(code string) (config.Tier, error) {
	if strings.TrimSpace(code) == "" {
		return config.Tier{}, billingdomain.ErrInvalidTier
	}
	tier, ok := s.tiers.Tier(code)
	if !ok {
		return config.Tier{}, billingdomain.ErrInvalidTier
	}
	return tier, nil
}

func normalizeBillingCycle(cycle billingdomain.BillingCycle) (billingdomain.BillingCycle, error) {
	normalized := billingdomain.BillingCycle(strings.ToLower(strings.TrimSpace(string(cycle))))
	if normalized == "" {
		return billingdomain.BillingCycleMonthly, nil
	}
	if !normalized.Valid() {
		return "", billingdomain.ErrInvalidBillingCycle
	}
	return normalized, nil
}
