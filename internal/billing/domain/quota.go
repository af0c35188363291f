package domain

import (
	"github.com/consensusai/consensus/internal/config"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
)

// QuotaDecision is the result of applying a tier's limits to a usage aggregate.
// Limits and remaining counts of config.Unlimited mean no limit applies.
type QuotaDecision struct {
	UserID             string             `json:"user_id"`
	Tier               string             `json:"tier"`
	Status             SubscriptionStatus `json:"status"`
	Period             usagedomain.Period `json:"period"`
	Allowed            bool               `json:"allowed"`
	MessagesUsed       int64              `json:"messages_used"`
	MessagesLimit      int64              `json:"messages_limit"`
	MessagesRemaining  int64              `json:"messages_remaining"`
	DebatesUsed        int64              `json:"debates_used"`
	DebatesLimit       int64              `json:"debates_limit"`
	DebatesRemaining   int64              `json:"debates_remaining"`
	OverageMessages    int64              `json:"overage_messages"`
	OverageDebates     int64              `json:"overage_debates"`
	OverageCost        float64            `json:"overage_cost"`
	TrialDaysRemaining int                `json:"trial_days_remaining"`
}

// Decide applies tier to agg. Messages are denied only once the count exceeds
// the limit; debates are reported but never gate.
func Decide(tier config.Tier, agg usagedomain.UsageAggregate) QuotaDecision {
	d := QuotaDecision{
		UserID:        agg.UserID,
		Tier:          tier.Code,
		Period:        agg.Period,
		Allowed:       true,
		MessagesUsed:  agg.MessageCount,
		MessagesLimit: tier.MonthlyMessages,
		DebatesUsed:   agg.DebateCount,
		DebatesLimit:  tier.MonthlyDebates,
	}
	d.MessagesRemaining, d.OverageMessages = remaining(agg.MessageCount, tier.MonthlyMessages, tier.UnlimitedMessages())
	d.DebatesRemaining, d.OverageDebates = remaining(agg.DebateCount, tier.MonthlyDebates, tier.UnlimitedDebates())

	if !tier.UnlimitedMessages() && agg.MessageCount > tier.MonthlyMessages {
		d.Allowed = false
	}
	overageMicros := usagedomain.ToMicros(tier.OveragePerMessage) * d.OverageMessages
	d.OverageCost = usagedomain.FromMicros(overageMicros)
	return d
}

func remaining(used, limit int64, unlimited bool) (left int64, overage int64) {
	if unlimited {
		return config.Unlimited, 0
	}
	if used > limit {
		return 0, used - limit
	}
	return limit - used, 0
}
