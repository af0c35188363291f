package domain

import (
	"encoding/json"
	"math"
	"sort"
)

// UsageAggregate is the fold of a user's events within one period.
// EventCount versions the aggregate against the log.
type UsageAggregate struct {
	UserID          string `json:"user_id"`
	Tier            string `json:"tier,omitempty"`
	Period          Period `json:"period"`
	MessageCount    int64  `json:"message_count"`
	DebateCount     int64  `json:"debate_count"`
	TokensUsed      int64  `json:"tokens_used"`
	TotalCostMicros int64  `json:"-"`
	EventCount      int64  `json:"event_count"`
}

func EmptyAggregate(userID string, period Period) UsageAggregate {
	return UsageAggregate{UserID: userID, Period: period}
}

func (a UsageAggregate) TotalCost() float64 { return FromMicros(a.TotalCostMicros) }

// Apply folds one event into the aggregate. Events of another user or period are ignored.
func (a *UsageAggregate) Apply(e UsageEvent) bool {
	if e.UserID != a.UserID || !a.Period.Contains(e.RecordedAt) {
		return false
	}
	switch e.Type {
	case EventTypeMessage:
		a.MessageCount++
	case EventTypeDebate:
		a.DebateCount++
	}
	a.TokensUsed = addSaturating(a.TokensUsed, e.TokensUsed)
	a.TotalCostMicros = addSaturating(a.TotalCostMicros, e.ActualCostMicros)
	a.EventCount++
	return true
}

// addSaturating adds a non-negative delta, pinning at math.MaxInt64.
func addSaturating(total, delta int64) int64 {
	if delta <= 0 {
		return total
	}
	if total > math.MaxInt64-delta {
		return math.MaxInt64
	}
	return total + delta
}

// Fold rebuilds the aggregate for period from events.
func Fold(userID string, period Period, events []UsageEvent) UsageAggregate {
	agg := EmptyAggregate(userID, period)
	for _, e := range events {
		agg.Apply(e)
	}
	return agg
}

// FoldAll groups events by period and folds each, oldest period first.
func FoldAll(userID string, events []UsageEvent) []UsageAggregate {
	byPeriod := make(map[Period]*UsageAggregate)
	for _, e := range events {
		if e.UserID != userID {
			continue
		}
		period := PeriodOf(e.RecordedAt)
		agg, ok := byPeriod[period]
		if !ok {
			empty := EmptyAggregate(userID, period)
			agg = &empty
			byPeriod[period] = agg
		}
		agg.Apply(e)
	}
	out := make([]UsageAggregate, 0, len(byPeriod))
	for _, agg := range byPeriod {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

func (a UsageAggregate) MarshalJSON() ([]byte, error) {
	type plain UsageAggregate
	return json.Marshal(struct {
		plain
		TotalCost float64 `json:"total_cost"`
	}{plain(a), a.TotalCost()})
}
