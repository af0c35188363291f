// Package domain contains the usage event log model and its per-period fold.
package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type EventType string

const (
	EventTypeMessage EventType = "message"
	EventTypeDebate  EventType = "debate"
)

func (t EventType) Valid() bool {
	return t == EventTypeMessage || t == EventTypeDebate
}

// UsageEvent is one immutable entry of the append-only usage log.
// Costs are stored in micro-dollars so folds are exact.
type UsageEvent struct {
	ID                  snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID              string            `gorm:"size:191;not null;index:idx_usage_events_user_recorded,priority:1;uniqueIndex:ux_usage_events_idempotency,priority:1" json:"user_id"`
	Type                EventType         `gorm:"size:32;not null" json:"type"`
	Model               string            `gorm:"size:191;not null;default:''" json:"model,omitempty"`
	TokensUsed          int64             `gorm:"not null;default:0" json:"tokens_used"`
	EstimatedCostMicros int64             `gorm:"not null;default:0" json:"-"`
	ActualCostMicros    int64             `gorm:"not null;default:0" json:"-"`
	IdempotencyKey      *string           `gorm:"size:191;uniqueIndex:ux_usage_events_idempotency,priority:2" json:"idempotency_key,omitempty"`
	Metadata            datatypes.JSONMap `json:"metadata,omitempty"`
	RecordedAt          time.Time         `gorm:"not null;index:idx_usage_events_user_recorded,priority:2" json:"recorded_at"`
	CreatedAt           time.Time         `gorm:"not null" json:"created_at"`
}

func (UsageEvent) TableName() string { return "usage_events" }

func (e UsageEvent) EstimatedCost() float64 { return FromMicros(e.EstimatedCostMicros) }

func (e UsageEvent) ActualCost() float64 { return FromMicros(e.ActualCostMicros) }

func (e UsageEvent) MarshalJSON() ([]byte, error) {
	type plain UsageEvent
	return json.Marshal(struct {
		plain
		EstimatedCost float64 `json:"estimated_cost"`
		ActualCost    float64 `json:"actual_cost"`
	}{plain(e), e.EstimatedCost(), e.ActualCost()})
}

// Per-event bounds. Sums of in-range events stay far from int64 overflow.
const (
	MaxCostPerEvent   = 1e9 // USD
	MaxTokensPerEvent = 1_000_000_000_000

	MaxCostMicrosPerEvent = int64(MaxCostPerEvent * 1e6)
)

// ToMicros converts USD to micro-dollars, rounding half away from zero.
// Values beyond the int64 range saturate instead of wrapping.
func ToMicros(usd float64) int64 {
	micros := math.Round(usd * 1e6)
	switch {
	case micros >= math.MaxInt64:
		return math.MaxInt64
	case micros <= math.MinInt64:
		return math.MinInt64
	}
	return int64(micros)
}

func FromMicros(micros int64) float64 {
	return float64(micros) / 1e6
}
