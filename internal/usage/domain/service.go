package domain

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/consensusai/consensus/pkg/db/pagination"
)

type RecordEventRequest struct {
	UserID         string         `json:"user_id"`
	Type           EventType      `json:"type"`
	Model          string         `json:"model"`
	TokensUsed     int64          `json:"tokens_used"`
	EstimatedCost  float64        `json:"estimated_cost"`
	ActualCost     *float64       `json:"actual_cost"`
	IdempotencyKey string         `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata"`
	RecordedAt     time.Time      `json:"recorded_at"`
}

// Validate normalizes the request in place and reports the first invalid field.
func (r *RecordEventRequest) Validate() error {
	r.UserID = strings.TrimSpace(r.UserID)
	r.Model = strings.TrimSpace(r.Model)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	r.Type = EventType(strings.ToLower(strings.TrimSpace(string(r.Type))))

	if r.UserID == "" {
		return invalid("user_id", CodeRequired)
	}
	if r.Type == "" {
		return invalid("type", CodeRequired)
	}
	if !r.Type.Valid() {
		return invalid("type", CodeUnsupported)
	}
	if r.TokensUsed < 0 {
		return invalid("tokens_used", CodeNegative)
	}
	if r.TokensUsed > MaxTokensPerEvent {
		return invalid("tokens_used", CodeOutOfRange)
	}
	if err := validateCost("estimated_cost", r.EstimatedCost); err != nil {
		return err
	}
	if r.ActualCost != nil {
		if err := validateCost("actual_cost", *r.ActualCost); err != nil {
			return err
		}
	}
	return nil
}

func validateCost(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, CodeNotFinite)
	}
	if v < 0 {
		return invalid(field, CodeNegative)
	}
	if v > MaxCostPerEvent {
		return invalid(field, CodeOutOfRange)
	}
	return nil
}

// RecordUsageRequest describes a message or debate; the event type comes from the call.
type RecordUsageRequest struct {
	UserID         string         `json:"-"`
	Model          string         `json:"model"`
	TokensUsed     int64          `json:"tokens_used"`
	EstimatedCost  float64        `json:"estimated_cost"`
	ActualCost     *float64       `json:"actual_cost"`
	IdempotencyKey string         `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata"`
}

func (r RecordUsageRequest) Event(t EventType) RecordEventRequest {
	return RecordEventRequest{
		UserID:         r.UserID,
		Type:           t,
		Model:          r.Model,
		TokensUsed:     r.TokensUsed,
		EstimatedCost:  r.EstimatedCost,
		ActualCost:     r.ActualCost,
		IdempotencyKey: r.IdempotencyKey,
		Metadata:       r.Metadata,
	}
}

type RecordUsageResponse struct {
	Event        UsageEvent     `json:"event"`
	Usage        UsageAggregate `json:"usage"`
	Deduplicated bool           `json:"deduplicated"`
}

type ListEventsRequest struct {
	UserID    string    `json:"user_id"`
	Period    string    `json:"period"`
	Type      EventType `json:"type"`
	PageToken string    `json:"page_token"`
	PageSize  int32     `json:"page_size"`
}

type ListEventsResponse struct {
	pagination.PageInfo
	Events []UsageEvent `json:"events"`
}

// Recorder validates and appends events to the log. It never touches aggregates.
type Recorder interface {
	RecordEvent(ctx context.Context, req RecordEventRequest) (*UsageEvent, error)
}

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

// Tracker records usage and serves the per-period aggregates folded from the log.
type Tracker interface {
	Record(ctx context.Context, req RecordEventRequest) (*RecordUsageResponse, error)
	RecordMessage(ctx context.Context, req RecordUsageRequest) (*RecordUsageResponse, error)
	RecordDebate(ctx context.Context, req RecordUsageRequest) (*RecordUsageResponse, error)
	GetUsageSummary(ctx context.Context, userID string) (UsageAggregate, error)
	GetUsageForPeriod(ctx context.Context, userID string, period string) (UsageAggregate, error)
	GetUsageHistory(ctx context.Context, userID string) ([]UsageAggregate, error)
	ListEvents(ctx context.Context, req ListEventsRequest) (ListEventsResponse, error)
}

// TierResolver reports the tier a user is billed under. Implemented by billing.
type TierResolver interface {
	TierFor(ctx context.Context, userID string) (string, error)
}
