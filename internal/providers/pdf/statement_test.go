package pdf

import (
	"context"
	"io"
	"testing"
	"time"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"github.com/consensusai/consensus/internal/config"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() billingdomain.BillingSummary {
	tier := config.Tier{Code: "professional", Name: "Professional", MonthlyMessages: 5000, MonthlyDebates: config.Unlimited}
	agg := usagedomain.UsageAggregate{
		UserID:          "u1",
		Period:          "2026-10",
		MessageCount:    12,
		DebateCount:     3,
		TokensUsed:      18000,
		TotalCostMicros: 54000,
	}
	quota := billingdomain.Decide(tier, agg)
	quota.Status = billingdomain.SubscriptionStatusPastDue
	quota.TrialDaysRemaining = 0
	return billingdomain.BillingSummary{
		UserID:          "u1",
		Tier:            tier,
		Usage:           agg,
		Quota:           quota,
		BasePrice:       29.99,
		ProjectedCharge: 29.99,
		GeneratedAt:     time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewStatementData(t *testing.T) {
	data := NewStatementData(sampleSummary())

	assert.Equal(t, "2026-10", data.Period)
	assert.Equal(t, "Professional", data.Tier)
	assert.Equal(t, "past due", data.Status)
	assert.Equal(t, "$29.99", data.ProjectedCharge)
	assert.Empty(t, data.TrialNote)
	require.Len(t, data.Lines, 4)
	assert.Equal(t, "12", data.Lines[0].Used)
	assert.Equal(t, "5000", data.Lines[0].Included)
	assert.Equal(t, "unlimited", data.Lines[1].Included)
	assert.Equal(t, "$0.05", data.Lines[3].Used)
}

func TestGenerateStatementProducesPDF(t *testing.T) {
	summary := sampleSummary()
	summary.Quota.TrialDaysRemaining = 3

	r, err := New().GenerateStatement(context.Background(), summary)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, len(body) > 4 && string(body[:4]) == "%PDF", "output is a PDF document")
}

func TestGenerateStatementHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().GenerateStatement(ctx, sampleSummary())
	assert.ErrorIs(t, err, context.Canceled)
}
