package pdf

import (
	"context"
	"io"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("pdf",
	fx.Provide(New),
)

// Provider renders billing documents.
type Provider interface {
	GenerateStatement(ctx context.Context, summary billingdomain.BillingSummary) (io.Reader, error)
}
