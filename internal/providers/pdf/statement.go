package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	tierconfig "github.com/consensusai/consensus/internal/config"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// StatementData is the printable form of a billing summary.
type StatementData struct {
	UserID      string
	Period      string
	Tier        string
	Status      string
	BillingDate string
	TrialNote   string

	Lines []StatementLine

	BasePrice       string
	OverageCost     string
	ProjectedCharge string
}

type StatementLine struct {
	Description string
	Used        string
	Included    string
	Overage     string
}

func NewStatementData(summary billingdomain.BillingSummary) StatementData {
	q := summary.Quota
	data := StatementData{
		UserID:          summary.UserID,
		Period:          q.Period.String(),
		Tier:            tierName(summary.Tier),
		Status:          strings.ReplaceAll(string(q.Status), "_", " "),
		BillingDate:     summary.GeneratedAt.Format("2006-01-02"),
		BasePrice:       money(summary.BasePrice),
		OverageCost:     money(summary.OverageCost),
		ProjectedCharge: money(summary.ProjectedCharge),
		Lines: []StatementLine{
			{
				Description: "Messages",
				Used:        fmt.Sprintf("%d", q.MessagesUsed),
				Included:    limit(q.MessagesLimit),
				Overage:     fmt.Sprintf("%d", q.OverageMessages),
			},
			{
				Description: "Debates",
				Used:        fmt.Sprintf("%d", q.DebatesUsed),
				Included:    limit(q.DebatesLimit),
				Overage:     fmt.Sprintf("%d", q.OverageDebates),
			},
			{
				Description: "Tokens",
				Used:        fmt.Sprintf("%d", summary.Usage.TokensUsed),
				Included:    "-",
				Overage:     "-",
			},
			{
				Description: "Model usage cost",
				Used:        money(summary.Usage.TotalCost()),
				Included:    "-",
				Overage:     "-",
			},
		},
	}
	if q.TrialDaysRemaining > 0 {
		data.TrialNote = fmt.Sprintf("Trial ends in %d day(s); no base price is charged during the trial.", q.TrialDaysRemaining)
	}
	return data
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, summary billingdomain.BillingSummary) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	statement := NewStatementData(summary)

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "ConsensusAI usage statement", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Account: "+statement.UserID, props.Text{Top: 0}),
			text.New("Usage period: "+statement.Period, props.Text{Top: 5}),
			text.New("Generated: "+statement.BillingDate, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Plan: "+statement.Tier, props.Text{Top: 0, Align: align.Right}),
			text.New("Status: "+statement.Status, props.Text{Top: 5, Align: align.Right}),
		),
	)

	if statement.TrialNote != "" {
		m.AddRow(10, text.NewCol(12, statement.TrialNote, props.Text{Size: 9, Style: fontstyle.Italic}))
	}

	m.AddRow(10,
		text.NewCol(6, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Used", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Included", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Overage", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range statement.Lines {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Used, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Included, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Overage, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Base price", props.Text{Size: 9}),
		text.NewCol(2, statement.BasePrice, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Overage", props.Text{Size: 9}),
		text.NewCol(2, statement.OverageCost, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Projected charge", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, statement.ProjectedCharge, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func tierName(tier tierconfig.Tier) string {
	if tier.Name != "" {
		return tier.Name
	}
	return tier.Code
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func limit(v int64) string {
	if v == tierconfig.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", v)
}
