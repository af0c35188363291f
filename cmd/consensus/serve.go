package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/consensusai/consensus/internal/billing"
	"github.com/consensusai/consensus/internal/clock"
	"github.com/consensusai/consensus/internal/config"
	"github.com/consensusai/consensus/internal/migration"
	"github.com/consensusai/consensus/internal/observability"
	"github.com/consensusai/consensus/internal/pricing"
	"github.com/consensusai/consensus/internal/providers/pdf"
	"github.com/consensusai/consensus/internal/ratelimit"
	"github.com/consensusai/consensus/internal/scheduler"
	"github.com/consensusai/consensus/internal/server"
	"github.com/consensusai/consensus/internal/usage"
	"github.com/consensusai/consensus/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		fx.New(appOptions(cfg)...).Run()
		return nil
	},
}

func appOptions(cfg config.Config) []fx.Option {
	opts := []fx.Option{
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		ratelimit.Module,
		pricing.Module,
	}

	if cfg.UsesDatabase() {
		opts = append(opts,
			db.Module,
			migration.Module,
			usage.StoreModule,
			billing.StoreModule,
		)
	} else {
		opts = append(opts,
			usage.MemoryStoreModule,
			billing.MemoryStoreModule,
		)
	}

	return append(opts,
		// Functional Domains
		usage.Module,
		billing.Module,
		pdf.Module,
		scheduler.Module,
		server.Module,
	)
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
