package main

import (
	"context"
	"errors"
	"time"

	"github.com/consensusai/consensus/internal/config"
	"github.com/consensusai/consensus/internal/migration"
	"github.com/consensusai/consensus/internal/observability"
	"github.com/consensusai/consensus/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if !cfg.UsesDatabase() {
			return errors.New("migrate requires STORAGE=database")
		}

		app := fx.New(
			fx.Supply(cfg),
			observability.Module,
			db.Module,
			fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
				if err := migration.Apply(conn, cfg.DBType); err != nil {
					return err
				}
				log.Info("database schema up to date", zap.String("type", cfg.DBType))
				return nil
			}),
			fx.NopLogger,
		)
		if err := app.Err(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := app.Start(ctx); err != nil {
			return err
		}
		return app.Stop(ctx)
	},
}
