package main

import (
	"fmt"
	"io"

	"production-service/internal/config"
	mmysql "production-service/internal/infra/mysql"
	mysqlrepo "production-service/internal/repository/mysql"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	var skipCreate bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database and the production_orders table",
		Long: `Creates the configured database (utf8mb4) when it does not exist, then
creates or alters the production_orders table to match the current schema.

Safe to run multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runMigrate(cmd.OutOrStdout(), cfg, skipCreate)
		},
	}

	cmd.Flags().BoolVar(&skipCreate, "skip-create", false, "do not issue CREATE DATABASE")
	return cmd
}

func runMigrate(out io.Writer, cfg *config.Config, skipCreate bool) error {
	if !skipCreate {
		fmt.Fprintf(out, "Ensuring database %s exists...\n", cfg.Database.DBName)
		if err := mmysql.CreateDatabase(cfg.Database); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	db, err := mmysql.Open(cfg.Database, zap.NewNop())
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer sqlDB.Close()

	fmt.Fprintln(out, "Migrating production_orders...")
	if err := mysqlrepo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(out, "Done.")
	return nil
}
