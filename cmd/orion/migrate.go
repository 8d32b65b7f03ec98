package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/innovationwizard/orion/internal/config"
	"github.com/innovationwizard/orion/internal/db"
	"github.com/innovationwizard/orion/internal/migrate"
)

func newMigrateCmd(cfg config.Config, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireDatabase(); err != nil {
				return withCode(exitUsage, err)
			}

			ctx := cmd.Context()
			database, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBPingTimeout)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer database.Close()

			applied, err := migrate.Run(ctx, database, cfg.MigrationsDir)
			if err != nil {
				return withCode(exitDB, fmt.Errorf("run migrations: %w", err))
			}
			if len(applied) == 0 {
				log.Info("schema up to date")
				return nil
			}
			log.Infof("applied migrations: %s", strings.Join(applied, ", "))
			return nil
		},
	}
}
