package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/innovationwizard/orion/internal/config"
	"github.com/innovationwizard/orion/internal/db"
	"github.com/innovationwizard/orion/internal/load"
	"github.com/innovationwizard/orion/internal/migrate"
	"github.com/innovationwizard/orion/internal/normalize"
	"github.com/innovationwizard/orion/internal/project"
	"github.com/innovationwizard/orion/internal/sheet"
	"github.com/innovationwizard/orion/internal/store"
	"github.com/innovationwizard/orion/internal/validate"
)

type loadOptions struct {
	project string
	execute bool
}

func newLoadCmd(cfg config.Config, log *logrus.Logger) *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load <workbook.xlsx>",
		Short: "Parse, validate and load one workbook (dry-run by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd.Context(), cfg, log, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.project, "project", "", "Project profile name (required)")
	cmd.Flags().BoolVar(&opts.execute, "execute", false, "Write to the database (default is dry-run)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runLoad(ctx context.Context, cfg config.Config, log *logrus.Logger, workbook string, opts loadOptions) error {
	profile, err := project.Get(opts.project)
	if err != nil {
		return withCode(exitUsage, err)
	}

	wb, err := sheet.OpenWorkbook(workbook)
	if err != nil {
		return withCode(exitValidation, err)
	}
	defer wb.Close()

	result, err := load.ParseWorkbook(wb, profile, log)
	if err != nil {
		return withCode(exitValidation, err)
	}

	report := validate.Check(result.Records, result.Budget, normalize.New(profile.Tables))
	logReport(log, report)
	if report.Fatal() {
		return withCode(exitValidation, fmt.Errorf("validation failed with %d errors", len(report.Errors())))
	}

	if !opts.execute {
		load.Summarize(result.Records, result.Budget, profile).Log(log)
		return nil
	}

	if err := cfg.RequireDatabase(); err != nil {
		return withCode(exitUsage, err)
	}
	runID := uuid.NewString()
	log.Infof("run %s: loading %q into project %s", runID, filepath.Base(workbook), profile.Name)

	database, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBPingTimeout)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer database.Close()

	if cfg.AutoMigrate {
		applied, err := migrate.Run(ctx, database, cfg.MigrationsDir)
		if err != nil {
			return withCode(exitDB, fmt.Errorf("run migrations: %w", err))
		}
		if len(applied) > 0 {
			log.Infof("applied migrations: %s", strings.Join(applied, ", "))
		}
	}

	st := store.NewPostgres(database, cfg.BatchSize)
	stats, err := load.New(st, profile, log).Run(ctx, result.Records, result.Budget)
	if err != nil {
		return withCode(exitDB, err)
	}

	run := db.RunRecord{
		RunID:    runID,
		Project:  profile.Name,
		Workbook: filepath.Base(workbook),
		Mode:     "execute",
		Payload:  stats,
	}
	if err := st.RecordRun(ctx, run); err != nil {
		log.Warnf("record run audit: %v", err)
	}

	log.Infof("load complete: units=%d clients=%d active=%d cancelled=%d (new %d) payments=%d expected=%d",
		stats.Units, stats.Clients, stats.ActiveSales,
		stats.CancelledInserted+stats.CancelledExisting, stats.CancelledInserted,
		stats.Payments, stats.Expected)
	return nil
}

func logReport(log *logrus.Logger, report *validate.Report) {
	for _, msg := range report.Errors() {
		log.Errorf("validation: %s", msg)
	}
	for _, msg := range report.Warnings() {
		log.Warnf("validation: %s", msg)
	}
	if len(report.Resold) > 0 {
		log.Infof("units with lifecycle history (cancelled, then sold again): %s", strings.Join(report.Resold, ", "))
	}
}
