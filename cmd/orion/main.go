package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/innovationwizard/orion/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Local runs keep credentials in .env; absence is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg.LogLevel)

	root := newRootCmd(cfg, log)
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(exitCode(err))
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func newRootCmd(cfg config.Config, log *logrus.Logger) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "orion",
		Short:         "Load real-estate sales workbooks into Postgres",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Debug logging")
	root.AddCommand(
		newLoadCmd(cfg, log),
		newInspectCmd(),
		newMigrateCmd(cfg, log),
	)
	return root
}
