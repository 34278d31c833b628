// Command pipeline runs the settlement pipeline once and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/app"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/config"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	level := flag.String("level", "3", "highest process level to run (1 settlement, 2 net worth, 3 borrow capacity)")
	flag.Parse()

	if err := run(*envFile, *level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(envFile, level string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	entry := logrus.NewEntry(logger).WithField("trigger", "cli")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PipelineTimeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, entry)

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(context.Background()); err != nil {
			entry.WithError(err).Error("failed to close application")
		}
	}()

	summary, err := application.Orchestrator.RunRaw(ctx, level)
	if err != nil {
		return err
	}
	fmt.Println(summary.Message())
	return nil
}
