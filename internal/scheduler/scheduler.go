// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/pipeline"
)

// Runner runs the pipeline up to a level.
type Runner interface {
	Run(ctx context.Context, level int) (pipeline.Summary, error)
}

// Scheduler never overlaps runs: a tick that fires while the previous run is
// still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	level   int
	timeout time.Duration
	logger  *logrus.Entry
}

func New(runner Runner, level int, timeout time.Duration, logger *logrus.Entry) *Scheduler {
	cronLogger := cron.PrintfLogger(logger.WithField("component", "cron"))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:  runner,
		level:   level,
		timeout: timeout,
		logger:  logger.WithField("component", "scheduler"),
	}
}

// Start registers the run on spec, a standard five field cron expression or
// a descriptor such as "@every 5m", and starts ticking.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return fmt.Errorf("schedule pipeline %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.WithFields(logrus.Fields{"schedule": spec, "level": s.level}).Info("pipeline scheduler started")
	return nil
}

// Stop prevents new runs. The returned context is done once a running
// pipeline has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, s.logger.WithField("trigger", "schedule"))

	if _, err := s.runner.Run(ctx, s.level); err != nil {
		s.logger.WithError(err).Warn("scheduled pipeline run failed")
	}
}
