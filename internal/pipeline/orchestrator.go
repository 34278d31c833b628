// Package pipeline runs settlement and the two aggregation stages in order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/metrics"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/settlement"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/validation"
)

// Stage names, also used as log and metric labels.
const (
	StageSettlement     = "settlement"
	StageNetWorth       = "net_worth"
	StageBorrowCapacity = "borrow_capacity"
)

// MaxLevel is the highest level with its own stage. Higher levels run the
// same stages as MaxLevel.
const MaxLevel = 3

// Settler settles every pending transaction in one batch.
type Settler interface {
	SettleAll(ctx context.Context) (settlement.Stats, error)
}

// Aggregator recomputes one cached person field and returns how many
// people it wrote.
type Aggregator interface {
	Recompute(ctx context.Context) (int, error)
}

// StageError is returned when a stage fails. Stages before it have already
// written their batch.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Summary describes a successful run.
type Summary struct {
	RunID           string           `json:"runId"`
	Requested       int              `json:"requested"`
	Executed        int              `json:"executed"`
	Settlement      settlement.Stats `json:"settlement"`
	NetWorthUpdated int              `json:"netWorthUpdated"`
	BorrowUpdated   int              `json:"borrowUpdated"`
	Duration        time.Duration    `json:"duration"`
}

// Message is the confirmation returned to callers.
func (s Summary) Message() string {
	return fmt.Sprintf("The processes up to process %d ran successfully", s.Executed)
}

// Orchestrator runs the stages in order up to a requested level and stops
// at the first failure.
type Orchestrator struct {
	settler  Settler
	netWorth Aggregator
	borrow   Aggregator
}

// NewOrchestrator wires the stages in their fixed order: settlement, net
// worth, then max borrow.
func NewOrchestrator(settler Settler, netWorth, borrow Aggregator) *Orchestrator {
	return &Orchestrator{
		settler:  settler,
		netWorth: netWorth,
		borrow:   borrow,
	}
}

// RunRaw validates an unparsed level and runs the pipeline.
func (o *Orchestrator) RunRaw(ctx context.Context, raw string) (Summary, error) {
	level, err := validation.ParseID(raw)
	if err != nil {
		metrics.RecordRun("invalid")
		return Summary{}, err
	}
	return o.Run(ctx, int(level))
}

// Run executes settlement, then net worth when level >= 2, then borrow
// capacity when level >= 3. Each stage starts only after the previous one
// has written its batch. The first failing stage aborts the run.
func (o *Orchestrator) Run(ctx context.Context, level int) (Summary, error) {
	if level < 1 {
		metrics.RecordRun("invalid")
		return Summary{}, fmt.Errorf("%w. process level: %d", validation.ErrInvalidID, level)
	}

	summary := Summary{
		RunID:     uuid.NewString(),
		Requested: level,
		Executed:  min(level, MaxLevel),
	}
	logger := logging.FromContext(ctx).WithFields(logrus.Fields{
		"run_id": summary.RunID,
		"level":  level,
	})
	ctx = logging.WithLogger(ctx, logger)
	start := time.Now()

	err := o.stage(ctx, StageSettlement, func(ctx context.Context) error {
		stats, err := o.settler.SettleAll(ctx)
		summary.Settlement = stats
		return err
	})

	if err == nil && level >= 2 {
		err = o.stage(ctx, StageNetWorth, func(ctx context.Context) error {
			n, err := o.netWorth.Recompute(ctx)
			summary.NetWorthUpdated = n
			return err
		})
	}

	if err == nil && level >= 3 {
		err = o.stage(ctx, StageBorrowCapacity, func(ctx context.Context) error {
			n, err := o.borrow.Recompute(ctx)
			summary.BorrowUpdated = n
			return err
		})
	}

	summary.Duration = time.Since(start)
	if err != nil {
		metrics.RecordRun("failed")
		logger.WithError(err).Error("pipeline run failed")
		return Summary{}, err
	}

	metrics.RecordRun("success")
	logger.WithField("duration", summary.Duration.String()).Info(summary.Message())
	return summary, nil
}

func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			return err
		}
		return &StageError{Stage: name, Err: err}
	}
	return nil
}
