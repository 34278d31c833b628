// Package app assembles the store, publisher and pipeline from config.
package app

import (
	"context"
	"errors"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/borrow"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/config"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/networth"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/pipeline"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/settlement"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/storage"
)

// App owns the store, the optional publisher and the orchestrator built
// on top of them.
type App struct {
	Store        interfaces.Store
	Orchestrator *pipeline.Orchestrator

	publisher *kafka.Publisher
}

// New opens the configured store and wires the pipeline against it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newWithStore(ctx, cfg, store), nil
}

func newWithStore(ctx context.Context, cfg config.Config, store interfaces.Store) *App {
	a := &App{Store: store}

	opts := []settlement.Option{settlement.WithWorkers(cfg.SettlementWorkers)}
	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = kafka.NewPublisher(cfg.KafkaBrokers)
		opts = append(opts, settlement.WithPublisher(a.publisher, cfg.KafkaTopic))
		logging.FromContext(ctx).WithField("topic", cfg.KafkaTopic).Info("publishing settlement events")
	}

	a.Orchestrator = pipeline.NewOrchestrator(
		settlement.NewEngine(store, opts...),
		networth.NewAggregator(store),
		borrow.NewAggregator(store),
	)
	return a
}

// Close flushes the publisher before closing the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.Store.Close(ctx))
	return errors.Join(errs...)
}
