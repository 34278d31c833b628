// Package settlement applies unprocessed transactions to account balances.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/metrics"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models/events"
)

// DefaultTopic is where settlement events go unless WithPublisher names another.
const DefaultTopic = "transaction_settled"

// Stats summarises one SettleAll call.
type Stats struct {
	Selected        int `json:"selected"`
	Settled         int `json:"settled"`
	External        int `json:"external"`
	AccountsTouched int `json:"accountsTouched"`
}

// Engine settles every unprocessed transaction in one batch.
type Engine struct {
	store     interfaces.BankingStore   // storage gateway, written once per run
	publisher interfaces.EventPublisher // optional, nil disables events
	topic     string                    // topic for TransactionSettled events
	workers   int                       // transactions settled concurrently
	now       func() time.Time          // clock for event timestamps
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher makes the engine emit a TransactionSettled event per
// transaction once the batch is written.
func WithPublisher(publisher interfaces.EventPublisher, topic string) Option {
	return func(e *Engine) {
		e.publisher = publisher
		if topic != "" {
			e.topic = topic
		}
	}
}

// WithWorkers sets how many transactions are settled concurrently.
// Values below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// NewEngine creates an Engine that settles sequentially and publishes nothing
// unless options say otherwise.
func NewEngine(store interfaces.BankingStore, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		topic:   DefaultTopic,
		workers: 1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SettleAll debits senders, credits known targets and marks every selected
// transaction processed. Balances and flags are written in one batch at the
// end; nothing is written when any transaction fails.
func (e *Engine) SettleAll(ctx context.Context) (Stats, error) {
	logger := logging.FromContext(ctx).WithField("stage", "settlement")

	txs, err := e.store.FindUnprocessedTransactionsWithSender(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("find unprocessed transactions: %w", err)
	}

	stats := Stats{Selected: len(txs)}
	if len(txs) == 0 {
		logger.Debug("no unprocessed transactions")
		return stats, nil
	}

	ws := newWorkingSet(e.store)
	external := make([]bool, len(txs)) // indexed like txs, one writer per slot

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range txs {
		g.Go(func() error {
			ext, err := e.settle(gctx, logger, ws, &txs[i])
			if err != nil {
				return err
			}
			external[i] = ext
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	accounts := ws.touched()
	if err := e.save(ctx, accounts, txs); err != nil {
		return stats, err
	}

	stats.Settled = len(txs)
	stats.AccountsTouched = len(accounts)
	for _, ext := range external {
		if ext {
			stats.External++
		}
		metrics.RecordSettlement(ext)
	}

	e.publish(ctx, logger, txs, external)

	logger.WithFields(logrus.Fields{
		"settled":          stats.Settled,
		"external":         stats.External,
		"accounts_touched": stats.AccountsTouched,
	}).Info("settlement batch written")
	return stats, nil
}

// settle applies one transaction to the working set and reports whether its
// target was external.
func (e *Engine) settle(ctx context.Context, logger *logrus.Entry, ws *workingSet, tx *models.Transaction) (bool, error) {
	unlock := ws.lock(tx.SenderIBAN, tx.TargetIBAN)
	defer unlock()

	sender, err := ws.account(ctx, tx.SenderIBAN)
	if err != nil {
		return false, fmt.Errorf("transaction %d: load sender %s: %w", tx.ID, tx.SenderIBAN, err)
	}
	if sender == nil {
		return false, fmt.Errorf("transaction %d: sender %s: %w", tx.ID, tx.SenderIBAN, models.ErrNotFound)
	}

	target, err := ws.account(ctx, tx.TargetIBAN)
	if err != nil {
		return false, fmt.Errorf("transaction %d: load target %s: %w", tx.ID, tx.TargetIBAN, err)
	}

	// overdraft is allowed
	sender.Debit(tx.Amount)

	external := target == nil
	if external {
		logger.WithFields(logrus.Fields{
			"transaction_id": tx.ID,
			"sender_iban":    tx.SenderIBAN,
			"target_iban":    tx.TargetIBAN,
			"amount":         tx.Amount.String(),
		}).Info("target IBAN is external, no account credited")
	} else {
		target.Credit(tx.Amount)
	}

	tx.Processed = true
	return external, nil
}

// save writes balances and processed flags in a single store batch, so a
// failed write leaves every transaction pending with its balances unchanged.
func (e *Engine) save(ctx context.Context, accounts []models.BankAccount, txs []models.Transaction) error {
	if err := e.store.SaveSettlement(ctx, accounts, txs); err != nil {
		return fmt.Errorf("save settlement batch: %w", err)
	}
	return nil
}

// publish runs after the batch is committed, so a failure here can only be
// reported.
func (e *Engine) publish(ctx context.Context, logger *logrus.Entry, txs []models.Transaction, external []bool) {
	if e.publisher == nil {
		return
	}

	settledAt := e.now().UTC()
	for i, tx := range txs {
		event := events.TransactionSettled{
			TransactionID: tx.ID,
			SenderIBAN:    tx.SenderIBAN,
			TargetIBAN:    tx.TargetIBAN,
			Amount:        tx.Amount,
			External:      external[i],
			SettledAt:     settledAt,
		}
		if err := e.publisher.Publish(ctx, e.topic, event); err != nil {
			metrics.RecordPublishFailure()
			logger.WithError(err).WithField("transaction_id", tx.ID).Warn("failed to publish settlement event")
		}
	}
}
