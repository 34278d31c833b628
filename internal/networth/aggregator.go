// Package networth recomputes the cached net worth of every person.
package networth

import (
	"context"
	"fmt"

	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
)

// Aggregator owns the cached net worth field. It never writes max borrow.
type Aggregator struct {
	store interfaces.BankingStore // storage gateway, read once and written once per run
}

// NewAggregator creates an Aggregator on top of any store implementation
// (memory, postgres, mongo).
func NewAggregator(store interfaces.BankingStore) *Aggregator {
	return &Aggregator{store: store}
}

// Recompute sets every person's net worth to the floored sum of their account
// balances and writes the net worth of all people in one batch. It returns how
// many people were updated.
func (a *Aggregator) Recompute(ctx context.Context) (int, error) {
	people, err := a.store.FindAllPeopleWithAccountsAndFriends(ctx)
	if err != nil {
		return 0, fmt.Errorf("load people: %w", err)
	}

	for i := range people {
		people[i].NetWorth = models.NetWorth(people[i].BankAccounts)
	}

	if err := a.store.SaveNetWorth(ctx, people); err != nil {
		return 0, fmt.Errorf("save net worth: %w", err)
	}

	logging.FromContext(ctx).WithField("stage", "net_worth").WithField("people", len(people)).Info("net worth recomputed")
	return len(people), nil
}
