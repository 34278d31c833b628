// Package borrow recomputes how much each person can borrow from friends.
package borrow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
)

// Aggregator owns the cached max borrow field. It never writes net worth.
type Aggregator struct {
	store interfaces.BankingStore // storage gateway, read once and written once per run
}

// NewAggregator creates an Aggregator on top of any store implementation.
func NewAggregator(store interfaces.BankingStore) *Aggregator {
	return &Aggregator{store: store}
}

// Recompute sets every person's max-borrow and writes the max-borrow of all
// people in one batch. It returns how many people were updated.
func (a *Aggregator) Recompute(ctx context.Context) (int, error) {
	people, err := a.store.FindAllPeopleWithAccountsAndFriends(ctx)
	if err != nil {
		return 0, fmt.Errorf("load people with friends: %w", err)
	}

	for i := range people {
		people[i].MaxBorrow = MaxBorrow(people[i])
	}

	if err := a.store.SaveMaxBorrow(ctx, people); err != nil {
		return 0, fmt.Errorf("save max borrow: %w", err)
	}

	logging.FromContext(ctx).WithField("stage", "borrow_capacity").WithField("people", len(people)).Info("borrow capacity recomputed")
	return len(people), nil
}

// MaxBorrow is the largest net worth advantage any friend has over p, and 0
// when no friend is wealthier. Friendship counts in both directions. Net
// worth is always computed from the accounts, never read from the cache.
func MaxBorrow(p models.Person) decimal.Decimal {
	own := models.NetWorth(p.BankAccounts)

	best := decimal.Zero
	for _, f := range p.Friends() {
		diff := models.NetWorth(f.BankAccounts).Sub(own)
		if diff.GreaterThan(best) {
			best = diff
		}
	}
	return best
}
