package settlement

import (
	"context"
	"errors"
	"sort"
	"sync"

	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
)

// workingSet holds every account touched during one settlement stage.
// The first access to an IBAN reads the authoritative row from the store,
// later accesses see the balance as mutated by earlier transactions.
type workingSet struct {
	store interfaces.BankingStore

	mu       sync.Mutex                     // protects accounts and muMap
	accounts map[string]*models.BankAccount // nil value: IBAN known to be external
	muMap    map[string]*sync.Mutex         // one mutex per IBAN
}

func newWorkingSet(store interfaces.BankingStore) *workingSet {
	return &workingSet{
		store:    store,
		accounts: make(map[string]*models.BankAccount),
		muMap:    make(map[string]*sync.Mutex),
	}
}

func (w *workingSet) getAccountLock(iban string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.muMap[iban]; !exists {
		w.muMap[iban] = &sync.Mutex{}
	}
	return w.muMap[iban]
}

// lock acquires the mutexes of all given IBANs in sorted order, so two
// transactions over the same pair of accounts can never deadlock. The same
// IBAN given twice is locked once.
func (w *workingSet) lock(ibans ...string) (unlock func()) {
	unique := make([]string, 0, len(ibans))
	seen := make(map[string]struct{}, len(ibans))
	for _, iban := range ibans {
		if _, ok := seen[iban]; ok {
			continue
		}
		seen[iban] = struct{}{}
		unique = append(unique, iban)
	}
	sort.Strings(unique)

	locks := make([]*sync.Mutex, 0, len(unique))
	for _, iban := range unique {
		mu := w.getAccountLock(iban)
		mu.Lock()
		locks = append(locks, mu)
	}

	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// account returns the working copy for iban, or nil when no account with that
// IBAN exists. The caller must hold the IBAN's lock.
func (w *workingSet) account(ctx context.Context, iban string) (*models.BankAccount, error) {
	w.mu.Lock()
	acc, ok := w.accounts[iban]
	w.mu.Unlock()
	if ok {
		return acc, nil
	}

	found, err := w.store.FindAccountByIBAN(ctx, iban)
	switch {
	case errors.Is(err, models.ErrNotFound):
		acc = nil
	case err != nil:
		return nil, err
	default:
		acc = &found
	}

	w.mu.Lock()
	w.accounts[iban] = acc
	w.mu.Unlock()
	return acc, nil
}

// touched returns the mutated accounts ordered by IBAN. It must only be called
// once every transaction of the stage has finished.
func (w *workingSet) touched() []models.BankAccount {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]models.BankAccount, 0, len(w.accounts))
	for _, acc := range w.accounts {
		if acc != nil {
			out = append(out, *acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IBAN < out[j].IBAN })
	return out
}
