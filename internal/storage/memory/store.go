package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
)

// MemoryBankingStore is an in-memory implementation of interfaces.Store.
// It keeps people, accounts and transactions in maps and is safe for
// concurrent use. Values are copied in and out so callers never share state
// with the store.
type MemoryBankingStore struct {
	mu           sync.RWMutex                  // protects every map below
	people       map[int64]models.Person       // shallow people, no accounts or friends
	accounts     map[string]models.BankAccount // keyed by IBAN
	transactions map[int64]models.Transaction  // keyed by transaction id
	friends      map[int64]map[int64]struct{}  // person id -> ids recorded as "has friend"

	nextPersonID      int64
	nextTransactionID int64
}

// NewMemoryBankingStore creates and returns an empty MemoryBankingStore.
func NewMemoryBankingStore() *MemoryBankingStore {
	return &MemoryBankingStore{
		people:       make(map[int64]models.Person),
		accounts:     make(map[string]models.BankAccount),
		transactions: make(map[int64]models.Transaction),
		friends:      make(map[int64]map[int64]struct{}),
	}
}

// AddPerson stores a new person and returns its assigned id.
func (m *MemoryBankingStore) AddPerson(name, email string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextPersonID++
	m.people[m.nextPersonID] = models.Person{
		ID:        m.nextPersonID,
		Name:      name,
		Email:     email,
		NetWorth:  decimal.Zero,
		MaxBorrow: decimal.Zero,
	}
	return m.nextPersonID
}

// AddAccount stores an account, replacing any account with the same IBAN.
func (m *MemoryBankingStore) AddAccount(account models.BankAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[account.IBAN] = account
}

// AddTransaction stores an unprocessed transaction and returns its id.
// Ids are assigned monotonically.
func (m *MemoryBankingStore) AddTransaction(senderIBAN, targetIBAN string, amount decimal.Decimal) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTransactionID++
	m.transactions[m.nextTransactionID] = models.Transaction{
		ID:         m.nextTransactionID,
		Amount:     amount,
		SenderIBAN: senderIBAN,
		TargetIBAN: targetIBAN,
	}
	return m.nextTransactionID
}

// AddFriend records that personID has friendID as a friend. Only this
// direction is recorded.
func (m *MemoryBankingStore) AddFriend(personID, friendID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.friends[personID]; !ok {
		m.friends[personID] = make(map[int64]struct{})
	}
	m.friends[personID][friendID] = struct{}{}
}

// FindAccountByIBAN returns models.ErrNotFound when no account has iban.
func (m *MemoryBankingStore) FindAccountByIBAN(ctx context.Context, iban string) (models.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[iban]
	if !ok {
		return models.BankAccount{}, models.ErrNotFound
	}
	return account, nil
}

// FindAccountsByOwner returns the person's accounts ordered by IBAN, empty
// when there are none.
func (m *MemoryBankingStore) FindAccountsByOwner(ctx context.Context, personID int64) ([]models.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.BankAccount, 0)
	for _, a := range m.accounts {
		if a.OwnerID == personID {
			result = append(result, a)
		}
	}
	sortAccounts(result)
	return result, nil
}

// FindAllPeopleWithAccountsAndFriends returns every person with accounts and
// both friend directions linked.
func (m *MemoryBankingStore) FindAllPeopleWithAccountsAndFriends(ctx context.Context) ([]models.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	people := make([]models.Person, 0, len(m.people))
	for _, p := range m.people {
		people = append(people, p)
	}
	accounts := make([]models.BankAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	sortAccounts(accounts)

	// sorted so linked friend slices come out in a stable order
	var edges []models.FriendEdge
	for personID, friendIDs := range m.friends {
		for friendID := range friendIDs {
			edges = append(edges, models.FriendEdge{PersonID: personID, FriendID: friendID})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].PersonID != edges[j].PersonID {
			return edges[i].PersonID < edges[j].PersonID
		}
		return edges[i].FriendID < edges[j].FriendID
	})

	return models.LinkPeople(people, accounts, edges), nil
}

// FindUnprocessedTransactionsWithSender returns pending transactions in id
// order, each carrying a copy of its sender account.
func (m *MemoryBankingStore) FindUnprocessedTransactionsWithSender(ctx context.Context) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Transaction, 0)
	for _, tx := range m.transactions {
		if tx.Processed {
			continue
		}
		sender, ok := m.accounts[tx.SenderIBAN]
		if !ok {
			// inner join semantics: a transaction without a sender row is not selectable
			continue
		}
		tx.SenderAccount = &sender
		result = append(result, tx)
	}
	sortTransactions(result)
	return result, nil
}

// SaveSettlement writes balances and processed flags under one lock, so
// readers see either none or all of the batch.
func (m *MemoryBankingStore) SaveSettlement(ctx context.Context, accounts []models.BankAccount, transactions []models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveAccountsLocked(accounts)
	m.saveTransactionsLocked(transactions)
	return nil
}

// SaveNetWorth writes net worth only. Name, email and friendships belong to
// onboarding, max borrow to its own stage.
func (m *MemoryBankingStore) SaveNetWorth(ctx context.Context, people []models.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range people {
		if stored, ok := m.people[p.ID]; ok {
			stored.NetWorth = p.NetWorth
			m.people[p.ID] = stored
		}
	}
	return nil
}

// SaveMaxBorrow writes max borrow only.
func (m *MemoryBankingStore) SaveMaxBorrow(ctx context.Context, people []models.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range people {
		if stored, ok := m.people[p.ID]; ok {
			stored.MaxBorrow = p.MaxBorrow
			m.people[p.ID] = stored
		}
	}
	return nil
}

func (m *MemoryBankingStore) saveAccountsLocked(accounts []models.BankAccount) {
	for _, a := range accounts {
		m.accounts[a.IBAN] = a
	}
}

func (m *MemoryBankingStore) saveTransactionsLocked(transactions []models.Transaction) {
	for _, tx := range transactions {
		// the sender lives in m.accounts; never store a second copy
		tx.SenderAccount = nil
		m.transactions[tx.ID] = tx
	}
}

func (m *MemoryBankingStore) ListPeople(ctx context.Context) ([]models.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Person, 0, len(m.people))
	for _, p := range m.people {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MemoryBankingStore) FindPerson(ctx context.Context, id int64) (models.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.people[id]
	if !ok {
		return models.Person{}, models.ErrNotFound
	}
	return p, nil
}

func (m *MemoryBankingStore) ListAccounts(ctx context.Context) ([]models.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.BankAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		result = append(result, a)
	}
	sortAccounts(result)
	return result, nil
}

func (m *MemoryBankingStore) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		result = append(result, tx)
	}
	sortTransactions(result)
	return result, nil
}

func (m *MemoryBankingStore) FindTransaction(ctx context.Context, id int64) (models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[id]
	if !ok {
		return models.Transaction{}, models.ErrNotFound
	}
	return tx, nil
}

// FindTransactionsByAccount returns transactions sent from or addressed to iban.
func (m *MemoryBankingStore) FindTransactionsByAccount(ctx context.Context, iban string) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Transaction, 0)
	for _, tx := range m.transactions {
		if tx.SenderIBAN == iban || tx.TargetIBAN == iban {
			result = append(result, tx)
		}
	}
	sortTransactions(result)
	return result, nil
}

func (m *MemoryBankingStore) Close(ctx context.Context) error {
	return nil
}

func sortAccounts(accounts []models.BankAccount) {
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].IBAN < accounts[j].IBAN })
}

func sortTransactions(transactions []models.Transaction) {
	sort.Slice(transactions, func(i, j int) bool { return transactions[i].ID < transactions[j].ID })
}

// Compile-time check: ensure MemoryBankingStore implements the store interfaces
var _ interfaces.Store = (*MemoryBankingStore)(nil)
