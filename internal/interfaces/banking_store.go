package interfaces

import (
	"context"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
)

// BankingStore is the storage gateway consumed by the pipeline stages.
// Lookups of missing entities return models.ErrNotFound. Every Save* call is a
// single atomic batch.
type BankingStore interface {
	FindAccountByIBAN(ctx context.Context, iban string) (models.BankAccount, error)
	FindAccountsByOwner(ctx context.Context, personID int64) ([]models.BankAccount, error)
	FindAllPeopleWithAccountsAndFriends(ctx context.Context) ([]models.Person, error)
	FindUnprocessedTransactionsWithSender(ctx context.Context) ([]models.Transaction, error)

	// SaveSettlement writes balances and processed flags together: either
	// both land or neither does.
	SaveSettlement(ctx context.Context, accounts []models.BankAccount, transactions []models.Transaction) error

	// SaveNetWorth and SaveMaxBorrow each write only their own derived field.
	SaveNetWorth(ctx context.Context, people []models.Person) error
	SaveMaxBorrow(ctx context.Context, people []models.Person) error
}

// BankingReader serves the read-only queries of the HTTP API.
type BankingReader interface {
	ListPeople(ctx context.Context) ([]models.Person, error)
	FindPerson(ctx context.Context, id int64) (models.Person, error)
	ListAccounts(ctx context.Context) ([]models.BankAccount, error)
	FindAccountByIBAN(ctx context.Context, iban string) (models.BankAccount, error)
	FindAccountsByOwner(ctx context.Context, personID int64) ([]models.BankAccount, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	FindTransaction(ctx context.Context, id int64) (models.Transaction, error)
	FindTransactionsByAccount(ctx context.Context, iban string) ([]models.Transaction, error)
}

// Store is everything a storage driver provides.
type Store interface {
	BankingStore
	BankingReader
	Close(ctx context.Context) error
}
