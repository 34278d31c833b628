package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
)

const (
	queryAccountByIBAN   = `SELECT iban, balance, owner_id FROM bank_account WHERE iban = $1`
	queryAccountsByOwner = `SELECT iban, balance, owner_id FROM bank_account WHERE owner_id = $1 ORDER BY iban`
	queryAllAccounts     = `SELECT iban, balance, owner_id FROM bank_account ORDER BY iban`

	queryAllPeople  = `SELECT id, name, email, net_worth, max_borrow FROM person ORDER BY id`
	queryPersonByID = `SELECT id, name, email, net_worth, max_borrow FROM person WHERE id = $1`
	queryAllFriends = `SELECT person_id, friend_id FROM person_friends ORDER BY person_id, friend_id`

	queryUnprocessed = `SELECT t.id, t.amount, t.processed, t.sender_iban, t.target_iban,
	a.balance AS sender_balance, a.owner_id AS sender_owner_id
	FROM bank_transaction t
	JOIN bank_account a ON a.iban = t.sender_iban
	WHERE NOT t.processed
	ORDER BY t.id`
	queryAllTransactions       = `SELECT id, amount, processed, sender_iban, target_iban FROM bank_transaction ORDER BY id`
	queryTransactionByID       = `SELECT id, amount, processed, sender_iban, target_iban FROM bank_transaction WHERE id = $1`
	queryTransactionsByAccount = `SELECT id, amount, processed, sender_iban, target_iban FROM bank_transaction
	WHERE sender_iban = $1 OR target_iban = $1 ORDER BY id`

	updateBalance   = `UPDATE bank_account SET balance = $1 WHERE iban = $2`
	updateProcessed = `UPDATE bank_transaction SET processed = $1 WHERE id = $2`
	updateNetWorth  = `UPDATE person SET net_worth = $1 WHERE id = $2`
	updateMaxBorrow = `UPDATE person SET max_borrow = $1 WHERE id = $2`
)

type accountRow struct {
	IBAN    string          `db:"iban"`
	Balance decimal.Decimal `db:"balance"`
	OwnerID int64           `db:"owner_id"`
}

func (r accountRow) model() models.BankAccount {
	return models.BankAccount{IBAN: r.IBAN, Balance: r.Balance, OwnerID: r.OwnerID}
}

type personRow struct {
	ID        int64           `db:"id"`
	Name      string          `db:"name"`
	Email     string          `db:"email"`
	NetWorth  decimal.Decimal `db:"net_worth"`
	MaxBorrow decimal.Decimal `db:"max_borrow"`
}

func (r personRow) model() models.Person {
	return models.Person{ID: r.ID, Name: r.Name, Email: r.Email, NetWorth: r.NetWorth, MaxBorrow: r.MaxBorrow}
}

type friendRow struct {
	PersonID int64 `db:"person_id"`
	FriendID int64 `db:"friend_id"`
}

type transactionRow struct {
	ID         int64           `db:"id"`
	Amount     decimal.Decimal `db:"amount"`
	Processed  bool            `db:"processed"`
	SenderIBAN string          `db:"sender_iban"`
	TargetIBAN string          `db:"target_iban"`
}

func (r transactionRow) model() models.Transaction {
	return models.Transaction{
		ID:         r.ID,
		Amount:     r.Amount,
		Processed:  r.Processed,
		SenderIBAN: r.SenderIBAN,
		TargetIBAN: r.TargetIBAN,
	}
}

type unprocessedRow struct {
	transactionRow
	SenderBalance decimal.Decimal `db:"sender_balance"`
	SenderOwnerID int64           `db:"sender_owner_id"`
}

// PostgresBankingStore implements interfaces.Store on sqlx. Each save runs
// in one SQL transaction.
type PostgresBankingStore struct {
	db *sqlx.DB
}

func NewPostgresBankingStore(db *sqlx.DB) *PostgresBankingStore {
	return &PostgresBankingStore{
		db: db,
	}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*PostgresBankingStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return NewPostgresBankingStore(db), nil
}

func (p *PostgresBankingStore) FindAccountByIBAN(ctx context.Context, iban string) (models.BankAccount, error) {
	var row accountRow
	err := p.db.GetContext(ctx, &row, queryAccountByIBAN, iban)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BankAccount{}, models.ErrNotFound
	}
	if err != nil {
		return models.BankAccount{}, fmt.Errorf("find account %s: %w", iban, err)
	}
	return row.model(), nil
}

func (p *PostgresBankingStore) FindAccountsByOwner(ctx context.Context, personID int64) ([]models.BankAccount, error) {
	return p.selectAccounts(ctx, queryAccountsByOwner, personID)
}

func (p *PostgresBankingStore) ListAccounts(ctx context.Context) ([]models.BankAccount, error) {
	return p.selectAccounts(ctx, queryAllAccounts)
}

func (p *PostgresBankingStore) selectAccounts(ctx context.Context, query string, args ...any) ([]models.BankAccount, error) {
	var rows []accountRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}

	accounts := make([]models.BankAccount, 0, len(rows))
	for _, r := range rows {
		accounts = append(accounts, r.model())
	}
	return accounts, nil
}

// FindAllPeopleWithAccountsAndFriends loads people, accounts and friend edges
// with three queries and links them in memory.
func (p *PostgresBankingStore) FindAllPeopleWithAccountsAndFriends(ctx context.Context) ([]models.Person, error) {
	people, err := p.ListPeople(ctx)
	if err != nil {
		return nil, err
	}

	accounts, err := p.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	var friendRows []friendRow
	if err := p.db.SelectContext(ctx, &friendRows, queryAllFriends); err != nil {
		return nil, fmt.Errorf("select friends: %w", err)
	}
	edges := make([]models.FriendEdge, 0, len(friendRows))
	for _, r := range friendRows {
		edges = append(edges, models.FriendEdge{PersonID: r.PersonID, FriendID: r.FriendID})
	}

	return models.LinkPeople(people, accounts, edges), nil
}

func (p *PostgresBankingStore) FindUnprocessedTransactionsWithSender(ctx context.Context) ([]models.Transaction, error) {
	var rows []unprocessedRow
	if err := p.db.SelectContext(ctx, &rows, queryUnprocessed); err != nil {
		return nil, fmt.Errorf("select unprocessed transactions: %w", err)
	}

	txs := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		tx := r.transactionRow.model()
		tx.SenderAccount = &models.BankAccount{IBAN: r.SenderIBAN, Balance: r.SenderBalance, OwnerID: r.SenderOwnerID}
		txs = append(txs, tx)
	}
	return txs, nil
}

// SaveSettlement writes balances and processed flags in one database
// transaction.
func (p *PostgresBankingStore) SaveSettlement(ctx context.Context, accounts []models.BankAccount, transactions []models.Transaction) error {
	return p.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := saveAccounts(ctx, tx, accounts); err != nil {
			return err
		}
		return saveTransactions(ctx, tx, transactions)
	})
}

// SaveNetWorth writes the net_worth column only.
func (p *PostgresBankingStore) SaveNetWorth(ctx context.Context, people []models.Person) error {
	return p.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, person := range people {
			if _, err := tx.ExecContext(ctx, updateNetWorth, person.NetWorth, person.ID); err != nil {
				return fmt.Errorf("update net worth of person %d: %w", person.ID, err)
			}
		}
		return nil
	})
}

// SaveMaxBorrow writes the max_borrow column only.
func (p *PostgresBankingStore) SaveMaxBorrow(ctx context.Context, people []models.Person) error {
	return p.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, person := range people {
			if _, err := tx.ExecContext(ctx, updateMaxBorrow, person.MaxBorrow, person.ID); err != nil {
				return fmt.Errorf("update max borrow of person %d: %w", person.ID, err)
			}
		}
		return nil
	})
}

func saveAccounts(ctx context.Context, tx *sqlx.Tx, accounts []models.BankAccount) error {
	for _, a := range accounts {
		if _, err := tx.ExecContext(ctx, updateBalance, a.Balance, a.IBAN); err != nil {
			return fmt.Errorf("update balance %s: %w", a.IBAN, err)
		}
	}
	return nil
}

func saveTransactions(ctx context.Context, tx *sqlx.Tx, transactions []models.Transaction) error {
	for _, t := range transactions {
		if _, err := tx.ExecContext(ctx, updateProcessed, t.Processed, t.ID); err != nil {
			return fmt.Errorf("update transaction %d: %w", t.ID, err)
		}
	}
	return nil
}

func (p *PostgresBankingStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	dbTx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	if err = fn(dbTx); err != nil {
		return err
	}
	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *PostgresBankingStore) ListPeople(ctx context.Context) ([]models.Person, error) {
	var rows []personRow
	if err := p.db.SelectContext(ctx, &rows, queryAllPeople); err != nil {
		return nil, fmt.Errorf("select people: %w", err)
	}

	people := make([]models.Person, 0, len(rows))
	for _, r := range rows {
		people = append(people, r.model())
	}
	return people, nil
}

func (p *PostgresBankingStore) FindPerson(ctx context.Context, id int64) (models.Person, error) {
	var row personRow
	err := p.db.GetContext(ctx, &row, queryPersonByID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Person{}, models.ErrNotFound
	}
	if err != nil {
		return models.Person{}, fmt.Errorf("find person %d: %w", id, err)
	}
	return row.model(), nil
}

func (p *PostgresBankingStore) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return p.selectTransactions(ctx, queryAllTransactions)
}

func (p *PostgresBankingStore) FindTransaction(ctx context.Context, id int64) (models.Transaction, error) {
	var row transactionRow
	err := p.db.GetContext(ctx, &row, queryTransactionByID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, models.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("find transaction %d: %w", id, err)
	}
	return row.model(), nil
}

func (p *PostgresBankingStore) FindTransactionsByAccount(ctx context.Context, iban string) ([]models.Transaction, error) {
	return p.selectTransactions(ctx, queryTransactionsByAccount, iban)
}

func (p *PostgresBankingStore) selectTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	var rows []transactionRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	txs := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		txs = append(txs, r.model())
	}
	return txs, nil
}

func (p *PostgresBankingStore) Close(ctx context.Context) error {
	return p.db.Close()
}

var _ interfaces.Store = (*PostgresBankingStore)(nil)
