package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
)

func newMockStore(t *testing.T) (*PostgresBankingStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresBankingStore(sqlx.NewDb(db, "postgres")), mock
}

func q(query string) string {
	return regexp.QuoteMeta(query)
}

func TestFindAccountByIBAN(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q(queryAccountByIBAN)).
		WithArgs("DE01").
		WillReturnRows(sqlmock.NewRows([]string{"iban", "balance", "owner_id"}).AddRow("DE01", "120.50", 7))

	acc, err := store.FindAccountByIBAN(context.Background(), "DE01")
	require.NoError(t, err)
	assert.Equal(t, "DE01", acc.IBAN)
	assert.Equal(t, int64(7), acc.OwnerID)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("120.5")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAccountByIBANNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q(queryAccountByIBAN)).
		WithArgs("EXTERNAL").
		WillReturnRows(sqlmock.NewRows([]string{"iban", "balance", "owner_id"}))

	_, err := store.FindAccountByIBAN(context.Background(), "EXTERNAL")
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUnprocessedTransactionsResolvesSender(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q(queryUnprocessed)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "amount", "processed", "sender_iban", "target_iban", "sender_balance", "sender_owner_id",
		}).
			AddRow(1, "50", false, "DE01", "EXTERNAL", "100", 3).
			AddRow(2, "0", false, "DE02", "DE01", "-4.25", 4))

	txs, err := store.FindUnprocessedTransactionsWithSender(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, int64(1), txs[0].ID)
	assert.Equal(t, "EXTERNAL", txs[0].TargetIBAN)
	require.NotNil(t, txs[0].SenderAccount)
	assert.Equal(t, int64(3), txs[0].SenderAccount.OwnerID)
	assert.True(t, txs[1].SenderAccount.Balance.Equal(decimal.RequireFromString("-4.25")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSettlementCommitsOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(updateBalance)).WithArgs(decimal.NewFromInt(50), "DE01").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(updateBalance)).WithArgs(decimal.NewFromInt(20), "DE02").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(updateProcessed)).WithArgs(true, int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveSettlement(context.Background(),
		[]models.BankAccount{
			{IBAN: "DE01", Balance: decimal.NewFromInt(50)},
			{IBAN: "DE02", Balance: decimal.NewFromInt(20)},
		},
		[]models.Transaction{{ID: 9, Processed: true}},
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSettlementRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("serialization failure")

	mock.ExpectBegin()
	mock.ExpectExec(q(updateBalance)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(updateProcessed)).WillReturnError(boom)
	mock.ExpectRollback()

	err := store.SaveSettlement(context.Background(),
		[]models.BankAccount{{IBAN: "DE01", Balance: decimal.NewFromInt(1)}},
		[]models.Transaction{{ID: 1, Processed: true}},
	)
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNetWorthWritesOnlyNetWorth(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(updateNetWorth)).
		WithArgs(decimal.NewFromInt(100), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveNetWorth(context.Background(), []models.Person{
		{ID: 1, NetWorth: decimal.NewFromInt(100), MaxBorrow: decimal.NewFromInt(400)},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMaxBorrowWritesOnlyMaxBorrow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(updateMaxBorrow)).
		WithArgs(decimal.NewFromInt(400), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveMaxBorrow(context.Background(), []models.Person{
		{ID: 1, NetWorth: decimal.NewFromInt(100), MaxBorrow: decimal.NewFromInt(400)},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAllPeopleWithAccountsAndFriends(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q(queryAllPeople)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "net_worth", "max_borrow"}).
			AddRow(1, "A", "a@example.com", "0", "0").
			AddRow(2, "B", "b@example.com", "0", "0"))
	mock.ExpectQuery(q(queryAllAccounts)).
		WillReturnRows(sqlmock.NewRows([]string{"iban", "balance", "owner_id"}).
			AddRow("A1", "100", 1).
			AddRow("B1", "500", 2))
	mock.ExpectQuery(q(queryAllFriends)).
		WillReturnRows(sqlmock.NewRows([]string{"person_id", "friend_id"}).AddRow(1, 2))

	people, err := store.FindAllPeopleWithAccountsAndFriends(context.Background())
	require.NoError(t, err)
	require.Len(t, people, 2)

	require.Len(t, people[0].HasFriend, 1)
	assert.Equal(t, int64(2), people[0].HasFriend[0].ID)
	require.Len(t, people[1].FriendOf, 1)
	assert.Len(t, people[1].FriendOf[0].BankAccounts, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS person").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.ApplySchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
