package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNetWorthSumsBalances(t *testing.T) {
	accounts := []BankAccount{
		{IBAN: "DE01", Balance: dec("100.25")},
		{IBAN: "DE02", Balance: dec("-20.25")},
	}
	assert.True(t, NetWorth(accounts).Equal(dec("80")))
}

func TestNetWorthFloorsAtZero(t *testing.T) {
	accounts := []BankAccount{
		{IBAN: "DE01", Balance: dec("10")},
		{IBAN: "DE02", Balance: dec("-50")},
	}
	assert.True(t, NetWorth(accounts).IsZero())
	assert.True(t, NetWorth(nil).IsZero())
}

func TestFriendsIsUnionWithoutDuplicates(t *testing.T) {
	p := Person{
		ID:        1,
		HasFriend: []Person{{ID: 2}, {ID: 3}},
		FriendOf:  []Person{{ID: 3}, {ID: 4}},
	}

	var ids []int64
	for _, f := range p.Friends() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []int64{2, 3, 4}, ids)
}

func TestLinkPeopleResolvesBothDirections(t *testing.T) {
	people := []Person{{ID: 2, Name: "B"}, {ID: 1, Name: "A"}}
	accounts := []BankAccount{
		{IBAN: "A1", Balance: dec("100"), OwnerID: 1},
		{IBAN: "B1", Balance: dec("500"), OwnerID: 2},
	}
	edges := []FriendEdge{{PersonID: 1, FriendID: 2}, {PersonID: 1, FriendID: 99}}

	linked := LinkPeople(people, accounts, edges)
	require.Len(t, linked, 2)

	a, b := linked[0], linked[1]
	assert.Equal(t, int64(1), a.ID)
	require.Len(t, a.HasFriend, 1)
	assert.Empty(t, a.FriendOf)
	assert.Equal(t, int64(2), a.HasFriend[0].ID)
	require.Len(t, a.HasFriend[0].BankAccounts, 1)
	assert.Equal(t, "B1", a.HasFriend[0].BankAccounts[0].IBAN)

	assert.Empty(t, b.HasFriend)
	require.Len(t, b.FriendOf, 1)
	assert.Equal(t, int64(1), b.FriendOf[0].ID)
	assert.Len(t, b.BankAccounts, 1)
}

func TestDebitAllowsOverdraft(t *testing.T) {
	a := BankAccount{IBAN: "DE01", Balance: dec("10")}
	a.Debit(dec("25"))
	a.Credit(dec("5"))
	assert.True(t, a.Balance.Equal(dec("-10")))
}
