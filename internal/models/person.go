package models

import "github.com/shopspring/decimal"

// Person owns bank accounts and has friends.
//
// NetWorth and MaxBorrow are cached values. They are only rewritten by the
// pipeline stage that owns them and may be stale in between runs.
type Person struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	NetWorth  decimal.Decimal `json:"netWorth"`
	MaxBorrow decimal.Decimal `json:"maxBorrow"`

	// HasFriend and FriendOf are the two recorded directions of the friend
	// relation. They are only populated by queries that resolve friends.
	HasFriend    []Person      `json:"hasFriend,omitempty"`
	FriendOf     []Person      `json:"friendOf,omitempty"`
	BankAccounts []BankAccount `json:"bankAccounts,omitempty"`
}

// Friends returns the union of both friend directions, each friend once.
func (p Person) Friends() []Person {
	seen := make(map[int64]struct{}, len(p.HasFriend)+len(p.FriendOf))
	friends := make([]Person, 0, len(p.HasFriend)+len(p.FriendOf))
	for _, group := range [][]Person{p.HasFriend, p.FriendOf} {
		for _, f := range group {
			if _, ok := seen[f.ID]; ok {
				continue
			}
			seen[f.ID] = struct{}{}
			friends = append(friends, f)
		}
	}
	return friends
}

// FriendEdge is one recorded "PersonID has FriendID as a friend" row.
type FriendEdge struct {
	PersonID int64
	FriendID int64
}
