package models

import "sort"

// LinkPeople resolves accounts and both friend directions for every person.
// Friends carry their own accounts but not their friends. The result is
// ordered by person id.
func LinkPeople(people []Person, accounts []BankAccount, edges []FriendEdge) []Person {
	byOwner := make(map[int64][]BankAccount)
	for _, a := range accounts {
		byOwner[a.OwnerID] = append(byOwner[a.OwnerID], a)
	}

	shallow := make(map[int64]Person, len(people))
	for _, p := range people {
		p.HasFriend, p.FriendOf = nil, nil
		p.BankAccounts = byOwner[p.ID]
		shallow[p.ID] = p
	}

	linked := make(map[int64]*Person, len(people))
	for id, p := range shallow {
		p := p
		linked[id] = &p
	}

	for _, e := range edges {
		owner, ok := linked[e.PersonID]
		if !ok {
			continue
		}
		friend, ok := linked[e.FriendID]
		if !ok {
			continue
		}
		owner.HasFriend = append(owner.HasFriend, shallow[e.FriendID])
		friend.FriendOf = append(friend.FriendOf, shallow[e.PersonID])
	}

	out := make([]Person, 0, len(linked))
	for _, p := range linked {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
