package models

import "github.com/shopspring/decimal"

// BankAccount is keyed by its IBAN. Balance is signed, overdrafts are allowed.
type BankAccount struct {
	IBAN    string          `json:"iban"`
	Balance decimal.Decimal `json:"balance"`
	OwnerID int64           `json:"ownerId"`
}

// Debit takes amount out of the account without any sufficiency check.
func (a *BankAccount) Debit(amount decimal.Decimal) {
	a.Balance = a.Balance.Sub(amount)
}

// Credit adds amount to the account.
func (a *BankAccount) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}
