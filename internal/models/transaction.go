package models

import "github.com/shopspring/decimal"

// Transaction is a transfer from one of our accounts to an IBAN that may or may
// not belong to an account we know about.
type Transaction struct {
	ID         int64           `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Processed  bool            `json:"processed"`
	SenderIBAN string          `json:"senderIban"`
	TargetIBAN string          `json:"targetIban"`

	// SenderAccount is only populated by queries that resolve the sender.
	SenderAccount *BankAccount `json:"senderAccount,omitempty"`
}
