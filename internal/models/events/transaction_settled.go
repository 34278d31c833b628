package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSettled is emitted once per transaction after the settlement
// batch has been written.
type TransactionSettled struct {
	TransactionID int64           `json:"transaction_id"`
	SenderIBAN    string          `json:"sender_iban"`
	TargetIBAN    string          `json:"target_iban"`
	Amount        decimal.Decimal `json:"amount"`
	External      bool            `json:"external"`
	SettledAt     time.Time       `json:"settled_at"`
}
