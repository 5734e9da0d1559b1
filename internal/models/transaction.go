package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionTypePayment is the only transaction type that counts toward a payment rating
const TransactionTypePayment = "payment"

// Transaction represents a posted transaction on a credit account
type Transaction struct {
	ID        int64           `json:"id"`
	AccountID string          `json:"account_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	PostedAt  time.Time       `json:"posted_at"`
}
