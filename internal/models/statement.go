package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statement represents a billing statement of a credit account.
// PeriodStart, PeriodEnd and DueDate are calendar days in UTC.
type Statement struct {
	ID             int64           `json:"id"`
	AccountID      string          `json:"account_id"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	DueDate        time.Time       `json:"due_date"`
	MinimumDue     decimal.Decimal `json:"minimum_due"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Closed         bool            `json:"closed"`
}
