package models

import "github.com/shopspring/decimal"

// Account statuses
const (
	AccountStatusActive = "active"
	AccountStatusClosed = "closed"
	AccountStatusFrozen = "frozen"
)

// CreditAccount represents a credit account held by a profile
type CreditAccount struct {
	ID             string          `json:"id"`
	ProfileID      string          `json:"profile_id"`
	ProgramLabel   string          `json:"program_label"`
	AccountType    string          `json:"account_type"`
	Status         string          `json:"status"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// Active reports whether the account counts toward the active-account bonus
func (a CreditAccount) Active() bool {
	return a.Status == AccountStatusActive
}

// Utilization returns current balance divided by credit limit, 0 when there is no limit
func (a CreditAccount) Utilization() float64 {
	if !a.CreditLimit.IsPositive() {
		return 0
	}
	return a.CurrentBalance.Div(a.CreditLimit).InexactFloat64()
}
