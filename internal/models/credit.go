package models

import "time"

// CreditHistoryEntry is one line of a profile's credit history: one per
// reporting institution, account and calendar day
type CreditHistoryEntry struct {
	Date            time.Time `json:"date"`
	InstitutionID   string    `json:"institution_id,omitempty"`
	InstitutionName string    `json:"institution_name,omitempty"`
	AccountID       string    `json:"account_id,omitempty"`
	AccountType     string    `json:"account_type"`
	Rating          Rating    `json:"rating,omitempty"`
	Detail          string    `json:"detail"`
}

// ScoreComponents is the audit breakdown of a final score
type ScoreComponents struct {
	Base               int `json:"base"`
	ActiveAccountBonus int `json:"active_account_bonus"`
	RatingPenalty      int `json:"rating_penalty"`
	OnTimeComponent    int `json:"on_time_component"`
	LatePenalty        int `json:"late_penalty"`
	MissedPenalty      int `json:"missed_penalty"`
	UtilizationScore   int `json:"utilization_component"`
	BurstPenalty       int `json:"burst_penalty"`
	Raw                int `json:"raw"`
	Final              int `json:"final"`
}

// CreditMetrics is the aggregate view of a profile that produced its score
type CreditMetrics struct {
	ActiveAccounts      int             `json:"active_accounts"`
	MonthsReviewed      int             `json:"months_reviewed"`
	OnTime              int             `json:"on_time"`
	Late                int             `json:"late"`
	Missed              int             `json:"missed"`
	AverageUtilization  float64         `json:"average_utilization"`
	RecentOnTimeRatio   float64         `json:"recent_on_time_ratio"`
	PreviousOnTimeRatio float64         `json:"previous_on_time_ratio"`
	Components          ScoreComponents `json:"components"`
	FinalScore          int             `json:"final_score"`
	ComputedAt          time.Time       `json:"computed_at"`
}

// CreditRecord is a profile's identity in the shared credit store, keyed by
// the hash of its national identifier
type CreditRecord struct {
	ID            string                 `json:"id"`
	HashedID      string                 `json:"hashed_id"`
	History       []CreditHistoryEntry   `json:"history"`
	PaymentLevels []AccountPaymentRating `json:"payment_levels"`
	Metrics       CreditMetrics          `json:"credit_metrics"`
	FinalScore    int                    `json:"final_score"`
	Version       int64                  `json:"version"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// CreditRecordPatch is the full set of fields replaced by one pipeline run
type CreditRecordPatch struct {
	History       []CreditHistoryEntry
	PaymentLevels []AccountPaymentRating
	Metrics       CreditMetrics
	FinalScore    int
}
