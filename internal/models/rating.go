package models

// Rating is a categorical payment-behavior grade, R1 best to R9 worst
type Rating string

const (
	RatingR1 Rating = "R1"
	RatingR2 Rating = "R2"
	RatingR3 Rating = "R3"
	RatingR4 Rating = "R4"
	RatingR5 Rating = "R5"
	RatingR7 Rating = "R7"
	RatingR8 Rating = "R8"
	RatingR9 Rating = "R9"
)

var ratingOrder = map[Rating]int{
	RatingR1: 0,
	RatingR2: 1,
	RatingR3: 2,
	RatingR4: 3,
	RatingR5: 4,
	RatingR7: 5,
	RatingR8: 6,
	RatingR9: 7,
}

// Valid reports whether r is one of the known categories
func (r Rating) Valid() bool {
	_, ok := ratingOrder[r]
	return ok
}

// Worse reports whether r ranks strictly below other in the fixed order
func (r Rating) Worse(other Rating) bool {
	return ratingOrder[r] > ratingOrder[other]
}

// WorstOf returns the worse of two ratings; ties keep a
func WorstOf(a, b Rating) Rating {
	if b.Worse(a) {
		return b
	}
	return a
}

// RatingStats holds the behavioral counters behind an account rating
type RatingStats struct {
	MonthsReviewed   int     `json:"months_reviewed"`
	OnTime           int     `json:"on_time"`
	Late             int     `json:"late"`
	Missed           int     `json:"missed"`
	Utilization      float64 `json:"utilization"`
	RecentRatio      float64 `json:"recent_ratio"`
	PreviousRatio    float64 `json:"previous_ratio"`
	RecentReviewed   int     `json:"recent_reviewed"`
	PreviousReviewed int     `json:"previous_reviewed"`
}

// AccountPaymentRating is the derived rating of one credit account
type AccountPaymentRating struct {
	AccountID    string      `json:"account_id"`
	ProgramLabel string      `json:"program_label"`
	AccountType  string      `json:"account_type"`
	Active       bool        `json:"active"`
	Rating       Rating      `json:"rating"`
	Stats        RatingStats `json:"stats"`
}
