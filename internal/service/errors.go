package service

import "errors"

var (
	// ErrMissingIdentity means the profile has no national identifier to key its credit record
	ErrMissingIdentity = errors.New("profile has no national identifier")
	// ErrLegacyIdentifier means the stored identifier uses an unsupported encoding and
	// must be re-captured by the institution
	ErrLegacyIdentifier = errors.New("national identifier is stored in a legacy format; re-capture it to enable credit sync")
	// ErrUpstreamRead wraps failures reading profiles, accounts, statements or transactions
	ErrUpstreamRead = errors.New("upstream read failed")
	// ErrConcurrentUpdate means the credit record kept changing under the pipeline
	ErrConcurrentUpdate = errors.New("credit record changed concurrently")
	// ErrInvalidFrequency means a schedule frequency is not one of minute, hour, day, week or month
	ErrInvalidFrequency = errors.New("invalid schedule frequency")
)

// Outcome statuses of a sweep
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Outcome is the result of one profile in a sweep
type Outcome struct {
	ProfileID string `json:"profile_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// Summary is the result of one sweep
type Summary struct {
	RunID    string    `json:"run_id"`
	Outcomes []Outcome `json:"outcomes"`
}

// Count returns the number of outcomes with the given status
func (s *Summary) Count(status string) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
