package models

import (
	"fmt"
	"time"
)

// Frequency is how often a profile's pipeline may run automatically
type Frequency string

const (
	FrequencyMinute Frequency = "minute"
	FrequencyHour   Frequency = "hour"
	FrequencyDay    Frequency = "day"
	FrequencyWeek   Frequency = "week"
	FrequencyMonth  Frequency = "month"
)

// ParseFrequency validates a frequency name
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FrequencyMinute, FrequencyHour, FrequencyDay, FrequencyWeek, FrequencyMonth:
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// Schedule is the consent and schedule state of one profile
type Schedule struct {
	ID          int64      `json:"id"`
	ProfileID   string     `json:"profile_id"`
	Enabled     bool       `json:"enabled"`
	Frequency   Frequency  `json:"frequency"`
	AutoConsent bool       `json:"auto_consent"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
}
