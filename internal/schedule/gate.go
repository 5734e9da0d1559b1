// Package schedule decides which profiles are due for an automatic credit
// sync and drives the periodic sweep.
package schedule

import (
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
)

// Month is a flat 30 days, not calendar aware
const Month = 30 * 24 * time.Hour

var frequencyDurations = map[models.Frequency]time.Duration{
	models.FrequencyMinute: time.Minute,
	models.FrequencyHour:   time.Hour,
	models.FrequencyDay:    24 * time.Hour,
	models.FrequencyWeek:   7 * 24 * time.Hour,
	models.FrequencyMonth:  Month,
}

// FrequencyDuration returns the minimum interval between runs for a frequency
func FrequencyDuration(f models.Frequency) (time.Duration, bool) {
	d, ok := frequencyDurations[f]
	return d, ok
}

// IsDue reports whether an enabled schedule has waited long enough since its last run
func IsDue(s models.Schedule, now time.Time) bool {
	if !s.Enabled {
		return false
	}
	interval, ok := FrequencyDuration(s.Frequency)
	if !ok {
		return false
	}
	if s.LastRunAt == nil {
		return true
	}
	return now.Sub(*s.LastRunAt) >= interval
}

// Selection splits the due schedules by whether they may run
type Selection struct {
	Run     []models.Schedule
	Skipped []models.Schedule
}

// DueProfiles selects the schedules due at now. Due schedules without
// explicit auto-consent are skipped; consent is never inferred.
func DueProfiles(schedules []models.Schedule, now time.Time) Selection {
	var sel Selection
	for _, s := range schedules {
		if !IsDue(s, now) {
			continue
		}
		if !s.AutoConsent {
			sel.Skipped = append(sel.Skipped, s)
			continue
		}
		sel.Run = append(sel.Run, s)
	}
	return sel
}
