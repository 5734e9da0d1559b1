package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
)

// Institution identifies the reporting institution of a history merge
type Institution struct {
	ID   string
	Name string
}

// HistoryEntries builds today's history lines for a set of fresh ratings
func HistoryEntries(ratings []models.AccountPaymentRating, inst Institution, today time.Time) []models.CreditHistoryEntry {
	day := dayStart(today)
	entries := make([]models.CreditHistoryEntry, 0, len(ratings))
	for _, r := range ratings {
		entries = append(entries, models.CreditHistoryEntry{
			Date:            day,
			InstitutionID:   inst.ID,
			InstitutionName: inst.Name,
			AccountID:       r.AccountID,
			AccountType:     r.AccountType,
			Rating:          r.Rating,
			Detail: fmt.Sprintf("%s - %s %s: rating %s, %d/%d statements on time",
				inst.Name, r.ProgramLabel, r.AccountType, r.Rating, r.Stats.OnTime, r.Stats.MonthsReviewed),
		})
	}
	return entries
}

// MergeHistory folds freshly computed entries into an existing history.
// Entries of the same institution dated today are replaced, so re-running a
// merge on the same day is a no-op. Entries written without an institution id
// are matched on the institution name inside their detail text.
// The result is sorted newest first.
func MergeHistory(existing, fresh []models.CreditHistoryEntry, inst Institution, today time.Time) []models.CreditHistoryEntry {
	day := dayStart(today)

	merged := make([]models.CreditHistoryEntry, 0, len(existing)+len(fresh))
	seen := make(map[historyKey]bool, len(fresh))
	for _, e := range fresh {
		e.Date = dayStart(e.Date)
		k := keyOf(e)
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, e)
	}

	for _, e := range existing {
		if dayStart(e.Date).Equal(day) && sameInstitution(e, inst) {
			continue
		}
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return merged
}

type historyKey struct {
	date        time.Time
	institution string
	account     string
}

func keyOf(e models.CreditHistoryEntry) historyKey {
	return historyKey{
		date:        dayStart(e.Date),
		institution: e.InstitutionID,
		account:     e.AccountID,
	}
}

func sameInstitution(e models.CreditHistoryEntry, inst Institution) bool {
	if e.InstitutionID != "" {
		return e.InstitutionID == inst.ID
	}
	return inst.Name != "" && strings.Contains(e.Detail, inst.Name)
}
