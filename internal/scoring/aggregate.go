package scoring

import (
	"math"

	"github.com/Dan9191/credit-scoring/internal/models"
)

// Score bounds and base
const (
	MinScore  = 300
	MaxScore  = 900
	BaseScore = 700
)

const (
	activeAccountPoints = 5
	activeAccountCap    = 25
	onTimeScale         = 60
	latePoints          = 10
	lateCap             = 100
	missedPoints        = 20
	missedCap           = 200
	burstPenalty        = 15
	burstRecentMin      = 0.9
	burstPreviousMax    = 0.6
)

var ratingPenalties = map[models.Rating]int{
	models.RatingR1: 0,
	models.RatingR2: 20,
	models.RatingR3: 40,
	models.RatingR4: 60,
	models.RatingR5: 90,
	models.RatingR7: 50,
	models.RatingR8: 80,
	models.RatingR9: 100,
}

// RatingPenalty returns the fixed penalty of a rating
func RatingPenalty(r models.Rating) int {
	return ratingPenalties[r]
}

// Aggregate combines account ratings and portfolio metrics into a bounded score.
// Every component is kept in the returned metrics for auditing.
func Aggregate(ratings []models.AccountPaymentRating, activeAccounts int, averageUtilization float64) models.CreditMetrics {
	metrics := models.CreditMetrics{
		ActiveAccounts:     activeAccounts,
		AverageUtilization: averageUtilization,
	}

	var penalty int
	var recentSum, previousSum float64
	var recentCount, previousCount int
	for _, r := range ratings {
		penalty += RatingPenalty(r.Rating)
		metrics.MonthsReviewed += r.Stats.MonthsReviewed
		metrics.OnTime += r.Stats.OnTime
		metrics.Late += r.Stats.Late
		metrics.Missed += r.Stats.Missed
		if r.Stats.RecentReviewed > 0 {
			recentSum += r.Stats.RecentRatio
			recentCount++
		}
		if r.Stats.PreviousReviewed > 0 {
			previousSum += r.Stats.PreviousRatio
			previousCount++
		}
	}
	if recentCount > 0 {
		metrics.RecentOnTimeRatio = recentSum / float64(recentCount)
	}
	if previousCount > 0 {
		metrics.PreviousOnTimeRatio = previousSum / float64(previousCount)
	}

	var ratio float64
	if metrics.MonthsReviewed > 0 {
		ratio = float64(metrics.OnTime) / float64(metrics.MonthsReviewed)
	}

	c := models.ScoreComponents{
		Base:               BaseScore,
		ActiveAccountBonus: min(activeAccounts*activeAccountPoints, activeAccountCap),
		RatingPenalty:      penalty,
		OnTimeComponent:    int(math.Round((ratio - 0.5) * onTimeScale)),
		LatePenalty:        min(metrics.Late*latePoints, lateCap),
		MissedPenalty:      min(metrics.Missed*missedPoints, missedCap),
		UtilizationScore:   utilizationComponent(averageUtilization),
	}
	// Burst needs both windows observed: good lately after a bad stretch.
	if recentCount > 0 && previousCount > 0 &&
		metrics.RecentOnTimeRatio >= burstRecentMin && metrics.PreviousOnTimeRatio <= burstPreviousMax {
		c.BurstPenalty = burstPenalty
	}
	if c.ActiveAccountBonus < 0 {
		c.ActiveAccountBonus = 0
	}

	c.Raw = c.Base + c.ActiveAccountBonus - c.RatingPenalty + c.OnTimeComponent -
		c.LatePenalty - c.MissedPenalty + c.UtilizationScore - c.BurstPenalty
	c.Final = clampScore(c.Raw)

	metrics.Components = c
	metrics.FinalScore = c.Final
	return metrics
}

// AverageUtilization is the mean utilization of accounts that carry a credit limit
func AverageUtilization(accounts []models.CreditAccount) float64 {
	var sum float64
	var n int
	for _, a := range accounts {
		if !a.CreditLimit.IsPositive() {
			continue
		}
		sum += a.Utilization()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func utilizationComponent(u float64) int {
	switch {
	case u >= 0.8:
		return -40
	case u >= 0.5:
		return -20
	case u >= 0.3:
		return -10
	default:
		return 10
	}
}

func clampScore(s int) int {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}
