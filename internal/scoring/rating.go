// Package scoring holds the pure credit rating logic: per-account payment
// ratings, the aggregate profile score and the credit history merge.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultStatementLimit is how many statements are reviewed per account
const DefaultStatementLimit = 12

const (
	recentStatements = 3
	lateWindowDays   = 30
)

// lateRatings maps each trailing 30-day window after the due date to the
// rating assigned when the running total first meets the minimum there.
var lateRatings = []models.Rating{
	models.RatingR2,
	models.RatingR3,
	models.RatingR4,
	models.RatingR5,
}

// StatementReader exposes the statement and payment history of credit accounts
type StatementReader interface {
	// ListStatements returns up to limit statements, newest period end first
	ListStatements(ctx context.Context, accountID string, limit int) ([]models.Statement, error)
	// SumPayments sums payment transactions posted in [from, to)
	SumPayments(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error)
}

// statementOutcome is the classification of one reviewed statement
type statementOutcome int

const (
	outcomeOnTime statementOutcome = iota
	outcomeLate
	outcomeMissed
)

// RateAccount reduces the recent statements of one account into a single
// rating. The account rating is the worst rating of any reviewed statement.
// Statements not yet due at asOf whose minimum is still unmet are skipped.
func RateAccount(ctx context.Context, reader StatementReader, account models.CreditAccount, limit int, asOf time.Time) (models.AccountPaymentRating, error) {
	if limit <= 0 {
		limit = DefaultStatementLimit
	}
	result := models.AccountPaymentRating{
		AccountID:    account.ID,
		ProgramLabel: account.ProgramLabel,
		AccountType:  account.AccountType,
		Active:       account.Active(),
		Rating:       models.RatingR1,
	}
	result.Stats.Utilization = account.Utilization()

	statements, err := reader.ListStatements(ctx, account.ID, limit)
	if err != nil {
		return result, fmt.Errorf("failed to list statements for account %s: %w", account.ID, err)
	}
	if len(statements) > limit {
		statements = statements[:limit]
	}

	var onTimeFlags []bool
	for _, st := range statements {
		rating, outcome, pending, err := rateStatement(ctx, reader, st, asOf)
		if err != nil {
			return result, err
		}
		if pending {
			continue
		}
		result.Rating = models.WorstOf(result.Rating, rating)
		result.Stats.MonthsReviewed++
		switch outcome {
		case outcomeOnTime:
			result.Stats.OnTime++
		case outcomeLate:
			result.Stats.Late++
		case outcomeMissed:
			result.Stats.Missed++
		}
		onTimeFlags = append(onTimeFlags, outcome == outcomeOnTime)
	}

	recent := onTimeFlags
	var previous []bool
	if len(onTimeFlags) > recentStatements {
		recent = onTimeFlags[:recentStatements]
		previous = onTimeFlags[recentStatements:]
	}
	result.Stats.RecentReviewed = len(recent)
	result.Stats.RecentRatio = onTimeRatio(recent)
	result.Stats.PreviousReviewed = len(previous)
	result.Stats.PreviousRatio = onTimeRatio(previous)

	return result, nil
}

// rateStatement classifies one statement by when its minimum payment was met.
// An overdue statement is only missed once every late window has closed.
func rateStatement(ctx context.Context, reader StatementReader, st models.Statement, asOf time.Time) (models.Rating, statementOutcome, bool, error) {
	if !st.MinimumDue.IsPositive() {
		return models.RatingR1, outcomeOnTime, false, nil
	}

	due := dayStart(st.DueDate)
	windowEnd := due.AddDate(0, 0, 1)
	paid, err := reader.SumPayments(ctx, st.AccountID, dayStart(st.PeriodStart), windowEnd)
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to sum payments for statement %d: %w", st.ID, err)
	}
	if paid.GreaterThanOrEqual(st.MinimumDue) {
		return models.RatingR1, outcomeOnTime, false, nil
	}
	if asOf.Before(windowEnd) {
		// not due yet
		return "", 0, true, nil
	}

	running := paid
	for _, rating := range lateRatings {
		windowStart := windowEnd
		windowEnd = windowStart.AddDate(0, 0, lateWindowDays)
		sum, err := reader.SumPayments(ctx, st.AccountID, windowStart, windowEnd)
		if err != nil {
			return "", 0, false, fmt.Errorf("failed to sum late payments for statement %d: %w", st.ID, err)
		}
		running = running.Add(sum)
		if running.GreaterThanOrEqual(st.MinimumDue) {
			return rating, outcomeLate, false, nil
		}
		if asOf.Before(windowEnd) {
			// still unpaid inside an open window: late by at least this much
			return rating, outcomeLate, false, nil
		}
	}
	return models.RatingR5, outcomeMissed, false, nil
}

func onTimeRatio(flags []bool) float64 {
	if len(flags) == 0 {
		return 0
	}
	onTime := 0
	for _, ok := range flags {
		if ok {
			onTime++
		}
	}
	return float64(onTime) / float64(len(flags))
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
