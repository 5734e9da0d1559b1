package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetProfile retrieves a profile by id
func (r *Repository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	p := &models.Profile{}
	var impossible, veryFast, minDistance sql.NullFloat64
	query := `
		SELECT id, institution_id, institution_name, full_name, email, national_id,
			geo_impossible_kmh, geo_very_fast_kmh, geo_min_distance_km
		FROM credit.profiles
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.InstitutionID, &p.InstitutionName, &p.FullName, &p.Email, &p.NationalID,
			&impossible, &veryFast, &minDistance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if impossible.Valid || veryFast.Valid || minDistance.Valid {
		p.GeoThresholds = &models.GeoOverrides{
			ImpossibleSpeedKmh: nullFloat(impossible),
			VeryFastSpeedKmh:   nullFloat(veryFast),
			DistanceMinKm:      nullFloat(minDistance),
		}
	}
	return p, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// ListAccounts retrieves the credit accounts of a profile
func (r *Repository) ListAccounts(ctx context.Context, profileID string) ([]models.CreditAccount, error) {
	query := `
		SELECT id, profile_id, program_label, account_type, status, credit_limit, current_balance
		FROM credit.accounts
		WHERE profile_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.CreditAccount
	for rows.Next() {
		var a models.CreditAccount
		if err := rows.Scan(&a.ID, &a.ProfileID, &a.ProgramLabel, &a.AccountType, &a.Status, &a.CreditLimit, &a.CurrentBalance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// ListStatements retrieves up to limit statements of an account, newest period end first
func (r *Repository) ListStatements(ctx context.Context, accountID string, limit int) ([]models.Statement, error) {
	query := `
		SELECT id, account_id, period_start, period_end, due_date, minimum_due, closing_balance, closed
		FROM credit.statements
		WHERE account_id = $1
		ORDER BY period_end DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	defer rows.Close()

	var statements []models.Statement
	for rows.Next() {
		var s models.Statement
		if err := rows.Scan(&s.ID, &s.AccountID, &s.PeriodStart, &s.PeriodEnd, &s.DueDate, &s.MinimumDue, &s.ClosingBalance, &s.Closed); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		statements = append(statements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	return statements, nil
}

// SumPayments sums payment transactions of an account posted in [from, to)
func (r *Repository) SumPayments(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit.transactions
		WHERE account_id = $1 AND type = $2 AND posted_at >= $3 AND posted_at < $4`
	err := r.db.QueryRowContext(ctx, query, accountID, models.TransactionTypePayment, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	return sum, nil
}

// FindByHashedID retrieves a credit record by the hash of its national identifier
func (r *Repository) FindByHashedID(ctx context.Context, hashedID string) (*models.CreditRecord, error) {
	rec := &models.CreditRecord{}
	var history, levels, metrics []byte
	query := `
		SELECT id, hashed_id, history, payment_levels, metrics, final_score, version, created_at, updated_at
		FROM credit.credit_records
		WHERE hashed_id = $1`
	err := r.db.QueryRowContext(ctx, query, hashedID).
		Scan(&rec.ID, &rec.HashedID, &history, &levels, &metrics, &rec.FinalScore, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit record: %w", err)
	}
	if err := json.Unmarshal(history, &rec.History); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if err := json.Unmarshal(levels, &rec.PaymentLevels); err != nil {
		return nil, fmt.Errorf("failed to decode payment levels: %w", err)
	}
	if err := json.Unmarshal(metrics, &rec.Metrics); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	return rec, nil
}

// CreateCreditRecord inserts a new credit record and returns its id
func (r *Repository) CreateCreditRecord(ctx context.Context, rec *models.CreditRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	history, levels, metrics, err := encodeRecord(rec.History, rec.PaymentLevels, rec.Metrics)
	if err != nil {
		return "", err
	}
	query := `
		INSERT INTO credit.credit_records (id, hashed_id, history, payment_levels, metrics, final_score, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (hashed_id) DO NOTHING
		RETURNING version, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, rec.ID, rec.HashedID, history, levels, metrics, rec.FinalScore).
		Scan(&rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrAlreadyExists
	}
	if err != nil {
		return "", fmt.Errorf("failed to create credit record: %w", err)
	}
	return rec.ID, nil
}

// UpdateCreditRecord replaces the computed fields of a credit record in one
// statement, provided its version still equals expectedVersion
func (r *Repository) UpdateCreditRecord(ctx context.Context, id string, expectedVersion int64, patch models.CreditRecordPatch) error {
	history, levels, metrics, err := encodeRecord(patch.History, patch.PaymentLevels, patch.Metrics)
	if err != nil {
		return err
	}
	query := `
		UPDATE credit.credit_records
		SET history = $1, payment_levels = $2, metrics = $3, final_score = $4,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5 AND version = $6`
	res, err := r.db.ExecContext(ctx, query, history, levels, metrics, patch.FinalScore, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update credit record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update credit record: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func encodeRecord(history []models.CreditHistoryEntry, levels []models.AccountPaymentRating, metrics models.CreditMetrics) ([]byte, []byte, []byte, error) {
	if history == nil {
		history = []models.CreditHistoryEntry{}
	}
	if levels == nil {
		levels = []models.AccountPaymentRating{}
	}
	h, err := json.Marshal(history)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode history: %w", err)
	}
	l, err := json.Marshal(levels)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode payment levels: %w", err)
	}
	m, err := json.Marshal(metrics)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode metrics: %w", err)
	}
	return h, l, m, nil
}

// ListEnabledSchedules retrieves every enabled schedule
func (r *Repository) ListEnabledSchedules(ctx context.Context) ([]models.Schedule, error) {
	query := `
		SELECT id, profile_id, enabled, frequency, auto_consent, last_run_at
		FROM credit.schedules
		WHERE enabled
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

// GetSchedule retrieves the schedule of a profile
func (r *Repository) GetSchedule(ctx context.Context, profileID string) (*models.Schedule, error) {
	query := `
		SELECT id, profile_id, enabled, frequency, auto_consent, last_run_at
		FROM credit.schedules
		WHERE profile_id = $1`
	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, profileID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule for profile %s: %w", profileID, ErrNotFound)
	}
	return s, err
}

// SaveSchedule creates or updates the schedule of a profile; last_run_at is left to StampLastRun
func (r *Repository) SaveSchedule(ctx context.Context, s *models.Schedule) error {
	query := `
		INSERT INTO credit.schedules (profile_id, enabled, frequency, auto_consent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile_id) DO UPDATE
		SET enabled = EXCLUDED.enabled, frequency = EXCLUDED.frequency, auto_consent = EXCLUDED.auto_consent
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, s.ProfileID, s.Enabled, string(s.Frequency), s.AutoConsent).Scan(&s.ID); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// StampLastRun records a successful scheduled run
func (r *Repository) StampLastRun(ctx context.Context, scheduleID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE credit.schedules SET last_run_at = $1 WHERE id = $2`, at, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to stamp schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("schedule %d: %w", scheduleID, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	s := &models.Schedule{}
	var frequency string
	var lastRun sql.NullTime
	if err := row.Scan(&s.ID, &s.ProfileID, &s.Enabled, &frequency, &s.AutoConsent, &lastRun); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}
	s.Frequency = models.Frequency(frequency)
	if lastRun.Valid {
		t := lastRun.Time
		s.LastRunAt = &t
	}
	return s, nil
}
