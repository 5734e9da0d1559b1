package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process implementation of every store used by the
// scoring pipeline
type MemoryStore struct {
	mu           sync.Mutex
	profiles     map[string]models.Profile
	accounts     map[string][]models.CreditAccount
	statements   map[string][]models.Statement
	transactions map[string][]models.Transaction
	records      map[string]models.CreditRecord
	schedules    map[string]models.Schedule
	geo          map[string]models.GeoSample
	nextID       int64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:     make(map[string]models.Profile),
		accounts:     make(map[string][]models.CreditAccount),
		statements:   make(map[string][]models.Statement),
		transactions: make(map[string][]models.Transaction),
		records:      make(map[string]models.CreditRecord),
		schedules:    make(map[string]models.Schedule),
		geo:          make(map[string]models.GeoSample),
	}
}

// AddProfile stores a profile
func (m *MemoryStore) AddProfile(p models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// AddAccount stores a credit account under its profile
func (m *MemoryStore) AddAccount(a models.CreditAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ProfileID] = append(m.accounts[a.ProfileID], a)
}

// AddStatement stores a statement
func (m *MemoryStore) AddStatement(s models.Statement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if s.ID == 0 {
		s.ID = m.nextID
	}
	m.statements[s.AccountID] = append(m.statements[s.AccountID], s)
}

// AddTransaction stores a transaction
func (m *MemoryStore) AddTransaction(tx models.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if tx.ID == 0 {
		tx.ID = m.nextID
	}
	m.transactions[tx.AccountID] = append(m.transactions[tx.AccountID], tx)
}

// GetProfile retrieves a profile by id
func (m *MemoryStore) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

// ListAccounts retrieves the credit accounts of a profile
func (m *MemoryStore) ListAccounts(_ context.Context, profileID string) ([]models.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CreditAccount(nil), m.accounts[profileID]...), nil
}

// ListStatements retrieves up to limit statements of an account, newest period end first
func (m *MemoryStore) ListStatements(_ context.Context, accountID string, limit int) ([]models.Statement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	statements := append([]models.Statement(nil), m.statements[accountID]...)
	sort.SliceStable(statements, func(i, j int) bool {
		return statements[i].PeriodEnd.After(statements[j].PeriodEnd)
	})
	if len(statements) > limit {
		statements = statements[:limit]
	}
	return statements, nil
}

// SumPayments sums payment transactions of an account posted in [from, to)
func (m *MemoryStore) SumPayments(_ context.Context, accountID string, from, to time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, tx := range m.transactions[accountID] {
		if tx.Type == models.TransactionTypePayment && !tx.PostedAt.Before(from) && tx.PostedAt.Before(to) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

// FindByHashedID retrieves a credit record by the hash of its national identifier
func (m *MemoryStore) FindByHashedID(_ context.Context, hashedID string) (*models.CreditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[hashedID]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

// CreateCreditRecord inserts a new credit record and returns its id
func (m *MemoryStore) CreateCreditRecord(_ context.Context, rec *models.CreditRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.HashedID]; ok {
		return "", ErrAlreadyExists
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[rec.HashedID] = copyRecord(*rec)
	return rec.ID, nil
}

// UpdateCreditRecord replaces the computed fields of a credit record if its version matches
func (m *MemoryStore) UpdateCreditRecord(_ context.Context, id string, expectedVersion int64, patch models.CreditRecordPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hashed, rec := range m.records {
		if rec.ID != id {
			continue
		}
		if rec.Version != expectedVersion {
			return ErrVersionConflict
		}
		rec.History = append([]models.CreditHistoryEntry(nil), patch.History...)
		rec.PaymentLevels = append([]models.AccountPaymentRating(nil), patch.PaymentLevels...)
		rec.Metrics = patch.Metrics
		rec.FinalScore = patch.FinalScore
		rec.Version++
		rec.UpdatedAt = time.Now().UTC()
		m.records[hashed] = rec
		return nil
	}
	return ErrVersionConflict
}

// ListEnabledSchedules retrieves every enabled schedule
func (m *MemoryStore) ListEnabledSchedules(_ context.Context) ([]models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Schedule
	for _, s := range m.schedules {
		if s.Enabled {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetSchedule retrieves the schedule of a profile
func (m *MemoryStore) GetSchedule(_ context.Context, profileID string) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[profileID]
	if !ok {
		return nil, fmt.Errorf("schedule for profile %s: %w", profileID, ErrNotFound)
	}
	return &s, nil
}

// SaveSchedule creates or updates the schedule of a profile, keeping its last run
func (m *MemoryStore) SaveSchedule(_ context.Context, s *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.schedules[s.ProfileID]; ok {
		s.ID = existing.ID
		s.LastRunAt = existing.LastRunAt
	} else if s.ID == 0 {
		m.nextID++
		s.ID = m.nextID
	}
	m.schedules[s.ProfileID] = *s
	return nil
}

// StampLastRun records a successful scheduled run
func (m *MemoryStore) StampLastRun(_ context.Context, scheduleID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for profileID, s := range m.schedules {
		if s.ID == scheduleID {
			t := at
			s.LastRunAt = &t
			m.schedules[profileID] = s
			return nil
		}
	}
	return fmt.Errorf("schedule %d: %w", scheduleID, ErrNotFound)
}

// LastSample returns the previous sample of a card, or nil when none is recorded
func (m *MemoryStore) LastSample(_ context.Context, cardID string) (*models.GeoSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.geo[cardID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// SaveSample records the latest sample of a card
func (m *MemoryStore) SaveSample(_ context.Context, cardID string, sample models.GeoSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geo[cardID] = sample
	return nil
}

func copyRecord(rec models.CreditRecord) models.CreditRecord {
	rec.History = append([]models.CreditHistoryEntry(nil), rec.History...)
	rec.PaymentLevels = append([]models.AccountPaymentRating(nil), rec.PaymentLevels...)
	return rec
}
