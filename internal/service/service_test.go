package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/Dan9191/credit-scoring/internal/geo"
	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/Dan9191/credit-scoring/internal/repository"
	"github.com/Dan9191/credit-scoring/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	testKey    = bytes.Repeat([]byte{7}, 32)
	testSecret = []byte("test-hash-secret")
	fixedNow   = time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(t *testing.T, store *repository.MemoryStore) *Service {
	t.Helper()
	svc := NewService(Stores{
		Profiles:   store,
		Accounts:   store,
		Statements: store,
		Records:    store,
		Schedules:  store,
		GeoSamples: store,
	}, quietLogger(), Options{
		HashSecret:    testSecret,
		EncryptionKey: testKey,
		Geo:           geo.DefaultThresholds(),
	})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func encryptID(t *testing.T, id string) string {
	t.Helper()
	enc, err := utils.Encrypt(id, testKey)
	if err != nil {
		t.Fatalf("failed to encrypt identifier: %v", err)
	}
	return enc
}

func hashID(t *testing.T, id string) string {
	t.Helper()
	h, err := utils.HashNationalID(id, testSecret)
	if err != nil {
		t.Fatalf("failed to hash identifier: %v", err)
	}
	return h
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func addMonthlyStatement(store *repository.MemoryStore, accountID string, m time.Month, minimum int64, paidOn *time.Time) {
	start := day(2025, m, 1)
	store.AddStatement(models.Statement{
		AccountID:   accountID,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, -1),
		DueDate:     day(2025, m, 25),
		MinimumDue:  decimal.NewFromInt(minimum),
		Closed:      true,
	})
	if paidOn != nil {
		store.AddTransaction(models.Transaction{
			AccountID: accountID,
			Type:      models.TransactionTypePayment,
			Amount:    decimal.NewFromInt(minimum),
			PostedAt:  *paidOn,
		})
	}
}

// seedProfile stores a profile with one clean card and one credit line that
// missed its only payment
func seedProfile(t *testing.T, store *repository.MemoryStore, profileID, institution, nationalID string) {
	t.Helper()
	store.AddProfile(models.Profile{
		ID:              profileID,
		InstitutionID:   "inst-" + institution,
		InstitutionName: institution,
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		NationalID:      encryptID(t, nationalID),
	})
	card := profileID + "-card"
	line := profileID + "-line"
	store.AddAccount(models.CreditAccount{
		ID: card, ProfileID: profileID, ProgramLabel: "Classic", AccountType: "credit_card",
		Status: models.AccountStatusActive, CreditLimit: decimal.NewFromInt(1000), CurrentBalance: decimal.NewFromInt(200),
	})
	store.AddAccount(models.CreditAccount{
		ID: line, ProfileID: profileID, ProgramLabel: "Flex", AccountType: "credit_line",
		Status: models.AccountStatusActive, CreditLimit: decimal.NewFromInt(500), CurrentBalance: decimal.NewFromInt(450),
	})
	for _, m := range []time.Month{time.March, time.April, time.May} {
		paid := day(2025, m, 20)
		addMonthlyStatement(store, card, m, 40, &paid)
	}
	addMonthlyStatement(store, line, time.February, 50, nil)
}

func TestSyncProfile_CreatesRecord(t *testing.T) {
	store := repository.NewMemoryStore()
	seedProfile(t, store, "p-1", "North Bank", "123-456-789")
	svc := newTestService(t, store)

	result, err := svc.SyncProfile(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("SyncProfile failed: %v", err)
	}
	if !result.Created {
		t.Errorf("expected a new record")
	}
	// 700 + 10 bonus - 90 (R5) + 15 on-time - 20 missed - 20 utilization
	if result.FinalScore != 595 {
		t.Errorf("expected score 595, got %d", result.FinalScore)
	}
	if len(result.PaymentLevels) != 2 ||
		result.PaymentLevels[0].Rating != models.RatingR1 ||
		result.PaymentLevels[1].Rating != models.RatingR5 {
		t.Fatalf("unexpected payment levels: %+v", result.PaymentLevels)
	}

	rec, err := store.FindByHashedID(context.Background(), hashID(t, "123456789"))
	if err != nil {
		t.Fatalf("record not stored under the hashed identifier: %v", err)
	}
	if rec.FinalScore != 595 || rec.Metrics.Components.RatingPenalty != 90 {
		t.Errorf("unexpected stored record: %+v", rec.Metrics)
	}
	if len(rec.History) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(rec.History))
	}
}

func TestSyncProfile_RerunIsStable(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedProfile(t, store, "p-1", "North Bank", "123456789")
	svc := newTestService(t, store)

	if _, err := svc.SyncProfile(ctx, "p-1"); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	first, _ := store.FindByHashedID(ctx, hashID(t, "123456789"))

	second, err := svc.SyncProfile(ctx, "p-1")
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if second.Created || second.PreviousScore != first.FinalScore {
		t.Errorf("expected update of existing record, got %+v", second)
	}
	after, _ := store.FindByHashedID(ctx, hashID(t, "123456789"))

	if after.FinalScore != first.FinalScore {
		t.Errorf("score drifted: %d -> %d", first.FinalScore, after.FinalScore)
	}
	if !reflect.DeepEqual(after.PaymentLevels, first.PaymentLevels) {
		t.Errorf("ratings drifted:\n%+v\n%+v", first.PaymentLevels, after.PaymentLevels)
	}
	if !reflect.DeepEqual(after.History, first.History) {
		t.Errorf("history changed on same-day rerun:\n%+v\n%+v", first.History, after.History)
	}
	if after.Version != first.Version+1 {
		t.Errorf("expected version to advance, got %d -> %d", first.Version, after.Version)
	}
}

func TestSyncProfile_SharedIdentityAcrossInstitutions(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedProfile(t, store, "north-1", "North Bank", "AB 123 456")
	seedProfile(t, store, "south-1", "South Credit Union", "ab-123-456")
	svc := newTestService(t, store)

	for _, id := range []string{"north-1", "south-1"} {
		if _, err := svc.SyncProfile(ctx, id); err != nil {
			t.Fatalf("sync %s failed: %v", id, err)
		}
	}
	rec, err := store.FindByHashedID(ctx, hashID(t, "AB123456"))
	if err != nil {
		t.Fatalf("shared record not found: %v", err)
	}
	if len(rec.History) != 4 {
		t.Errorf("expected history from both institutions, got %d entries", len(rec.History))
	}
}

func TestSyncProfile_IdentityErrors(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("123456789"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	tests := []struct {
		name       string
		nationalID string
		want       error
	}{
		{"missing", "", ErrMissingIdentity},
		{"legacy bcrypt", string(legacy), ErrLegacyIdentifier},
		{"undecryptable", "plain-text-id", ErrLegacyIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			store.AddProfile(models.Profile{ID: "p-1", InstitutionID: "i", InstitutionName: "Bank", NationalID: tt.nationalID})
			svc := newTestService(t, store)
			if _, err := svc.SyncProfile(context.Background(), "p-1"); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSyncProfile_UnknownProfile(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryStore())
	if _, err := svc.SyncProfile(context.Background(), "nobody"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type failingStatements struct {
	*repository.MemoryStore
	failAccount string
}

func (f *failingStatements) SumPayments(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error) {
	if accountID == f.failAccount {
		return decimal.Zero, errors.New("statement service unavailable")
	}
	return f.MemoryStore.SumPayments(ctx, accountID, from, to)
}

func TestSyncProfile_UpstreamFailureLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedProfile(t, store, "p-1", "North Bank", "123456789")
	svc := newTestService(t, store)
	if _, err := svc.SyncProfile(ctx, "p-1"); err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}
	before, _ := store.FindByHashedID(ctx, hashID(t, "123456789"))

	svc.stores.Statements = &failingStatements{MemoryStore: store, failAccount: "p-1-line"}
	svc.now = func() time.Time { return fixedNow.AddDate(0, 0, 1) }
	if _, err := svc.SyncProfile(ctx, "p-1"); !errors.Is(err, ErrUpstreamRead) {
		t.Fatalf("expected ErrUpstreamRead, got %v", err)
	}

	after, _ := store.FindByHashedID(ctx, hashID(t, "123456789"))
	if !reflect.DeepEqual(before, after) {
		t.Errorf("failed sync mutated the stored record")
	}
}

type conflictingRecords struct {
	*repository.MemoryStore
	conflicts int
}

func (c *conflictingRecords) UpdateCreditRecord(ctx context.Context, id string, version int64, patch models.CreditRecordPatch) error {
	if c.conflicts > 0 {
		c.conflicts--
		return repository.ErrVersionConflict
	}
	return c.MemoryStore.UpdateCreditRecord(ctx, id, version, patch)
}

func TestSyncProfile_RetriesVersionConflicts(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedProfile(t, store, "p-1", "North Bank", "123456789")
	svc := newTestService(t, store)
	if _, err := svc.SyncProfile(ctx, "p-1"); err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}

	records := &conflictingRecords{MemoryStore: store, conflicts: 2}
	svc.stores.Records = records
	if _, err := svc.SyncProfile(ctx, "p-1"); err != nil {
		t.Fatalf("expected sync to succeed after retries, got %v", err)
	}

	records.conflicts = 100
	if _, err := svc.SyncProfile(ctx, "p-1"); !errors.Is(err, ErrConcurrentUpdate) {
		t.Errorf("expected ErrConcurrentUpdate, got %v", err)
	}
}

type recordingNotifier struct {
	calls [][2]int
}

func (r *recordingNotifier) SendScoreUpdate(_, _ string, previous, current int) error {
	r.calls = append(r.calls, [2]int{previous, current})
	return nil
}

type recordingPublisher struct {
	published []string
	err       error
}

func (r *recordingPublisher) Publish(_ context.Context, rec *models.CreditRecord) error {
	r.published = append(r.published, rec.ID)
	return r.err
}

func TestSyncProfile_SideEffects(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedProfile(t, store, "p-1", "North Bank", "123456789")
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{err: errors.New("bureau offline")}
	svc := newTestService(t, store).WithNotifier(notifier).WithPublisher(publisher)

	if _, err := svc.SyncProfile(ctx, "p-1"); err != nil {
		t.Fatalf("sync failed despite publisher error: %v", err)
	}
	if _, err := svc.SyncProfile(ctx, "p-1"); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Errorf("expected 2 publications, got %d", len(publisher.published))
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != [2]int{0, 595} {
		t.Errorf("expected a single notification for the new score, got %v", notifier.calls)
	}
}
