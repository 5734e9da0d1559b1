package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/credit-scoring/internal/geo"
	"github.com/Dan9191/credit-scoring/internal/middleware"
	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/Dan9191/credit-scoring/internal/repository"
	"github.com/Dan9191/credit-scoring/internal/service"
	"github.com/Dan9191/credit-scoring/internal/utils"
	"github.com/beevik/etree"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const jwtSecret = "handler-test-secret"

var (
	encKey   = bytes.Repeat([]byte{3}, 32)
	hashKey  = []byte("handler-hash-secret")
	fixedNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
)

type testServer struct {
	router http.Handler
	svc    *service.Service
	store  *repository.MemoryStore
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := repository.NewMemoryStore()
	enc, err := utils.Encrypt("AB123456", encKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	store.AddProfile(models.Profile{ID: "p-1", InstitutionID: "inst-1", InstitutionName: "North Bank", Email: "jane@example.com", NationalID: enc})
	store.AddProfile(models.Profile{ID: "p-legacy", InstitutionID: "inst-1", InstitutionName: "North Bank", NationalID: "$2a$10$abcdefghijklmnopqrstuuJ6o7Y5Vv0dYzGx2k4b9wq1y3c5e7g9i"})
	store.AddAccount(models.CreditAccount{
		ID: "card-1", ProfileID: "p-1", ProgramLabel: "Classic", AccountType: "credit_card",
		Status: models.AccountStatusActive, CreditLimit: decimal.NewFromInt(1000), CurrentBalance: decimal.NewFromInt(100),
	})
	store.AddStatement(models.Statement{
		AccountID:   "card-1",
		PeriodStart: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
		MinimumDue:  decimal.NewFromInt(25),
		Closed:      true,
	})
	store.AddTransaction(models.Transaction{
		AccountID: "card-1", Type: models.TransactionTypePayment,
		Amount: decimal.NewFromInt(25), PostedAt: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	})

	svc := service.NewService(service.Stores{
		Profiles:   store,
		Accounts:   store,
		Statements: store,
		Records:    store,
		Schedules:  store,
		GeoSamples: store,
	}, log, service.Options{HashSecret: hashKey, EncryptionKey: encKey, Geo: geo.DefaultThresholds()}).
		WithClock(func() time.Time { return fixedNow })

	token, err := middleware.IssueToken(jwtSecret, "operator", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return &testServer{
		router: NewRouter(NewHandler(svc, log), middleware.AuthMiddleware(jwtSecret)),
		svc:    svc,
		store:  store,
		token:  token,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/profiles/p-1/sync", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestSyncAndFetchRecord(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/profiles/p-1/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result service.SyncResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode sync result: %v", err)
	}
	// 700 + 5 bonus + 30 on-time + 10 utilization
	if !result.Created || result.FinalScore != 745 {
		t.Errorf("unexpected sync result: %+v", result)
	}

	hash, _ := utils.HashNationalID("AB123456", hashKey)
	rec = s.do(t, http.MethodGet, "/credit-records/"+hash, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var record models.CreditRecord
	if err := json.NewDecoder(rec.Body).Decode(&record); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if record.FinalScore != 745 || len(record.History) != 1 {
		t.Errorf("unexpected record: %+v", record)
	}

	rec = s.do(t, http.MethodGet, "/credit-records/"+hash+"/report", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/xml") {
		t.Fatalf("expected XML report, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rec.Body.Bytes()); err != nil {
		t.Fatalf("report is not XML: %v", err)
	}
	if el := doc.FindElement("//CreditReport/FinalScore"); el == nil || el.Text() != "745" {
		t.Errorf("report does not carry the final score")
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown profile", http.MethodPost, "/profiles/ghost/sync", "", http.StatusNotFound},
		{"legacy identifier", http.MethodPost, "/profiles/p-legacy/sync", "", http.StatusUnprocessableEntity},
		{"unknown record", http.MethodGet, "/credit-records/deadbeef", "", http.StatusNotFound},
		{"bad frequency", http.MethodPut, "/profiles/p-1/schedule", `{"enabled":true,"frequency":"yearly"}`, http.StatusBadRequest},
		{"malformed schedule", http.MethodPut, "/profiles/p-1/schedule", `{`, http.StatusBadRequest},
		{"revoke without schedule", http.MethodDelete, "/profiles/p-1/consent", "", http.StatusNotFound},
		{"geo without card", http.MethodPost, "/geo/assess", `{"latitude":1,"longitude":2,"timestamp":"2025-07-01T12:00:00Z"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestScheduleAndConsent(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/profiles/p-1/schedule", `{"enabled":true,"frequency":"week"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/profiles/p-1/consent", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	sc, err := s.store.GetSchedule(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if !sc.AutoConsent || sc.Frequency != models.FrequencyWeek || sc.LastRunAt == nil {
		t.Errorf("unexpected schedule after consent: %+v", sc)
	}

	rec = s.do(t, http.MethodDelete, "/profiles/p-1/consent", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestAssessGeo(t *testing.T) {
	s := newTestServer(t)
	body := func(lat, lon float64, ts string) string {
		return `{"profile_id":"p-1","card_id":"c-9","latitude":` + jsonFloat(lat) + `,"longitude":` + jsonFloat(lon) + `,"timestamp":"` + ts + `"}`
	}

	rec := s.do(t, http.MethodPost, "/geo/assess", body(45.5017, -73.5673, "2025-07-01T12:00:00Z"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/geo/assess", body(43.6532, -79.3832, "2025-07-01T12:05:00Z"))
	var result service.GeoResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode geo result: %v", err)
	}
	if result.Assessment.Tier != models.GeoTierImpossible || result.Signal.Name != geo.SignalName || result.Signal.Impact != 40 {
		t.Errorf("unexpected geo result: %+v", result)
	}
}

func jsonFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// brokenWriter accepts headers but fails every body write
type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header {
	if b.header == nil {
		b.header = make(http.Header)
	}
	return b.header
}

func (b *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func (b *brokenWriter) WriteHeader(status int) {
	b.status = status
}

func TestGetCreditReport_LogsWriteFailure(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodPost, "/profiles/p-1/sync", ""); rec.Code != http.StatusOK {
		t.Fatalf("sync failed: %d", rec.Code)
	}

	log, hook := logtest.NewNullLogger()
	h := &Handler{svc: s.svc, log: log}
	hash, _ := utils.HashNationalID("AB123456", hashKey)
	req := httptest.NewRequest(http.MethodGet, "/credit-records/"+hash+"/report", nil)
	req = mux.SetURLVars(req, map[string]string{"hash": hash})

	w := &brokenWriter{}
	h.GetCreditReport(w, req)
	if w.status != http.StatusOK {
		t.Fatalf("expected 200 header, got %d", w.status)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel || !strings.Contains(entry.Message, "credit report") {
		t.Errorf("expected the failed write to be logged, got %+v", entry)
	}
}
