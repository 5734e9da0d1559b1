package bureau

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

func sampleRecord() *models.CreditRecord {
	day := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	return &models.CreditRecord{
		ID:         "rec-1",
		HashedID:   "abc123",
		FinalScore: 595,
		Version:    2,
		Metrics: models.CreditMetrics{
			ActiveAccounts: 2,
			Missed:         1,
			Components:     models.ScoreComponents{Base: 700, RatingPenalty: -90, Final: 595},
			FinalScore:     595,
			ComputedAt:     day,
		},
		PaymentLevels: []models.AccountPaymentRating{
			{AccountID: "card-1", AccountType: "credit_card", Active: true, Rating: models.RatingR1},
			{AccountID: "line-1", AccountType: "credit_line", Active: true, Rating: models.RatingR5},
		},
		History: []models.CreditHistoryEntry{
			{Date: day, InstitutionID: "inst-1", AccountID: "line-1", AccountType: "credit_line", Rating: models.RatingR5, Detail: "North Bank - Flex credit_line: rating R5"},
			{Date: day.AddDate(-1, 0, 0), AccountType: "loan", Detail: "Legacy Bank - loan closed"},
		},
	}
}

func TestRenderReport(t *testing.T) {
	out, err := RenderReport(sampleRecord())
	if err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(out); err != nil {
		t.Fatalf("report is not valid XML: %v", err)
	}
	root := doc.SelectElement("CreditReport")
	if root == nil {
		t.Fatal("missing CreditReport root")
	}
	if got := root.SelectAttrValue("subject", ""); got != "abc123" {
		t.Errorf("expected subject abc123, got %q", got)
	}
	if got := root.FindElement("./FinalScore").Text(); got != "595" {
		t.Errorf("expected final score 595, got %q", got)
	}
	if got := root.FindElement("./Components/RatingPenalty").Text(); got != "-90" {
		t.Errorf("expected rating penalty -90, got %q", got)
	}

	accounts := root.FindElements("./PaymentLevels/Account")
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if got := accounts[1].FindElement("./Rating").Text(); got != "R5" {
		t.Errorf("expected R5 for line-1, got %q", got)
	}

	entries := root.FindElements("./History/Entry")
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if got := entries[0].SelectAttrValue("date", ""); got != "2025-07-01" {
		t.Errorf("unexpected entry date %q", got)
	}
	if entries[1].SelectAttr("institution") != nil {
		t.Errorf("legacy entry must not carry an institution attribute")
	}
}

func TestPublish(t *testing.T) {
	var gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)
	c := NewClient(srv.URL, log)
	if err := c.Publish(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if gotType != "application/xml; charset=utf-8" {
		t.Errorf("unexpected content type %q", gotType)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(gotBody); err != nil || doc.SelectElement("CreditReport") == nil {
		t.Errorf("bureau did not receive a credit report: %v", err)
	}
}

func TestPublish_RejectedByBureau(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "schema mismatch", http.StatusBadRequest)
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)
	if err := NewClient(srv.URL, log).Publish(context.Background(), sampleRecord()); err == nil {
		t.Fatal("expected an error for a rejected report")
	}
}
