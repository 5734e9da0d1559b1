// Package bureau renders credit records as XML reports and publishes them to
// an external credit bureau endpoint.
package bureau

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// Client publishes credit reports to a bureau
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new bureau client
func NewClient(url string, log *logrus.Logger) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// RenderReport builds the XML credit report of a record
func RenderReport(rec *models.CreditRecord) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("CreditReport")
	root.CreateAttr("id", rec.ID)
	root.CreateAttr("subject", rec.HashedID)
	root.CreateAttr("version", strconv.FormatInt(rec.Version, 10))

	root.CreateElement("FinalScore").SetText(strconv.Itoa(rec.FinalScore))

	m := rec.Metrics
	metrics := root.CreateElement("Metrics")
	metrics.CreateAttr("computedAt", m.ComputedAt.UTC().Format(time.RFC3339))
	addInt(metrics, "ActiveAccounts", m.ActiveAccounts)
	addInt(metrics, "MonthsReviewed", m.MonthsReviewed)
	addInt(metrics, "OnTime", m.OnTime)
	addInt(metrics, "Late", m.Late)
	addInt(metrics, "Missed", m.Missed)
	addFloat(metrics, "AverageUtilization", m.AverageUtilization)
	addFloat(metrics, "RecentOnTimeRatio", m.RecentOnTimeRatio)
	addFloat(metrics, "PreviousOnTimeRatio", m.PreviousOnTimeRatio)

	c := m.Components
	components := root.CreateElement("Components")
	addInt(components, "Base", c.Base)
	addInt(components, "ActiveAccountBonus", c.ActiveAccountBonus)
	addInt(components, "RatingPenalty", c.RatingPenalty)
	addInt(components, "OnTimeComponent", c.OnTimeComponent)
	addInt(components, "LatePenalty", c.LatePenalty)
	addInt(components, "MissedPenalty", c.MissedPenalty)
	addInt(components, "UtilizationComponent", c.UtilizationScore)
	addInt(components, "BurstPenalty", c.BurstPenalty)
	addInt(components, "Raw", c.Raw)
	addInt(components, "Final", c.Final)

	levels := root.CreateElement("PaymentLevels")
	for _, pl := range rec.PaymentLevels {
		acc := levels.CreateElement("Account")
		acc.CreateAttr("id", pl.AccountID)
		acc.CreateAttr("type", pl.AccountType)
		acc.CreateAttr("active", strconv.FormatBool(pl.Active))
		acc.CreateElement("Program").SetText(pl.ProgramLabel)
		acc.CreateElement("Rating").SetText(string(pl.Rating))
		addInt(acc, "MonthsReviewed", pl.Stats.MonthsReviewed)
		addInt(acc, "OnTime", pl.Stats.OnTime)
		addInt(acc, "Late", pl.Stats.Late)
		addInt(acc, "Missed", pl.Stats.Missed)
		addFloat(acc, "Utilization", pl.Stats.Utilization)
	}

	history := root.CreateElement("History")
	for _, h := range rec.History {
		entry := history.CreateElement("Entry")
		entry.CreateAttr("date", h.Date.UTC().Format(dateLayout))
		if h.InstitutionID != "" {
			entry.CreateAttr("institution", h.InstitutionID)
		}
		if h.AccountID != "" {
			entry.CreateAttr("account", h.AccountID)
		}
		if h.Rating != "" {
			entry.CreateAttr("rating", string(h.Rating))
		}
		entry.CreateElement("AccountType").SetText(h.AccountType)
		entry.CreateElement("Detail").SetText(h.Detail)
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}

// Publish posts the record's XML report to the bureau
func (c *Client) Publish(ctx context.Context, rec *models.CreditRecord) error {
	body, err := RenderReport(rec)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	c.log.Debugf("Published credit report %s (version %d)", rec.ID, rec.Version)
	return nil
}

func addInt(parent *etree.Element, tag string, v int) {
	parent.CreateElement(tag).SetText(strconv.Itoa(v))
}

func addFloat(parent *etree.Element, tag string, v float64) {
	parent.CreateElement(tag).SetText(strconv.FormatFloat(v, 'f', 4, 64))
}
