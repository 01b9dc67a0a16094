package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/config"
	"github.com/sells-group/awards-cli/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertBrandFailureRate AlertType = "brand_failure_rate"
	AlertEmptyResult      AlertType = "empty_result"
	AlertRunFailed        AlertType = "run_failed"
)

// minBrandsForRate is the smallest run whose failure rate is meaningful.
const minBrandsForRate = 3

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates run summaries against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	now    func() time.Time
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Evaluate checks a run summary and returns any alerts.
func (a *Alerter) Evaluate(s model.RunSummary) []Alert {
	var alerts []Alert
	now := a.now().UTC()

	if s.Failed() {
		alerts = append(alerts, Alert{
			Type:      AlertRunFailed,
			Severity:  "high",
			Message:   fmt.Sprintf("Award aggregation (%s) failed: %s", s.Scope, s.Err),
			Details:   map[string]any{"run_id": s.RunID, "scope": s.Scope},
			Timestamp: now,
		})
		return alerts
	}

	if s.Brands >= minBrandsForRate && s.BrandFailureRate() > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertBrandFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Brand listing failure rate %.1f%% exceeds threshold %.1f%% (%d of %d brands)",
				s.BrandFailureRate()*100, a.cfg.FailureRateThreshold*100, s.BrandsFailed, s.Brands,
			),
			Details: map[string]any{
				"run_id":        s.RunID,
				"failure_rate":  s.BrandFailureRate(),
				"threshold":     a.cfg.FailureRateThreshold,
				"brands_failed": s.BrandsFailed,
				"brands":        s.Brands,
			},
			Timestamp: now,
		})
	}

	if s.Brands > 0 && s.Awards == 0 {
		alerts = append(alerts, Alert{
			Type:     AlertEmptyResult,
			Severity: "medium",
			Message:  fmt.Sprintf("Award aggregation (%s) produced no awards from %d brands", s.Scope, s.Brands),
			Details: map[string]any{
				"run_id":      s.RunID,
				"raw_records": s.RawRecords,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// ObserveRun evaluates s, logs any resulting alerts and sends them.
func (a *Alerter) ObserveRun(ctx context.Context, s model.RunSummary) {
	alerts := a.Evaluate(s)
	for _, alert := range alerts {
		zap.L().Warn("monitoring: "+alert.Message,
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
			zap.String("run_id", s.RunID),
		)
	}
	a.SendAlerts(ctx, alerts)
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
