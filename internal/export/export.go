// Package export ships analysis summaries to an external webhook for audit
// and dashboarding. Export is best-effort: a failed delivery is logged and
// dropped, never surfaced to the requester.
package export

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Exporter batches analysis records and flushes them on an interval or when
// the batch fills up.
type Exporter struct {
	config     Config
	httpClient *http.Client
	mutex      sync.RWMutex
	batch      []interface{}
	lastExport time.Time
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
}

// Config holds exporter settings
type Config struct {
	Enabled        bool   `json:"enabled"`
	BatchSize      int    `json:"batch_size"`
	ExportInterval string `json:"export_interval"`

	WebhookURL    string `json:"webhook_url"`
	WebhookAPIKey string `json:"webhook_api_key,omitempty"`
}

// New creates an exporter. A disabled exporter accepts records and silently
// discards them so callers never need to nil-check.
func New(config Config) *Exporter {
	if !config.Enabled {
		return &Exporter{config: config}
	}

	interval, err := time.ParseDuration(config.ExportInterval)
	if err != nil || interval <= 0 {
		interval = time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}

	e := &Exporter{
		config: config,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
				IdleConnTimeout: 90 * time.Second,
			},
		},
		batch:    make([]interface{}, 0, config.BatchSize),
		interval: interval,
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	go e.periodicExport()

	logrus.Info("Analysis exporter initialized")
	return e
}

// Add queues one analysis record for export.
func (e *Exporter) Add(record interface{}) {
	if !e.config.Enabled || record == nil {
		return
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.batch = append(e.batch, record)
	if len(e.batch) >= e.config.BatchSize {
		go e.flush()
	}
}

// periodicExport flushes the batch on the configured interval.
func (e *Exporter) periodicExport() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.flush()
		case <-e.ctx.Done():
			return
		}
	}
}

// flush sends the current batch to the webhook.
func (e *Exporter) flush() {
	e.mutex.Lock()
	if len(e.batch) == 0 {
		e.mutex.Unlock()
		return
	}
	records := make([]interface{}, len(e.batch))
	copy(records, e.batch)
	e.batch = make([]interface{}, 0, e.config.BatchSize)
	e.lastExport = time.Now()
	e.mutex.Unlock()

	if err := e.sendToWebhook(records); err != nil {
		logrus.Errorf("Failed to export analysis records: %v", err)
		return
	}
	logrus.Infof("Exported %d analysis records", len(records))
}

// sendToWebhook posts the records as one JSON envelope.
func (e *Exporter) sendToWebhook(records []interface{}) error {
	if e.config.WebhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	envelope := struct {
		Records    []interface{} `json:"records"`
		ExportTime string        `json:"export_time"`
		Count      int           `json:"count"`
	}{
		Records:    records,
		ExportTime: time.Now().UTC().Format(time.RFC3339),
		Count:      len(records),
	}

	jsonData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.config.WebhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.WebhookAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.WebhookAPIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}
	return nil
}

// Stop cancels the background flusher and exports any remaining records.
func (e *Exporter) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.flush()
}

// Status reports the exporter's current state for the status endpoint.
func (e *Exporter) Status() map[string]interface{} {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	status := map[string]interface{}{
		"enabled":       e.config.Enabled,
		"batch_size":    e.config.BatchSize,
		"current_batch": len(e.batch),
	}
	if e.interval > 0 {
		status["export_interval"] = e.interval.String()
	}
	if !e.lastExport.IsZero() {
		status["last_export"] = e.lastExport.Format(time.RFC3339)
	}
	return status
}
