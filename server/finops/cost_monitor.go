// Package finops tracks generation usage and estimated provider cost. Records
// land in the append-only event log; reports aggregate over it.
package finops

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/muhandis-ai/muhandis/store"
)

// EventTypeGenerationUsage is the event log type for usage records.
const EventTypeGenerationUsage = "generation_usage"

// GenerationUsage is one generation's usage record.
type GenerationUsage struct {
	Timestamp    time.Time `json:"timestamp"`
	UserID       int32     `json:"userId"`
	Mode         string    `json:"mode"`
	InputTokens  int       `json:"inputTokens"`
	OutputTokens int       `json:"outputTokens"`
	CostUSD      float64   `json:"costUsd"`
	LatencyMs    int64     `json:"latencyMs"`
	Failed       bool      `json:"failed"`
}

// ModeUsageStats aggregates usage for one conversation mode.
type ModeUsageStats struct {
	Mode         string  `json:"mode"`
	Count        int64   `json:"count"`
	FailedCount  int64   `json:"failedCount"`
	TotalCostUSD float64 `json:"totalCostUsd"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
}

// UsageReport is a per-period aggregation of generation usage.
type UsageReport struct {
	Period       string                     `json:"period"`
	TotalCostUSD float64                    `json:"totalCostUsd"`
	TotalCount   int64                      `json:"totalCount"`
	ByMode       map[string]*ModeUsageStats `json:"byMode"`
}

// UsageMonitor records usage events and produces reports.
type UsageMonitor struct {
	store  *store.Store
	logger *slog.Logger

	mu          sync.RWMutex
	reportCache map[string]*UsageReport
	cacheTime   map[string]time.Time
	cacheTTL    time.Duration
}

// NewUsageMonitor creates a usage monitor backed by the event log.
func NewUsageMonitor(st *store.Store) *UsageMonitor {
	return &UsageMonitor{
		store:       st,
		logger:      slog.Default(),
		reportCache: make(map[string]*UsageReport),
		cacheTime:   make(map[string]time.Time),
		cacheTTL:    5 * time.Minute,
	}
}

// Record appends one generation's usage to the event log.
func (m *UsageMonitor) Record(ctx context.Context, usage *GenerationUsage) error {
	if usage == nil {
		return errors.New("usage cannot be nil")
	}
	if usage.UserID <= 0 {
		return errors.New("invalid user id")
	}
	if usage.Mode == "" {
		return errors.New("mode cannot be empty")
	}
	if usage.Timestamp.IsZero() {
		usage.Timestamp = time.Now()
	}
	usage.CostUSD = EstimateGenerationCost(usage.InputTokens, usage.OutputTokens)

	payload, err := json.Marshal(usage)
	if err != nil {
		return errors.Wrap(err, "marshal usage record")
	}

	if _, err := m.store.CreateEventLog(ctx, &store.EventLog{
		CreatorID: usage.UserID,
		Type:      EventTypeGenerationUsage,
		Payload:   string(payload),
		CreatedTs: usage.Timestamp.Unix(),
	}); err != nil {
		m.logger.ErrorContext(ctx, "failed to record generation usage",
			"user_id", usage.UserID, "mode", usage.Mode, "error", err)
		return err
	}

	m.logger.DebugContext(ctx, "recorded generation usage",
		"user_id", usage.UserID, "mode", usage.Mode,
		"cost_usd", usage.CostUSD, "latency_ms", usage.LatencyMs)
	return nil
}

// Report aggregates usage for the given period ("daily", "weekly", "monthly").
func (m *UsageMonitor) Report(ctx context.Context, period string) (*UsageReport, error) {
	m.mu.RLock()
	if cached, ok := m.reportCache[period]; ok && time.Since(m.cacheTime[period]) < m.cacheTTL {
		m.mu.RUnlock()
		return cached, nil
	}
	m.mu.RUnlock()

	startTs := periodStart(period).Unix()
	eventType := EventTypeGenerationUsage
	logs, err := m.store.ListEventLogs(ctx, &store.FindEventLog{Type: &eventType})
	if err != nil {
		return nil, errors.Wrap(err, "list usage events")
	}

	report := &UsageReport{
		Period: period,
		ByMode: make(map[string]*ModeUsageStats),
	}
	latencySums := make(map[string]int64)
	for _, log := range logs {
		if log.CreatedTs < startTs {
			continue
		}
		var usage GenerationUsage
		if err := json.Unmarshal([]byte(log.Payload), &usage); err != nil {
			continue
		}

		report.TotalCount++
		report.TotalCostUSD += usage.CostUSD

		ms, ok := report.ByMode[usage.Mode]
		if !ok {
			ms = &ModeUsageStats{Mode: usage.Mode}
			report.ByMode[usage.Mode] = ms
		}
		ms.Count++
		ms.TotalCostUSD += usage.CostUSD
		latencySums[usage.Mode] += usage.LatencyMs
		if usage.Failed {
			ms.FailedCount++
		}
	}
	for mode, ms := range report.ByMode {
		if ms.Count > 0 {
			ms.AvgLatencyMs = float64(latencySums[mode]) / float64(ms.Count)
		}
	}

	m.mu.Lock()
	m.reportCache[period] = report
	m.cacheTime[period] = time.Now()
	m.mu.Unlock()

	return report, nil
}

func periodStart(period string) time.Time {
	now := time.Now()
	switch period {
	case "weekly", "this_week":
		return now.AddDate(0, 0, -7)
	case "monthly", "this_month":
		return now.AddDate(0, -1, 0)
	default: // daily
		return now.AddDate(0, 0, -1)
	}
}

// EstimateTokens approximates the token count of a text by length. Mixed
// Arabic and English content averages out near 3 characters per token.
func EstimateTokens(textLength int) int {
	return textLength / 3
}

// EstimateGenerationCost estimates the USD cost of one generation using
// gpt-4o-mini pricing: $0.15 per 1M input tokens, $0.60 per 1M output tokens.
func EstimateGenerationCost(inputTokens, outputTokens int) float64 {
	inputCost := float64(inputTokens) * 0.15 / 1_000_000
	outputCost := float64(outputTokens) * 0.60 / 1_000_000
	return inputCost + outputCost
}
