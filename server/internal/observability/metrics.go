package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates counters for chat generations. Everything is in-process;
// the snapshot is exposed over the system metrics endpoint.
type Metrics struct {
	mu sync.Mutex

	generationTotal  atomic.Int64
	generationFailed atomic.Int64
	streamChunks     atomic.Int64

	modeMetrics map[string]*ModeMetrics
}

// ModeMetrics tracks generations for one conversation mode.
type ModeMetrics struct {
	count         atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		modeMetrics: make(map[string]*ModeMetrics),
	}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the process-wide metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordGeneration records a started generation.
func (m *Metrics) RecordGeneration(mode string) {
	m.generationTotal.Add(1)
	m.getModeMetrics(mode).count.Add(1)
}

// RecordFailure records a failed generation.
func (m *Metrics) RecordFailure(mode string) {
	m.generationFailed.Add(1)
	m.getModeMetrics(mode).errorCount.Add(1)
}

// RecordDuration records a finished generation's duration.
func (m *Metrics) RecordDuration(mode string, duration time.Duration) {
	m.getModeMetrics(mode).totalDuration.Add(duration.Milliseconds())
}

// RecordStreamChunk records one emitted stream chunk.
func (m *Metrics) RecordStreamChunk() {
	m.streamChunks.Add(1)
}

func (m *Metrics) getModeMetrics(mode string) *ModeMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	mm, ok := m.modeMetrics[mode]
	if !ok {
		mm = &ModeMetrics{}
		m.modeMetrics[mode] = mm
	}
	return mm
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.generationTotal.Store(0)
	m.generationFailed.Store(0)
	m.streamChunks.Store(0)

	m.mu.Lock()
	m.modeMetrics = make(map[string]*ModeMetrics)
	m.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	modes := make(map[string]*ModeMetricsSnapshot, len(m.modeMetrics))
	for mode, mm := range m.modeMetrics {
		count := mm.count.Load()
		snapshot := &ModeMetricsSnapshot{
			Count:         count,
			TotalDuration: mm.totalDuration.Load(),
			ErrorCount:    mm.errorCount.Load(),
		}
		if count > 0 {
			snapshot.AverageDuration = snapshot.TotalDuration / count
		}
		modes[mode] = snapshot
	}

	return &MetricsSnapshot{
		GenerationTotal:  m.generationTotal.Load(),
		GenerationFailed: m.generationFailed.Load(),
		StreamChunks:     m.streamChunks.Load(),
		ModeMetrics:      modes,
	}
}

// MetricsSnapshot is a point-in-time view of the counters.
type MetricsSnapshot struct {
	GenerationTotal  int64                           `json:"generationTotal"`
	GenerationFailed int64                           `json:"generationFailed"`
	StreamChunks     int64                           `json:"streamChunks"`
	ModeMetrics      map[string]*ModeMetricsSnapshot `json:"modeMetrics"`
}

// ModeMetricsSnapshot is a point-in-time view for one mode.
type ModeMetricsSnapshot struct {
	Count           int64 `json:"count"`
	TotalDuration   int64 `json:"totalDurationMs"`
	ErrorCount      int64 `json:"errorCount"`
	AverageDuration int64 `json:"averageDurationMs"`
}

// SuccessRate returns the success rate as a percentage.
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.GenerationTotal == 0 {
		return 100.0
	}
	return float64(s.GenerationTotal-s.GenerationFailed) / float64(s.GenerationTotal) * 100.0
}
