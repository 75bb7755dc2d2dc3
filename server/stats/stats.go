// Package stats provides lightweight local usage statistics. It is a
// periodic in-process aggregation, not an external monitoring pipeline.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/muhandis-ai/muhandis/store"
)

// Stats represents usage statistics.
type Stats struct {
	// Thread stats
	TotalThreads    int64
	ThreadsLastWeek int64
	StarredThreads  int64

	// Message stats
	TotalMessages    int64
	MessagesLastWeek int64

	// Generation stats
	TotalGenerations     int64
	GenerationsSinceBoot int64

	// Activity stats
	ActiveDays       int64 // Days with activity in the last 30 days
	LastActivityTime time.Time

	LastUpdated time.Time
}

// Collector collects and manages usage statistics.
type Collector struct {
	store    *store.Store
	stats    *Stats
	mu       sync.Mutex
	tickStop chan struct{}
}

// NewCollector creates a new statistics collector.
func NewCollector(st *store.Store) *Collector {
	return &Collector{
		store: st,
		stats: &Stats{
			LastUpdated: time.Now(),
		},
		tickStop: make(chan struct{}),
	}
}

// Start begins periodic statistics collection, updating every hour.
func (c *Collector) Start(ctx context.Context) {
	c.collect(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect(ctx)
			case <-ctx.Done():
				return
			case <-c.tickStop:
				return
			}
		}
	}()
}

// Stop stops the statistics collector.
func (c *Collector) Stop() {
	select {
	case <-c.tickStop:
	default:
		close(c.tickStop)
	}
}

// RecordGeneration records one finished generation.
func (c *Collector) RecordGeneration() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.TotalGenerations++
	c.stats.GenerationsSinceBoot++
	c.stats.LastActivityTime = time.Now()
}

// GetStats returns a copy of current statistics.
func (c *Collector) GetStats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *c.stats
	return &copied
}

// collect gathers current statistics from the store.
func (c *Collector) collect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)
	thirtyDaysAgo := now.AddDate(0, 0, -30)
	activeDaysMap := make(map[string]bool)
	lastActivity := c.stats.LastActivityTime

	threads, err := c.store.ListThreads(ctx, &store.FindThread{})
	if err == nil {
		c.stats.TotalThreads = int64(len(threads))

		var weekCount, starredCount int64
		for _, t := range threads {
			created := time.Unix(t.CreatedTs, 0)
			if !created.Before(weekAgo) {
				weekCount++
			}
			if t.Starred {
				starredCount++
			}
			updated := time.Unix(t.UpdatedTs, 0)
			if updated.After(lastActivity) {
				lastActivity = updated
			}
			if !updated.Before(thirtyDaysAgo) {
				activeDaysMap[updated.Format("2006-01-02")] = true
			}
		}
		c.stats.ThreadsLastWeek = weekCount
		c.stats.StarredThreads = starredCount
	}

	messages, err := c.store.ListMessages(ctx, &store.FindMessage{})
	if err == nil {
		c.stats.TotalMessages = int64(len(messages))

		var weekCount int64
		for _, m := range messages {
			created := time.Unix(m.CreatedTs, 0)
			if !created.Before(weekAgo) {
				weekCount++
			}
			if !created.Before(thirtyDaysAgo) {
				activeDaysMap[created.Format("2006-01-02")] = true
			}
		}
		c.stats.MessagesLastWeek = weekCount
	}

	logs, err := c.store.ListEventLogs(ctx, &store.FindEventLog{})
	if err == nil {
		c.stats.TotalGenerations = int64(len(logs))
	}

	c.stats.ActiveDays = int64(len(activeDaysMap))
	c.stats.LastActivityTime = lastActivity
	c.stats.LastUpdated = now
}

// GetSummary returns a human-readable summary.
func (s *Stats) GetSummary() string {
	return fmt.Sprintf(
		`Usage statistics (updated %s)

Threads
  total: %d
  last week: %d
  starred: %d

Messages
  total: %d
  last week: %d

Generations
  total: %d
  since boot: %d

Activity
  active days (30d): %d
  last activity: %s`,
		s.LastUpdated.Format("2006-01-02 15:04"),
		s.TotalThreads,
		s.ThreadsLastWeek,
		s.StarredThreads,
		s.TotalMessages,
		s.MessagesLastWeek,
		s.TotalGenerations,
		s.GenerationsSinceBoot,
		s.ActiveDays,
		formatLastActivity(s.LastActivityTime),
	)
}

func formatLastActivity(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	duration := time.Since(t)
	if duration < time.Hour {
		return "just now"
	}
	if duration < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	}
	if duration < 7*24*time.Hour {
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	}
	return t.Format("2006-01-02")
}
