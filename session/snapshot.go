package session

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const defaultFlushInterval = 500 * time.Millisecond

// snapshotState is the explicit allow-list of what persists across restarts.
// The composer is deliberately absent.
type snapshotState struct {
	Threads          []*Thread             `json:"threads"`
	ActiveThreadID   *string               `json:"activeThreadId"`
	MessagesByThread map[string][]*Message `json:"messagesByThread"`
	Settings         Settings              `json:"settings"`
}

// snapshotJSON marshals the persisted subset of the store state.
func (s *Store) snapshotJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := snapshotState{
		Threads:          s.threads,
		MessagesByThread: s.messages,
		Settings:         s.settings,
	}
	if s.activeThreadID != "" {
		id := s.activeThreadID
		state.ActiveThreadID = &id
	}
	return json.Marshal(&state)
}

// restore replaces the store state with a loaded snapshot. Messages still
// flagged as streaming are finalized: the producer that fed them is gone, so
// they end as cancelled with whatever content was captured.
func (s *Store) restore(state *snapshotState) {
	s.threads = state.Threads
	s.threadIndex = make(map[string]*Thread, len(state.Threads))
	for _, t := range state.Threads {
		s.threadIndex[t.ID] = t
	}

	s.messages = state.MessagesByThread
	if s.messages == nil {
		s.messages = make(map[string][]*Message)
	}
	s.messageIndex = make(map[string]*Message)
	for _, msgs := range s.messages {
		for _, m := range msgs {
			m.IsStreaming = false
			s.messageIndex[m.ID] = m
		}
	}

	if state.ActiveThreadID != nil {
		if thread, ok := s.threadIndex[*state.ActiveThreadID]; ok {
			s.activeThreadID = thread.ID
			s.mode = thread.Mode
		}
	}
	s.settings = state.Settings
}

// loadSnapshot reads a snapshot from disk. A missing file is not an error.
func loadSnapshot(path string) (*snapshotState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}

	var state snapshotState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "unmarshal snapshot")
	}
	return &state, nil
}

// snapshotWriter debounces snapshot writes. Losing durability must never
// crash the interactive session, so write failures are logged and the
// in-memory state stays authoritative.
type snapshotWriter struct {
	path     string
	interval time.Duration
	source   func() ([]byte, error)
	logger   *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

func newSnapshotWriter(path string, interval time.Duration, source func() ([]byte, error), logger *slog.Logger) *snapshotWriter {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &snapshotWriter{
		path:     path,
		interval: interval,
		source:   source,
		logger:   logger,
	}
}

// Schedule arms the debounce timer. Repeated calls within the interval
// collapse into a single write.
func (w *snapshotWriter) Schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.timer != nil {
		return
	}
	w.timer = time.AfterFunc(w.interval, func() {
		w.mu.Lock()
		w.timer = nil
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			w.write()
		}
	})
}

// Flush writes the snapshot immediately and disarms any pending timer.
func (w *snapshotWriter) Flush() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	w.write()
}

// Close flushes and prevents further scheduling.
func (w *snapshotWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	w.write()
	return nil
}

// write serializes and atomically replaces the snapshot file.
func (w *snapshotWriter) write() {
	data, err := w.source()
	if err != nil {
		w.logger.Error("failed to serialize session snapshot", "error", err)
		return
	}

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		w.logger.Error("failed to persist session snapshot", "path", w.path, "error", err)
		return
	}

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), w.path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		w.logger.Error("failed to persist session snapshot", "path", w.path, "error", err)
	}
}
