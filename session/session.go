// Package session is the single source of truth for thread, message, composer
// and settings state within one client process. Every mutation goes through
// the Store; reads are derived from current state. A subset of the state
// (threads, active selection, message logs, settings) survives restarts via a
// JSON snapshot; the composer never does.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/muhandis-ai/muhandis/plugin/generator"
)

const placeholderTitle = "New chat"

var (
	// ErrThreadNotFound is returned when an operation references a thread id
	// that does not exist.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrEmptyContent is returned when a message is sent with empty or
	// whitespace-only content.
	ErrEmptyContent = errors.New("message content is empty")
)

// Options configures a Store.
type Options struct {
	// Producer generates assistant replies. Nil disables generation; sent
	// messages then simply accumulate without responses.
	Producer generator.Producer
	// Model is passed through to the producer.
	Model string
	// Temperature overrides the default settings temperature at construction.
	Temperature float64
	// SnapshotPath is where the persisted state lives. Empty disables
	// persistence (pure in-memory mode).
	SnapshotPath string
	// FlushInterval debounces snapshot writes. Zero uses the default.
	FlushInterval time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// generation tracks the single in-flight producer run.
type generation struct {
	messageID string
	threadID  string
	cancel    context.CancelFunc
}

// Store mediates all session state. Mutations arrive from the host (user
// events) and from the producer goroutine, so every entry point takes the
// mutex; semantically there is still a single logical writer.
type Store struct {
	mu       sync.Mutex
	logger   *slog.Logger
	producer generator.Producer
	model    string

	threads        []*Thread // newest first
	threadIndex    map[string]*Thread
	messages       map[string][]*Message
	messageIndex   map[string]*Message
	activeThreadID string
	mode           Mode
	composer       Composer
	settings       Settings

	gen    *generation
	writer *snapshotWriter
}

// New creates a Store, loading the snapshot at Options.SnapshotPath when one
// exists. A snapshot that fails to load is logged and ignored; the session
// starts fresh rather than crashing.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		logger:       logger,
		producer:     opts.Producer,
		model:        opts.Model,
		threadIndex:  make(map[string]*Thread),
		messages:     make(map[string][]*Message),
		messageIndex: make(map[string]*Message),
		mode:         ModeChat,
		composer:     defaultComposer(),
		settings:     defaultSettings(),
	}
	if opts.Temperature > 0 && opts.Temperature <= 1 {
		s.settings.Temperature = opts.Temperature
	}

	if opts.SnapshotPath != "" {
		if state, err := loadSnapshot(opts.SnapshotPath); err != nil {
			logger.Error("failed to load session snapshot", "path", opts.SnapshotPath, "error", err)
		} else if state != nil {
			s.restore(state)
		}
		s.writer = newSnapshotWriter(opts.SnapshotPath, opts.FlushInterval, s.snapshotJSON, logger)
	}

	return s
}

// Close stops the in-flight generation and flushes the snapshot.
func (s *Store) Close() error {
	s.StopGeneration()
	if s.writer != nil {
		return s.writer.Close()
	}
	return nil
}

// Flush forces an immediate snapshot write.
func (s *Store) Flush() {
	if s.writer != nil {
		s.writer.Flush()
	}
}

// CreateThread creates a new thread, makes it active, and switches the store
// mode to the thread's mode. An invalid or empty mode falls back to chat.
func (s *Store) CreateThread(mode Mode) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.createThreadLocked(mode)
	s.scheduleSaveLocked()
	return id
}

func (s *Store) createThreadLocked(mode Mode) string {
	if !mode.Valid() {
		if mode != "" {
			s.logger.Warn("unknown thread mode, using chat", "mode", string(mode))
		}
		mode = ModeChat
	}

	now := time.Now()
	thread := &Thread{
		ID:        uuid.NewString(),
		Title:     placeholderTitle,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.threads = append([]*Thread{thread}, s.threads...)
	s.threadIndex[thread.ID] = thread
	s.messages[thread.ID] = nil
	s.activeThreadID = thread.ID
	s.mode = mode

	return thread.ID
}

// SelectThread makes the thread active and synchronizes the store mode to it.
func (s *Store) SelectThread(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threadIndex[id]
	if !ok {
		return errors.Wrapf(ErrThreadNotFound, "select thread %s", id)
	}

	s.activeThreadID = id
	s.mode = thread.Mode
	s.scheduleSaveLocked()
	return nil
}

// SwitchMode changes the store mode and, when a thread is active, the active
// thread's mode. Invalid modes are ignored.
func (s *Store) SwitchMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !mode.Valid() {
		s.logger.Warn("ignoring switch to unknown mode", "mode", string(mode))
		return
	}

	s.mode = mode
	if thread, ok := s.threadIndex[s.activeThreadID]; ok {
		thread.Mode = mode
	}
	s.scheduleSaveLocked()
}

// SendMessage appends a user message to the active thread (creating one
// implicitly when none is active), clears the composer, and kicks off
// asynchronous generation. It returns once the user message is appended; it
// never blocks on generation.
func (s *Store) SendMessage(content string, attachments ...Attachment) error {
	if strings.TrimSpace(content) == "" {
		return errors.Wrap(ErrEmptyContent, "send message")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threadIndex[s.activeThreadID]; !ok {
		s.createThreadLocked(s.mode)
	}
	thread := s.threadIndex[s.activeThreadID]

	// Only one generation may be in flight globally; a new send preempts the
	// previous one, which ends as cancelled.
	s.stopGenerationLocked()

	now := time.Now()
	userMsg := &Message{
		ID:          uuid.NewString(),
		ThreadID:    thread.ID,
		Role:        RoleUser,
		Content:     content,
		Timestamp:   now,
		Mode:        thread.Mode,
		Attachments: attachments,
	}
	s.appendMessageLocked(thread, userMsg)

	s.composer = defaultComposer()

	if s.producer != nil {
		s.startGenerationLocked(thread)
	}

	s.scheduleSaveLocked()
	return nil
}

// startGenerationLocked appends the assistant placeholder and launches the
// producer goroutine. Must be called with lock held.
func (s *Store) startGenerationLocked(thread *Thread) {
	placeholder := &Message{
		ID:          uuid.NewString(),
		ThreadID:    thread.ID,
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		Mode:        thread.Mode,
		IsStreaming: true,
	}
	s.appendMessageLocked(thread, placeholder)

	history := s.historyLocked(thread.ID, placeholder.ID)

	ctx, cancel := context.WithCancel(context.Background())
	s.gen = &generation{
		messageID: placeholder.ID,
		threadID:  thread.ID,
		cancel:    cancel,
	}

	req := &generator.Request{
		MessageID:   placeholder.ID,
		Messages:    history,
		Model:       s.model,
		Temperature: float32(s.settings.Temperature),
	}

	go func() {
		defer cancel()
		s.producer.Generate(ctx, req, s)
	}()
}

// historyLocked builds the producer input from the thread's message log,
// excluding the placeholder itself and failed generations.
func (s *Store) historyLocked(threadID, placeholderID string) []generator.Message {
	msgs := s.messages[threadID]
	history := make([]generator.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == placeholderID || m.Error != "" {
			continue
		}
		history = append(history, generator.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return history
}

// AppendStreamChunk concatenates delta onto the target message. Chunks for
// messages no longer streaming are dropped silently; this guards the race
// between cancellation and a final in-flight chunk.
func (s *Store) AppendStreamChunk(messageID string, delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messageIndex[messageID]
	if !ok || !m.IsStreaming {
		s.logger.Debug("dropping stream chunk for non-streaming message", "message_id", messageID)
		return
	}

	m.Content += delta
	if thread, ok := s.threadIndex[m.ThreadID]; ok {
		s.refreshDenormLocked(thread)
	}
	s.scheduleSaveLocked()
}

// CompleteGeneration marks the message's stream as finished. Idempotent.
func (s *Store) CompleteGeneration(messageID string) {
	s.finishGeneration(messageID, "")
}

// FailGeneration marks the message's stream as failed with an error message.
// Whichever of Complete/Fail fires first wins; the other becomes a no-op.
func (s *Store) FailGeneration(messageID string, errMessage string) {
	if errMessage == "" {
		errMessage = "generation failed"
	}
	s.finishGeneration(messageID, errMessage)
}

func (s *Store) finishGeneration(messageID string, errMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messageIndex[messageID]
	if !ok || !m.IsStreaming {
		return
	}

	m.IsStreaming = false
	m.Error = errMessage

	if thread, ok := s.threadIndex[m.ThreadID]; ok {
		s.refreshDenormLocked(thread)
	}

	if s.gen != nil && s.gen.messageID == messageID {
		s.gen.cancel()
		s.gen = nil
	}
	s.scheduleSaveLocked()
}

// StopGeneration cancels the in-flight generation. The affected message keeps
// whatever content accumulated and ends without an error.
func (s *Store) StopGeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopGenerationLocked()
	s.scheduleSaveLocked()
}

func (s *Store) stopGenerationLocked() {
	if s.gen != nil {
		s.gen.cancel()
		s.gen = nil
	}

	// Sweep every thread: a restored snapshot may carry a streaming flag with
	// no live producer behind it.
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.IsStreaming {
				m.IsStreaming = false
				if thread, ok := s.threadIndex[m.ThreadID]; ok {
					s.refreshDenormLocked(thread)
				}
			}
		}
	}
}

// IsGenerating reports whether a generation is currently in flight.
func (s *Store) IsGenerating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != nil
}

// StarThread toggles the starred flag. Unknown ids are logged and ignored.
func (s *Store) StarThread(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threadIndex[id]
	if !ok {
		s.logger.Warn("star requested for unknown thread", "thread_id", id)
		return
	}
	thread.IsStarred = !thread.IsStarred
	s.scheduleSaveLocked()
}

// ArchiveThread toggles the archived flag. Unknown ids are logged and ignored.
func (s *Store) ArchiveThread(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threadIndex[id]
	if !ok {
		s.logger.Warn("archive requested for unknown thread", "thread_id", id)
		return
	}
	thread.IsArchived = !thread.IsArchived
	s.scheduleSaveLocked()
}

// DeleteThread removes the thread and its entire message log. Deleting the
// active thread leaves no active selection.
func (s *Store) DeleteThread(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threadIndex[id]; !ok {
		s.logger.Warn("delete requested for unknown thread", "thread_id", id)
		return
	}

	if s.gen != nil && s.gen.threadID == id {
		s.gen.cancel()
		s.gen = nil
	}

	for _, m := range s.messages[id] {
		delete(s.messageIndex, m.ID)
	}
	delete(s.messages, id)
	delete(s.threadIndex, id)
	for i, t := range s.threads {
		if t.ID == id {
			s.threads = append(s.threads[:i], s.threads[i+1:]...)
			break
		}
	}

	if s.activeThreadID == id {
		s.activeThreadID = ""
	}
	s.scheduleSaveLocked()
}

// ClearComposer resets the draft to empty defaults. Settings are untouched.
func (s *Store) ClearComposer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.composer = defaultComposer()
}

// SetComposer replaces the draft state. Last writer wins.
func (s *Store) SetComposer(c Composer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Lang == "" {
		c.Lang = LangEn
	}
	s.composer = c
}

// Composer returns a copy of the current draft state.
func (s *Store) Composer() Composer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composer
}

// UpdateSettings replaces the settings. Temperature is clamped to [0, 1].
func (s *Store) UpdateSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.Temperature < 0 {
		settings.Temperature = 0
	}
	if settings.Temperature > 1 {
		settings.Temperature = 1
	}
	s.settings = settings
	s.scheduleSaveLocked()
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Mode returns the store's current mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ActiveThread returns a copy of the active thread, or nil when none is
// selected.
func (s *Store) ActiveThread() *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threadIndex[s.activeThreadID]
	if !ok {
		return nil
	}
	copied := *thread
	return &copied
}

// ActiveMessages returns the ordered message list of the active thread, or an
// empty list when none is active.
func (s *Store) ActiveMessages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[s.activeThreadID]
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = *m
	}
	return out
}

// Threads returns all threads, newest first.
func (s *Store) Threads() []Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Thread, len(s.threads))
	for i, t := range s.threads {
		out[i] = *t
	}
	return out
}

// Message returns a copy of a single message by id.
func (s *Store) Message(id string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messageIndex[id]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

// appendMessageLocked appends a message and refreshes the thread's
// denormalized fields. Must be called with lock held.
func (s *Store) appendMessageLocked(thread *Thread, m *Message) {
	s.messages[thread.ID] = append(s.messages[thread.ID], m)
	s.messageIndex[m.ID] = m
	thread.UpdatedAt = time.Now()
	s.refreshDenormLocked(thread)
}

// refreshDenormLocked recomputes MessageCount and LastMessage from the
// message log. Must be called with lock held.
func (s *Store) refreshDenormLocked(thread *Thread) {
	msgs := s.messages[thread.ID]
	thread.MessageCount = len(msgs)
	if len(msgs) == 0 {
		thread.LastMessage = ""
		return
	}
	thread.LastMessage = plainTextPreview(msgs[len(msgs)-1].Content, previewLength)
}

func (s *Store) scheduleSaveLocked() {
	if s.writer != nil {
		s.writer.Schedule()
	}
}

var _ generator.Sink = (*Store)(nil)
