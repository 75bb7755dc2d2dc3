package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/muhandis-ai/muhandis/plugin/generator"
	"github.com/muhandis-ai/muhandis/server/finops"
	apierrors "github.com/muhandis-ai/muhandis/server/internal/errors"
	"github.com/muhandis-ai/muhandis/server/internal/observability"
	"github.com/muhandis-ai/muhandis/store"
)

// chatState holds the single in-flight generation. The API rejects a second
// concurrent generation instead of queueing it.
type chatState struct {
	mu       sync.Mutex
	cancel   context.CancelFunc
	threadID int32
}

// tryStart claims the generation slot. Returns false when one is running.
func (cs *chatState) tryStart(threadID int32, cancel context.CancelFunc) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.cancel != nil {
		return false
	}
	cs.cancel = cancel
	cs.threadID = threadID
	return true
}

func (cs *chatState) finish() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.cancel = nil
	cs.threadID = 0
}

func (cs *chatState) stop() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.cancel == nil {
		return false
	}
	cs.cancel()
	return true
}

func (cs *chatState) stopIfThread(threadID int32) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.cancel != nil && cs.threadID == threadID {
		cs.cancel()
	}
}

type messageResponse struct {
	ID          string              `json:"id"`
	ThreadID    string              `json:"threadId"`
	Role        string              `json:"role"`
	Content     string              `json:"content"`
	Timestamp   time.Time           `json:"timestamp"`
	Mode        string              `json:"mode"`
	Attachments []attachmentRef     `json:"attachments,omitempty"`
	Citations   []citationRef       `json:"citations,omitempty"`
	Images      []generatedImageRef `json:"images,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type attachmentRef struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

type citationRef struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

type generatedImageRef struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt,omitempty"`
}

// messagePayload is the JSON stored in the message row's payload column.
type messagePayload struct {
	Attachments []attachmentRef     `json:"attachments,omitempty"`
	Citations   []citationRef       `json:"citations,omitempty"`
	Images      []generatedImageRef `json:"images,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type sendMessageRequest struct {
	Content     string          `json:"content"`
	Attachments []attachmentRef `json:"attachments"`
}

func convertMessage(m *store.Message, threadUID string, mode store.ThreadMode) messageResponse {
	resp := messageResponse{
		ID:        m.UID,
		ThreadID:  threadUID,
		Role:      strings.ToLower(string(m.Role)),
		Content:   m.Content,
		Timestamp: time.Unix(m.CreatedTs, 0),
		Mode:      strings.ToLower(string(mode)),
	}
	if m.Payload != "" {
		var payload messagePayload
		if err := json.Unmarshal([]byte(m.Payload), &payload); err == nil {
			resp.Attachments = payload.Attachments
			resp.Citations = payload.Citations
			resp.Images = payload.Images
			resp.Error = payload.Error
		}
	}
	return resp
}

// ListMessages returns the thread's messages in insertion order.
func (s *APIV1Service) ListMessages(c echo.Context) error {
	thread, err := s.findThreadByUID(c, c.Param("uid"))
	if err != nil {
		return writeChatError(c, err)
	}

	messages, err := s.Store.ListMessages(c.Request().Context(), &store.FindMessage{ThreadID: &thread.ID})
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to list messages", err))
	}

	resp := make([]messageResponse, len(messages))
	for i, m := range messages {
		resp[i] = convertMessage(m, thread.UID, thread.Mode)
	}
	return c.JSON(http.StatusOK, resp)
}

// SendMessage persists the user message and streams the assistant reply over
// SSE. Events: "message" carries the stored user message, "chunk" carries
// content deltas, "done" carries the final assistant message, "error" carries
// a terminal failure.
func (s *APIV1Service) SendMessage(c echo.Context) error {
	thread, err := s.findThreadByUID(c, c.Param("uid"))
	if err != nil {
		return writeChatError(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return writeChatError(c, apierrors.InvalidArgument("malformed send message request"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return writeChatError(c, apierrors.InvalidArgument("message content cannot be empty"))
	}

	ctx := c.Request().Context()
	userMsg, err := s.persistMessage(ctx, thread, store.MessageRoleUser, req.Content, &messagePayload{Attachments: req.Attachments})
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to store message", err))
	}

	if s.Producer == nil {
		return c.JSON(http.StatusOK, convertMessage(userMsg, thread.UID, thread.Mode))
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !s.chat.tryStart(thread.ID, cancel) {
		return writeChatError(c, apierrors.RateLimitExceeded("another generation is already in progress"))
	}
	defer s.chat.finish()

	reqCtx := observability.NewRequestContext(s.logger, strings.ToLower(string(thread.Mode)), currentUserID(c))
	reqCtx.Info("generation started",
		slog.String(observability.LogFieldThreadUID, thread.UID),
		slog.Int(observability.LogFieldMessageLen, len(req.Content)))

	history, err := s.buildHistory(ctx, thread.ID)
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to build history", err))
	}

	stream := newSSEStream(c)
	stream.send("message", convertMessage(userMsg, thread.UID, thread.Mode))

	sink := &sseSink{stream: stream}
	metrics := observability.GlobalMetrics()
	metrics.RecordGeneration(reqCtx.Mode)

	s.Producer.Generate(genCtx, &generator.Request{
		MessageID:   shortuuid.New(),
		Messages:    history,
		Model:       s.Profile.AIModel,
		Temperature: float32(s.Profile.AITemperature),
	}, sink)

	metrics.RecordDuration(reqCtx.Mode, reqCtx.Duration())
	if sink.errMessage != "" {
		metrics.RecordFailure(reqCtx.Mode)
	}

	// Cancellation keeps the partial content without an error mark.
	assistantMsg, err := s.persistMessage(ctx, thread, store.MessageRoleAssistant, sink.content.String(), &messagePayload{Error: sink.errMessage})
	if err != nil {
		reqCtx.Error("failed to store assistant message", err)
		stream.send("error", map[string]string{"message": "failed to store reply"})
		return nil
	}

	s.recordGeneration(reqCtx, thread, userMsg, sink)
	stream.send("done", convertMessage(assistantMsg, thread.UID, thread.Mode))
	return nil
}

// StopGeneration cancels the in-flight generation, if any.
func (s *APIV1Service) StopGeneration(c echo.Context) error {
	stopped := s.chat.stop()
	return c.JSON(http.StatusOK, map[string]bool{"stopped": stopped})
}

// persistMessage stores a message row and refreshes the thread's preview.
func (s *APIV1Service) persistMessage(ctx context.Context, thread *store.Thread, role store.MessageRole, content string, payload *messagePayload) (*store.Message, error) {
	payloadJSON := ""
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil && string(data) != "{}" {
			payloadJSON = string(data)
		}
	}

	msg, err := s.Store.CreateMessage(ctx, &store.Message{
		UID:       shortuuid.New(),
		ThreadID:  thread.ID,
		Role:      role,
		Content:   content,
		Payload:   payloadJSON,
		CreatedTs: time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}

	preview := content
	if len(preview) > 120 {
		preview = preview[:120]
	}
	now := time.Now().Unix()
	if _, err := s.Store.UpdateThread(ctx, &store.UpdateThread{
		ID:          thread.ID,
		LastMessage: &preview,
		UpdatedTs:   &now,
	}); err != nil {
		s.logger.Warn("failed to refresh thread preview", "thread_uid", thread.UID, "error", err)
	}
	return msg, nil
}

// buildHistory converts the thread's rows into producer input, skipping
// messages whose generation failed.
func (s *APIV1Service) buildHistory(ctx context.Context, threadID int32) ([]generator.Message, error) {
	rows, err := s.Store.ListMessages(ctx, &store.FindMessage{ThreadID: &threadID})
	if err != nil {
		return nil, err
	}

	history := make([]generator.Message, 0, len(rows))
	for _, row := range rows {
		if row.Payload != "" {
			var payload messagePayload
			if err := json.Unmarshal([]byte(row.Payload), &payload); err == nil && payload.Error != "" {
				continue
			}
		}
		history = append(history, generator.Message{
			Role:    strings.ToLower(string(row.Role)),
			Content: row.Content,
		})
	}
	return history, nil
}

// recordGeneration writes the usage event log entry and stats for one
// finished generation.
func (s *APIV1Service) recordGeneration(reqCtx *observability.RequestContext, thread *store.Thread, userMsg *store.Message, sink *sseSink) {
	s.Stats.RecordGeneration()

	usage := &finops.GenerationUsage{
		UserID:       reqCtx.UserID,
		Mode:         reqCtx.Mode,
		InputTokens:  finops.EstimateTokens(len(userMsg.Content)),
		OutputTokens: finops.EstimateTokens(sink.content.Len()),
		LatencyMs:    reqCtx.DurationMs(),
		Failed:       sink.errMessage != "",
	}
	if err := s.Usage.Record(context.Background(), usage); err != nil {
		reqCtx.Warn("failed to record generation usage")
	}

	reqCtx.Info("generation finished",
		slog.String(observability.LogFieldThreadUID, thread.UID),
		slog.Int64(observability.LogFieldDuration, usage.LatencyMs),
		slog.Int(observability.LogFieldChunkCount, sink.chunks))
}

// sseStream writes server-sent events onto an echo response.
type sseStream struct {
	c echo.Context
}

func newSSEStream(c echo.Context) *sseStream {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	return &sseStream{c: c}
}

func (st *sseStream) send(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(st.c.Response(), "event: %s\ndata: %s\n\n", event, payload)
	st.c.Response().Flush()
}

// sseSink forwards producer callbacks onto the SSE stream while accumulating
// the full reply for persistence.
type sseSink struct {
	stream     *sseStream
	content    strings.Builder
	chunks     int
	errMessage string
}

func (s *sseSink) AppendStreamChunk(messageID string, delta string) {
	s.content.WriteString(delta)
	s.chunks++
	observability.GlobalMetrics().RecordStreamChunk()
	s.stream.send("chunk", map[string]string{"id": messageID, "delta": delta})
}

func (s *sseSink) CompleteGeneration(string) {}

func (s *sseSink) FailGeneration(_ string, errMessage string) {
	s.errMessage = errMessage
	s.stream.send("error", map[string]string{"message": errMessage})
}

var _ generator.Sink = (*sseSink)(nil)
