package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	apierrors "github.com/muhandis-ai/muhandis/server/internal/errors"
	"github.com/muhandis-ai/muhandis/server/middleware"
	"github.com/muhandis-ai/muhandis/store"
)

type threadResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Mode         string    `json:"mode"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	IsStarred    bool      `json:"isStarred"`
	IsArchived   bool      `json:"isArchived"`
	LastMessage  string    `json:"lastMessage"`
	MessageCount int       `json:"messageCount,omitempty"`
}

type createThreadRequest struct {
	Title string `json:"title"`
	Mode  string `json:"mode"`
}

type updateThreadRequest struct {
	Title      *string `json:"title"`
	Mode       *string `json:"mode"`
	IsStarred  *bool   `json:"isStarred"`
	IsArchived *bool   `json:"isArchived"`
}

func convertThread(t *store.Thread) threadResponse {
	return threadResponse{
		ID:          t.UID,
		Title:       t.Title,
		Mode:        strings.ToLower(string(t.Mode)),
		CreatedAt:   time.Unix(t.CreatedTs, 0),
		UpdatedAt:   time.Unix(t.UpdatedTs, 0),
		IsStarred:   t.Starred,
		IsArchived:  t.RowStatus == store.Archived,
		LastMessage: t.LastMessage,
	}
}

func parseThreadMode(mode string) (store.ThreadMode, bool) {
	switch strings.ToLower(mode) {
	case "", "chat":
		return store.ThreadModeChat, true
	case "research":
		return store.ThreadModeResearch, true
	case "image":
		return store.ThreadModeImage, true
	case "agent":
		return store.ThreadModeAgent, true
	case "connectors":
		return store.ThreadModeConnectors, true
	}
	return "", false
}

func currentUserID(c echo.Context) int32 {
	if id, ok := c.Get(middleware.UserIDContextKey).(int32); ok && id > 0 {
		return id
	}
	return hostUserID
}

// findThreadByUID resolves a wire-level thread id onto its row.
func (s *APIV1Service) findThreadByUID(c echo.Context, uid string) (*store.Thread, error) {
	threads, err := s.Store.ListThreads(c.Request().Context(), &store.FindThread{UID: &uid})
	if err != nil {
		return nil, apierrors.Internal("failed to load thread", err)
	}
	if len(threads) == 0 {
		return nil, apierrors.ThreadNotFound(uid)
	}
	return threads[0], nil
}

// ListThreads returns all threads, newest first.
func (s *APIV1Service) ListThreads(c echo.Context) error {
	creatorID := currentUserID(c)
	threads, err := s.Store.ListThreads(c.Request().Context(), &store.FindThread{CreatorID: &creatorID})
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to list threads", err))
	}

	resp := make([]threadResponse, len(threads))
	for i, t := range threads {
		resp[i] = convertThread(t)
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateThread creates a new thread.
func (s *APIV1Service) CreateThread(c echo.Context) error {
	var req createThreadRequest
	if err := c.Bind(&req); err != nil {
		return writeChatError(c, apierrors.InvalidArgument("malformed create thread request"))
	}

	mode, ok := parseThreadMode(req.Mode)
	if !ok {
		return writeChatError(c, apierrors.InvalidArgument("unknown thread mode: "+req.Mode))
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New chat"
	}

	now := time.Now().Unix()
	thread, err := s.Store.CreateThread(c.Request().Context(), &store.Thread{
		UID:       shortuuid.New(),
		CreatorID: currentUserID(c),
		Title:     title,
		Mode:      mode,
		CreatedTs: now,
		UpdatedTs: now,
		RowStatus: store.Normal,
	})
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to create thread", err))
	}
	return c.JSON(http.StatusOK, convertThread(thread))
}

// GetThread returns a single thread with its message count.
func (s *APIV1Service) GetThread(c echo.Context) error {
	thread, err := s.findThreadByUID(c, c.Param("uid"))
	if err != nil {
		return writeChatError(c, err)
	}

	resp := convertThread(thread)
	messages, err := s.Store.ListMessages(c.Request().Context(), &store.FindMessage{ThreadID: &thread.ID})
	if err == nil {
		resp.MessageCount = len(messages)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateThread applies a partial update: title, mode, starred, archived.
func (s *APIV1Service) UpdateThread(c echo.Context) error {
	thread, err := s.findThreadByUID(c, c.Param("uid"))
	if err != nil {
		return writeChatError(c, err)
	}

	var req updateThreadRequest
	if err := c.Bind(&req); err != nil {
		return writeChatError(c, apierrors.InvalidArgument("malformed update thread request"))
	}

	update := &store.UpdateThread{ID: thread.ID}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return writeChatError(c, apierrors.InvalidArgument("thread title cannot be empty"))
		}
		update.Title = &title
	}
	if req.Mode != nil {
		mode, ok := parseThreadMode(*req.Mode)
		if !ok {
			return writeChatError(c, apierrors.InvalidArgument("unknown thread mode: "+*req.Mode))
		}
		update.Mode = &mode
	}
	if req.IsStarred != nil {
		update.Starred = req.IsStarred
	}
	if req.IsArchived != nil {
		status := store.Normal
		if *req.IsArchived {
			status = store.Archived
		}
		update.RowStatus = &status
	}
	now := time.Now().Unix()
	update.UpdatedTs = &now

	updated, err := s.Store.UpdateThread(c.Request().Context(), update)
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to update thread", err))
	}
	return c.JSON(http.StatusOK, convertThread(updated))
}

// DeleteThread removes the thread and its message log.
func (s *APIV1Service) DeleteThread(c echo.Context) error {
	thread, err := s.findThreadByUID(c, c.Param("uid"))
	if err != nil {
		return writeChatError(c, err)
	}

	// An in-flight generation on this thread dies with it.
	s.chat.stopIfThread(thread.ID)

	if err := s.Store.DeleteThread(c.Request().Context(), &store.DeleteThread{ID: thread.ID}); err != nil {
		return writeChatError(c, apierrors.Internal("failed to delete thread", err))
	}
	return c.NoContent(http.StatusNoContent)
}
