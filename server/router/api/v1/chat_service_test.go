package v1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muhandis-ai/muhandis/store"
)

func TestChatStateSingleFlight(t *testing.T) {
	cs := &chatState{}
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.True(t, cs.tryStart(1, cancel))
	require.False(t, cs.tryStart(2, cancel))

	cs.finish()
	require.True(t, cs.tryStart(2, cancel))
}

func TestChatStateStop(t *testing.T) {
	cs := &chatState{}
	require.False(t, cs.stop())

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, cs.tryStart(7, cancel))
	require.True(t, cs.stop())
	require.Error(t, ctx.Err())
}

func TestChatStateStopIfThread(t *testing.T) {
	cs := &chatState{}
	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, cs.tryStart(7, cancel))

	cs.stopIfThread(8)
	require.NoError(t, ctx.Err())

	cs.stopIfThread(7)
	require.Error(t, ctx.Err())
}

func TestParseThreadMode(t *testing.T) {
	mode, ok := parseThreadMode("")
	require.True(t, ok)
	require.Equal(t, store.ThreadModeChat, mode)

	mode, ok = parseThreadMode("Research")
	require.True(t, ok)
	require.Equal(t, store.ThreadModeResearch, mode)

	_, ok = parseThreadMode("teleport")
	require.False(t, ok)
}

func TestConvertThreadArchivedFlag(t *testing.T) {
	row := &store.Thread{
		UID:       "abc",
		Title:     "Pump sizing",
		Mode:      store.ThreadModeAgent,
		Starred:   true,
		RowStatus: store.Archived,
	}

	resp := convertThread(row)
	require.Equal(t, "abc", resp.ID)
	require.Equal(t, "agent", resp.Mode)
	require.True(t, resp.IsStarred)
	require.True(t, resp.IsArchived)
}

func TestConvertMessagePayload(t *testing.T) {
	row := &store.Message{
		UID:     "m1",
		Role:    store.MessageRoleAssistant,
		Content: "see attached",
		Payload: `{"attachments":[{"name":"spec.pdf","url":"/file/attachments/x.pdf"}],"error":"provider timeout"}`,
	}

	resp := convertMessage(row, "t1", store.ThreadModeChat)
	require.Equal(t, "assistant", resp.Role)
	require.Equal(t, "t1", resp.ThreadID)
	require.Len(t, resp.Attachments, 1)
	require.Equal(t, "spec.pdf", resp.Attachments[0].Name)
	require.Equal(t, "provider timeout", resp.Error)
}

func TestConvertMessageMalformedPayload(t *testing.T) {
	row := &store.Message{
		UID:     "m1",
		Role:    store.MessageRoleUser,
		Content: "hello",
		Payload: "{broken",
	}

	resp := convertMessage(row, "t1", store.ThreadModeChat)
	require.Equal(t, "hello", resp.Content)
	require.Empty(t, resp.Attachments)
	require.Empty(t, resp.Error)
}
