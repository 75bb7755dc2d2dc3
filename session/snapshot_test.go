package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func snapshotPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := snapshotPath(t)

	s := New(Options{SnapshotPath: path})
	threadID := s.CreateThread(ModeResearch)
	require.NoError(t, s.SendMessage("persist me"))
	s.UpdateSettings(Settings{RTL: true, Hijri: true, Temperature: 0.3})
	s.SetComposer(Composer{Text: "unsent draft", Lang: LangAr})
	require.NoError(t, s.Close())

	restored := New(Options{SnapshotPath: path})
	defer restored.Close()

	threads := restored.Threads()
	require.Len(t, threads, 1)
	require.Equal(t, threadID, threads[0].ID)
	require.Equal(t, ModeResearch, threads[0].Mode)
	require.Equal(t, 1, threads[0].MessageCount)
	require.Equal(t, "persist me", threads[0].LastMessage)

	active := restored.ActiveThread()
	require.NotNil(t, active)
	require.Equal(t, threadID, active.ID)
	require.Equal(t, ModeResearch, restored.Mode())

	msgs := restored.ActiveMessages()
	require.Len(t, msgs, 1)
	require.Equal(t, "persist me", msgs[0].Content)

	settings := restored.Settings()
	require.True(t, settings.RTL)
	require.True(t, settings.Hijri)
	require.Equal(t, 0.3, settings.Temperature)

	// The composer is transient and must not survive a restart.
	require.Empty(t, restored.Composer().Text)
	require.Equal(t, LangEn, restored.Composer().Lang)
}

func TestSnapshotContainsOnlyAllowedKeys(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	s.CreateThread(ModeChat)
	data, err := s.snapshotJSON()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	require.Contains(t, raw, "threads")
	require.Contains(t, raw, "activeThreadId")
	require.Contains(t, raw, "messagesByThread")
	require.Contains(t, raw, "settings")
	require.Len(t, raw, 4)
}

func TestSnapshotFinalizesOrphanedStreams(t *testing.T) {
	path := snapshotPath(t)

	// A crash mid-generation leaves isStreaming set in the snapshot. The
	// producer behind it is gone, so restore must clear the flag.
	state := `{
		"threads": [{"id": "t1", "title": "New chat", "mode": "chat", "messageCount": 1}],
		"activeThreadId": "t1",
		"messagesByThread": {"t1": [
			{"id": "m1", "threadId": "t1", "role": "assistant", "content": "partial answer", "isStreaming": true}
		]},
		"settings": {"temperature": 0.7}
	}`
	require.NoError(t, os.WriteFile(path, []byte(state), 0o644))

	s := New(Options{SnapshotPath: path})
	defer s.Close()

	m, ok := s.Message("m1")
	require.True(t, ok)
	require.False(t, m.IsStreaming)
	require.Equal(t, "partial answer", m.Content)
	require.Equal(t, "t1", s.ActiveThread().ID)
}

func TestSnapshotMissingFileStartsFresh(t *testing.T) {
	s := New(Options{SnapshotPath: snapshotPath(t)})
	defer s.Close()

	require.Empty(t, s.Threads())
	require.Nil(t, s.ActiveThread())
	require.Equal(t, ModeChat, s.Mode())
	require.Equal(t, 0.7, s.Settings().Temperature)
}

func TestSnapshotCorruptFileIsIgnored(t *testing.T) {
	path := snapshotPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(Options{SnapshotPath: path})
	defer s.Close()

	require.Empty(t, s.Threads())
}

func TestSnapshotDanglingActiveThreadID(t *testing.T) {
	path := snapshotPath(t)
	state := `{"threads": [], "activeThreadId": "gone", "messagesByThread": {}, "settings": {"temperature": 0.5}}`
	require.NoError(t, os.WriteFile(path, []byte(state), 0o644))

	s := New(Options{SnapshotPath: path})
	defer s.Close()

	require.Nil(t, s.ActiveThread())
	require.Equal(t, 0.5, s.Settings().Temperature)
}

func TestFlushWritesImmediately(t *testing.T) {
	path := snapshotPath(t)

	s := New(Options{SnapshotPath: path})
	defer s.Close()

	s.CreateThread(ModeChat)
	s.Flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var state snapshotState
	require.NoError(t, json.Unmarshal(data, &state))
	require.Len(t, state.Threads, 1)
	require.NotNil(t, state.ActiveThreadID)
}
