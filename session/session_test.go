package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/muhandis-ai/muhandis/plugin/generator"
)

// blockingProducer emits a single chunk, reports the message id it is feeding,
// and then holds the stream open until cancelled. It lets tests observe the
// mid-stream state deterministically.
type blockingProducer struct {
	started chan string
}

func newBlockingProducer() *blockingProducer {
	return &blockingProducer{started: make(chan string, 4)}
}

func (p *blockingProducer) Generate(ctx context.Context, req *generator.Request, sink generator.Sink) {
	sink.AppendStreamChunk(req.MessageID, "partial")
	p.started <- req.MessageID
	<-ctx.Done()
}

func waitIdle(t *testing.T, s *Store) {
	t.Helper()
	require.Eventually(t, func() bool { return !s.IsGenerating() }, time.Second, 5*time.Millisecond)
}

func scripted(chunks ...string) *generator.ScriptedProducer {
	p := generator.NewScriptedProducer(func(_ *generator.Request) []string {
		return chunks
	})
	p.Interval = 0
	return p
}

func TestCreateThreadBecomesActive(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	id := s.CreateThread(ModeResearch)

	active := s.ActiveThread()
	require.NotNil(t, active)
	require.Equal(t, id, active.ID)
	require.Equal(t, "New chat", active.Title)
	require.Equal(t, ModeResearch, active.Mode)
	require.Equal(t, ModeResearch, s.Mode())
	require.Zero(t, active.MessageCount)
}

func TestThreadsOrderedNewestFirst(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	first := s.CreateThread(ModeChat)
	second := s.CreateThread(ModeChat)

	threads := s.Threads()
	require.Len(t, threads, 2)
	require.Equal(t, second, threads[0].ID)
	require.Equal(t, first, threads[1].ID)
}

func TestCreateThreadInvalidModeFallsBackToChat(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	s.CreateThread(Mode("teleport"))
	require.Equal(t, ModeChat, s.ActiveThread().Mode)
}

func TestSendMessageCreatesThreadImplicitly(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	require.Nil(t, s.ActiveThread())
	require.NoError(t, s.SendMessage("hello world"))

	active := s.ActiveThread()
	require.NotNil(t, active)
	require.Equal(t, 1, active.MessageCount)
	require.Equal(t, "hello world", active.LastMessage)

	msgs := s.ActiveMessages()
	require.Len(t, msgs, 1)
	require.Equal(t, RoleUser, msgs[0].Role)
	require.Equal(t, active.ID, msgs[0].ThreadID)
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	require.ErrorIs(t, s.SendMessage("   \n\t"), ErrEmptyContent)
	require.Nil(t, s.ActiveThread())
}

func TestSendMessageResetsComposer(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	s.SetComposer(Composer{Text: "draft", Lang: LangAr, Translate: true})
	require.NoError(t, s.SendMessage("draft"))

	c := s.Composer()
	require.Empty(t, c.Text)
	require.Empty(t, c.Files)
	require.Equal(t, LangEn, c.Lang)
	require.False(t, c.Translate)
}

func TestStreamingLifecycle(t *testing.T) {
	s := New(Options{Producer: scripted("Hi", " there")})
	defer s.Close()

	require.NoError(t, s.SendMessage("greet me"))
	waitIdle(t, s)

	msgs := s.ActiveMessages()
	require.Len(t, msgs, 2)

	reply := msgs[1]
	require.Equal(t, RoleAssistant, reply.Role)
	require.Equal(t, "Hi there", reply.Content)
	require.False(t, reply.IsStreaming)
	require.Empty(t, reply.Error)

	active := s.ActiveThread()
	require.Equal(t, 2, active.MessageCount)
	require.Equal(t, "Hi there", active.LastMessage)
}

func TestFailedGenerationKeepsPartialContent(t *testing.T) {
	p := scripted("half a")
	p.FailWith = "provider unavailable"
	s := New(Options{Producer: p})
	defer s.Close()

	require.NoError(t, s.SendMessage("question"))
	waitIdle(t, s)

	msgs := s.ActiveMessages()
	require.Len(t, msgs, 2)
	require.Equal(t, "half a", msgs[1].Content)
	require.Equal(t, "provider unavailable", msgs[1].Error)
	require.False(t, msgs[1].IsStreaming)
}

func TestStopGenerationFinalizesWithoutError(t *testing.T) {
	p := newBlockingProducer()
	s := New(Options{Producer: p})
	defer s.Close()

	require.NoError(t, s.SendMessage("long question"))
	id := <-p.started

	s.StopGeneration()
	require.False(t, s.IsGenerating())

	m, ok := s.Message(id)
	require.True(t, ok)
	require.Equal(t, "partial", m.Content)
	require.False(t, m.IsStreaming)
	require.Empty(t, m.Error)
}

func TestChunkAfterStopIsDropped(t *testing.T) {
	p := newBlockingProducer()
	s := New(Options{Producer: p})
	defer s.Close()

	require.NoError(t, s.SendMessage("question"))
	id := <-p.started
	s.StopGeneration()

	// A late chunk racing the stop must not mutate the finalized message.
	s.AppendStreamChunk(id, " late")
	s.CompleteGeneration(id)

	m, _ := s.Message(id)
	require.Equal(t, "partial", m.Content)
	require.Empty(t, m.Error)
}

func TestNewSendPreemptsInFlightGeneration(t *testing.T) {
	p := newBlockingProducer()
	s := New(Options{Producer: p})
	defer s.Close()

	require.NoError(t, s.SendMessage("first"))
	firstID := <-p.started

	require.NoError(t, s.SendMessage("second"))
	secondID := <-p.started
	require.NotEqual(t, firstID, secondID)

	first, _ := s.Message(firstID)
	require.False(t, first.IsStreaming)
	require.Empty(t, first.Error)

	second, ok := s.Message(secondID)
	require.True(t, ok)
	require.True(t, second.IsStreaming)

	s.StopGeneration()
}

func TestSelectThreadSyncsMode(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	research := s.CreateThread(ModeResearch)
	s.CreateThread(ModeChat)
	require.Equal(t, ModeChat, s.Mode())

	require.NoError(t, s.SelectThread(research))
	require.Equal(t, ModeResearch, s.Mode())
	require.Equal(t, research, s.ActiveThread().ID)
}

func TestSelectThreadUnknown(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	require.ErrorIs(t, s.SelectThread("missing"), ErrThreadNotFound)
}

func TestSwitchModeUpdatesActiveThread(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	s.CreateThread(ModeChat)
	s.SwitchMode(ModeImage)

	require.Equal(t, ModeImage, s.Mode())
	require.Equal(t, ModeImage, s.ActiveThread().Mode)

	s.SwitchMode(Mode("bogus"))
	require.Equal(t, ModeImage, s.Mode())
}

func TestStarAndArchiveToggle(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	id := s.CreateThread(ModeChat)

	s.StarThread(id)
	require.True(t, s.ActiveThread().IsStarred)
	s.StarThread(id)
	require.False(t, s.ActiveThread().IsStarred)

	s.ArchiveThread(id)
	require.True(t, s.ActiveThread().IsArchived)

	// Unknown ids are no-ops.
	s.StarThread("missing")
	s.ArchiveThread("missing")
	s.DeleteThread("missing")
	require.Len(t, s.Threads(), 1)
}

func TestDeleteThreadClearsStateAndSelection(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	id := s.CreateThread(ModeChat)
	require.NoError(t, s.SendMessage("to be deleted"))
	msgID := s.ActiveMessages()[0].ID

	s.DeleteThread(id)

	require.Nil(t, s.ActiveThread())
	require.Empty(t, s.Threads())
	require.Empty(t, s.ActiveMessages())
	_, ok := s.Message(msgID)
	require.False(t, ok)
}

func TestDeleteThreadCancelsItsGeneration(t *testing.T) {
	p := newBlockingProducer()
	s := New(Options{Producer: p})
	defer s.Close()

	require.NoError(t, s.SendMessage("question"))
	<-p.started
	require.True(t, s.IsGenerating())

	s.DeleteThread(s.ActiveThread().ID)
	require.False(t, s.IsGenerating())
}

func TestUpdateSettingsClampsTemperature(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	s.UpdateSettings(Settings{Temperature: 3.5, RTL: true})
	require.Equal(t, 1.0, s.Settings().Temperature)
	require.True(t, s.Settings().RTL)

	s.UpdateSettings(Settings{Temperature: -1})
	require.Zero(t, s.Settings().Temperature)
}

func TestLastMessagePreviewIsTruncatedPlainText(t *testing.T) {
	s := New(Options{Producer: scripted("**Summary:** " + strings.Repeat("go ", 60))})
	defer s.Close()

	require.NoError(t, s.SendMessage("ramble"))
	waitIdle(t, s)

	preview := s.ActiveThread().LastMessage
	require.NotContains(t, preview, "*")
	require.True(t, strings.HasSuffix(preview, "…"))
}
