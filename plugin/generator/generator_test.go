package generator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingSink collects callbacks for assertions.
type recordingSink struct {
	mu        sync.Mutex
	content   strings.Builder
	completed int
	failedMsg string
}

func (s *recordingSink) AppendStreamChunk(_ string, delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content.WriteString(delta)
}

func (s *recordingSink) CompleteGeneration(_ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
}

func (s *recordingSink) FailGeneration(_ string, errMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedMsg = errMessage
}

func (s *recordingSink) snapshot() (string, int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content.String(), s.completed, s.failedMsg
}

func TestScriptedProducerEmitsAllChunks(t *testing.T) {
	p := NewScriptedProducer(func(_ *Request) []string {
		return []string{"Hi", " there"}
	})
	p.Interval = 0

	sink := &recordingSink{}
	p.Generate(context.Background(), &Request{MessageID: "m1"}, sink)

	content, completed, failed := sink.snapshot()
	require.Equal(t, "Hi there", content)
	require.Equal(t, 1, completed)
	require.Empty(t, failed)
}

func TestScriptedProducerFailure(t *testing.T) {
	p := NewScriptedProducer(func(_ *Request) []string {
		return []string{"partial"}
	})
	p.Interval = 0
	p.FailWith = "provider exploded"

	sink := &recordingSink{}
	p.Generate(context.Background(), &Request{MessageID: "m1"}, sink)

	content, completed, failed := sink.snapshot()
	require.Equal(t, "partial", content)
	require.Zero(t, completed)
	require.Equal(t, "provider exploded", failed)
}

func TestScriptedProducerStopsOnCancel(t *testing.T) {
	p := NewScriptedProducer(func(_ *Request) []string {
		return []string{"a", "b", "c", "d"}
	})
	p.Interval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Generate(ctx, &Request{MessageID: "m1"}, sink)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	content, completed, failed := sink.snapshot()
	require.Less(t, len(content), 4)
	// Cancellation neither completes nor fails the message.
	require.Zero(t, completed)
	require.Empty(t, failed)
}

func TestDefaultScriptSplitsReply(t *testing.T) {
	p := NewScriptedProducer(nil)
	p.Interval = 0

	sink := &recordingSink{}
	p.Generate(context.Background(), &Request{MessageID: "m1"}, sink)

	content, completed, _ := sink.snapshot()
	require.Equal(t, defaultScriptedReply, content)
	require.Equal(t, 1, completed)
}
