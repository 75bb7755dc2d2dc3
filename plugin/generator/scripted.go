package generator

import (
	"context"
	"strings"
	"time"
)

const defaultScriptedReply = "I could not reach a model provider, so this is a canned reply. " +
	"Configure a provider to get real answers."

// ScriptedProducer emits a fixed reply word by word on a timer. It stands in
// when no provider is configured and doubles as the deterministic producer
// for tests.
type ScriptedProducer struct {
	// Script maps a request to the chunks to emit. Nil falls back to the
	// default reply split on spaces.
	Script func(req *Request) []string
	// Interval between chunks. Zero means no delay.
	Interval time.Duration
	// FailWith, when non-empty, makes every generation fail after the chunks
	// are emitted.
	FailWith string
}

// NewScriptedProducer creates a producer that replays scripted chunks.
func NewScriptedProducer(script func(req *Request) []string) *ScriptedProducer {
	return &ScriptedProducer{
		Script:   script,
		Interval: 30 * time.Millisecond,
	}
}

func (p *ScriptedProducer) chunks(req *Request) []string {
	if p.Script != nil {
		return p.Script(req)
	}
	words := strings.Split(defaultScriptedReply, " ")
	chunks := make([]string, len(words))
	for i, w := range words {
		if i == 0 {
			chunks[i] = w
		} else {
			chunks[i] = " " + w
		}
	}
	return chunks
}

func (p *ScriptedProducer) Generate(ctx context.Context, req *Request, sink Sink) {
	for _, chunk := range p.chunks(req) {
		if p.Interval > 0 {
			select {
			case <-time.After(p.Interval):
			case <-ctx.Done():
				return
			}
		} else if ctx.Err() != nil {
			return
		}
		sink.AppendStreamChunk(req.MessageID, chunk)
	}

	if ctx.Err() != nil {
		return
	}

	if p.FailWith != "" {
		sink.FailGeneration(req.MessageID, p.FailWith)
		return
	}
	sink.CompleteGeneration(req.MessageID)
}

var _ Producer = (*ScriptedProducer)(nil)
