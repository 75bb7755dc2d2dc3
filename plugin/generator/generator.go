// Package generator produces assistant replies as an asynchronous stream of
// text deltas keyed by message id. Producers never touch session state
// directly; they report through the three Sink callbacks, and they stop
// emitting once their context is cancelled.
package generator

import (
	"context"
	"fmt"

	"github.com/muhandis-ai/muhandis/internal/profile"
)

// Message is one turn of model input.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Request describes a single generation, keyed by the assistant message the
// deltas belong to.
type Request struct {
	MessageID   string
	Messages    []Message
	Model       string
	Temperature float32
}

// Sink receives produced deltas and lifecycle transitions. Implementations
// must tolerate callbacks arriving after cancellation.
type Sink interface {
	AppendStreamChunk(messageID string, delta string)
	CompleteGeneration(messageID string)
	FailGeneration(messageID string, errMessage string)
}

// Producer generates one assistant reply per call.
type Producer interface {
	// Generate blocks until the generation completes, fails, or ctx is
	// cancelled. Callers run it in their own goroutine. On cancellation the
	// producer simply stops emitting; it does not call FailGeneration.
	Generate(ctx context.Context, req *Request, sink Sink)
}

// New creates a Producer from the profile. Without a configured provider the
// scripted producer keeps the session usable fully offline.
func New(p *profile.Profile) (Producer, error) {
	if !p.IsAIEnabled() {
		return NewScriptedProducer(nil), nil
	}

	switch p.AIProvider {
	case "openai", "deepseek":
		// DeepSeek is OpenAI-compatible; only the base URL differs.
		return NewOpenAIProducer(&OpenAIConfig{
			APIKey:  p.AIAPIKey,
			BaseURL: p.AIBaseURL,
			Model:   p.AIModel,
		}), nil
	case "scripted":
		return NewScriptedProducer(nil), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", p.AIProvider)
	}
}

// Helper for creating system prompts
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Helper for creating assistant messages
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
