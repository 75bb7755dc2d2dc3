package generator

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds the connection settings for an OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIProducer streams chat completions from an OpenAI-compatible endpoint.
type OpenAIProducer struct {
	client *openai.Client
	model  string
}

// NewOpenAIProducer creates a producer backed by the OpenAI chat API.
func NewOpenAIProducer(cfg *OpenAIConfig) *OpenAIProducer {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIProducer{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

func (p *OpenAIProducer) Generate(ctx context.Context, req *Request, sink Sink) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		sink.FailGeneration(req.MessageID, err.Error())
		return
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			sink.CompleteGeneration(req.MessageID)
			return
		}
		if err != nil {
			// Cancelled streams surface as context errors; the session has
			// already finalized the message, so stay silent.
			if ctx.Err() != nil {
				return
			}
			sink.FailGeneration(req.MessageID, err.Error())
			return
		}

		if len(response.Choices) > 0 {
			if delta := response.Choices[0].Delta.Content; delta != "" {
				sink.AppendStreamChunk(req.MessageID, delta)
			}
		}
	}
}

var _ Producer = (*OpenAIProducer)(nil)
