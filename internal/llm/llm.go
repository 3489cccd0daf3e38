// Package llm wraps the OpenAI-compatible chat-completion API of the local
// model server (Ollama's /v1 endpoint or anything speaking the same protocol).
package llm

import (
	"context"
	"errors"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/filechat/internal/config"
	"github.com/comigor/filechat/internal/session"
)

// OpenAIClient is the production Client backed by go-openai.
type OpenAIClient struct {
	api   *openai.Client
	model string
}

// NewClient creates a streaming chat client for the configured endpoint.
func NewClient(cfg config.LLMConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		api:   openai.NewClientWithConfig(clientCfg),
		model: cfg.Model,
	}
}

// StreamChat opens a streaming chat completion for the given message sequence.
func (c *OpenAIClient) StreamChat(ctx context.Context, turns []session.Turn) (Stream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}

	s, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	return &openaiStream{inner: s}, nil
}

type openaiStream struct {
	inner *openai.ChatCompletionStream
}

// Recv returns the next content fragment. io.EOF passes through as the
// terminal signal; any other error is wrapped as an InferenceError.
func (s *openaiStream) Recv() (string, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", &InferenceError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openaiStream) Close() error {
	return s.inner.Close()
}
