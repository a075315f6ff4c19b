package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiCompletions captures the subset of the OpenAI SDK used by
// OpenAIClient, so tests can substitute a fake in place of
// client.Chat.Completions.
type openaiCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIClient implements Client on top of the OpenAI chat completions API.
type OpenAIClient struct {
	chat  openaiCompletions
	model string
}

// NewOpenAIClient builds an OpenAI-backed Client from an API key.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("model: openai api key is required")
	}
	if model == "" {
		return nil, errors.New("model: openai model identifier is required")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{chat: client.Chat.Completions, model: model}, nil
}

// Complete sends prompt as a single user message and returns the first
// choice's message content.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("model: openai complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
