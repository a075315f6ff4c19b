package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicMessages captures the subset of the Anthropic SDK used by
// AnthropicClient, so tests can substitute a fake in place of
// *sdk.MessageService.
type anthropicMessages interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements Client on top of the Anthropic Messages API.
type AnthropicClient struct {
	msg       anthropicMessages
	model     string
	maxTokens int64
}

// NewAnthropicClient builds an Anthropic-backed Client from an API key.
func NewAnthropicClient(apiKey, model string, maxTokens int64) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("model: anthropic api key is required")
	}
	if model == "" {
		return nil, errors.New("model: anthropic model identifier is required")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{msg: client.Messages, model: model, maxTokens: maxTokens}, nil
}

// Complete sends prompt as a single user message and concatenates the
// text blocks of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.msg.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("model: anthropic complete: %w", err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
