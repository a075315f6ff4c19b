package model

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnthropicMessages struct {
	got  sdk.MessageNewParams
	resp *sdk.Message
	err  error
}

func (f *fakeAnthropicMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.got = body
	return f.resp, f.err
}

func TestAnthropicClientCompleteConcatenatesTextBlocks(t *testing.T) {
	fake := &fakeAnthropicMessages{
		resp: &sdk.Message{
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "hello "},
				{Type: "text", Text: "world"},
			},
		},
	}
	c := &AnthropicClient{msg: fake, model: "claude-test", maxTokens: 256}

	out, err := c.Complete(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
	assert.Equal(t, sdk.Model("claude-test"), fake.got.Model)
	assert.Len(t, fake.got.Messages, 1)
}

func TestNewAnthropicClientRejectsMissingFields(t *testing.T) {
	_, err := NewAnthropicClient("", "claude-test", 100)
	assert.Error(t, err)

	_, err = NewAnthropicClient("key", "", 100)
	assert.Error(t, err)
}
