package model

import (
	"context"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpenAICompletions struct {
	got  openai.ChatCompletionNewParams
	resp *openai.ChatCompletion
	err  error
}

func (f *fakeOpenAICompletions) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.got = body
	return f.resp, f.err
}

func TestOpenAIClientCompleteReturnsFirstChoice(t *testing.T) {
	fake := &fakeOpenAICompletions{
		resp: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "hi there"}},
			},
		},
	}
	c := &OpenAIClient{chat: fake, model: "gpt-test"}

	out, err := c.Complete(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
	assert.Equal(t, openai.ChatModel("gpt-test"), fake.got.Model)
}

func TestOpenAIClientCompleteNoChoicesReturnsEmpty(t *testing.T) {
	c := &OpenAIClient{chat: &fakeOpenAICompletions{resp: &openai.ChatCompletion{}}, model: "gpt-test"}
	out, err := c.Complete(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNewOpenAIClientRejectsMissingFields(t *testing.T) {
	_, err := NewOpenAIClient("", "gpt-test")
	assert.Error(t, err)

	_, err = NewOpenAIClient("key", "")
	assert.Error(t, err)
}
