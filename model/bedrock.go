package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
)

// ErrThrottled wraps a Bedrock Converse error recognized as throttling
// by IsThrottled, so callers can distinguish it from other failures
// without depending on AWS's concrete error types.
var ErrThrottled = errors.New("model: bedrock request throttled")

// IsThrottled reports whether err is an AWS throttling error
// (ThrottlingException / TooManyRequestsException), the signal a
// caller-supplied retry policy should watch for.
func IsThrottled(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	return false
}

// bedrockRuntime captures the subset of the AWS Bedrock runtime client
// used by BedrockClient, matching *bedrockruntime.Client so tests can
// substitute a fake.
type bedrockRuntime interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient implements Client on top of the AWS Bedrock Converse API.
type BedrockClient struct {
	runtime bedrockRuntime
	modelID string
}

// NewBedrockClient builds a Bedrock-backed Client. runtime is typically
// bedrockruntime.NewFromConfig constructed from an aws.Config loaded by
// the caller (config.LoadDefaultConfig), kept out of this constructor so
// callers control credential resolution.
func NewBedrockClient(runtime *bedrockruntime.Client, modelID string) (*BedrockClient, error) {
	if runtime == nil {
		return nil, errors.New("model: bedrock runtime client is required")
	}
	if modelID == "" {
		return nil, errors.New("model: bedrock model identifier is required")
	}
	return &BedrockClient{runtime: runtime, modelID: modelID}, nil
}

// Complete sends prompt as a single user message through Converse and
// concatenates the text blocks of the reply.
func (c *BedrockClient) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := c.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		Messages: []brtypes.Message{
			{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: prompt}},
			},
		},
	})
	if err != nil {
		if IsThrottled(err) {
			return "", fmt.Errorf("%w: %w", ErrThrottled, err)
		}
		return "", fmt.Errorf("model: bedrock complete: %w", err)
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", nil
	}
	var text string
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}
	return text, nil
}
