// Package model defines the small provider-agnostic contract an External-
// tract particle uses to call out to a language model, plus three
// concrete adapters (Anthropic, OpenAI, AWS Bedrock).
//
// Grounded on the provider-adapter shape of features/model/{anthropic,
// openai,bedrock}, trimmed hard: that package's Client speaks a full
// multimodal Request/Response (Part,
// ToolCall, Citation, streaming, thinking budgets) because it backs a
// general-purpose agent runtime. cmd/ccdemo's responder only needs a
// single prompt in, a single string out, so Client here is reduced to
// that one call.
package model

import "context"

// Client completes a single text prompt against a language model
// provider and returns its text response.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
