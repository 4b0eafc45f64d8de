package agent

import "github.com/wirerag/ragcore/message"

// GenerateRequest bundles inputs for a LLM invocation.
type GenerateRequest struct {
	Messages []*message.Message
	Tools    []map[string]any
}

// GenerateResponse captures the LLM reply for calls.
type GenerateResponse struct {
	Message *message.Message

	// InputTokens/OutputTokens are the provider-reported token counts for
	// this call, when the provider reports them separately. Zero means the
	// caller should fall back to a 60/40 split of an estimated total.
	InputTokens  int
	OutputTokens int
}
