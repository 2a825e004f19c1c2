package model

import (
	"context"
	"strings"

	"github.com/specfoundry/specfoundry/pkg/parser"
)

// GenerationRequest carries one normalized artifact-generation call.
// The orchestrator fills prompts and history; providers decide how to
// encode the output strategy (delimiter tags vs tool calls).
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Format       parser.TagFormat
	IsUpdate     bool
	History      []Message
	Model        string
	Temperature  float64
	MaxTokens    int
}

// GenerationResult is the normalized outcome of a generation call.
type GenerationResult struct {
	Model       string
	RawResponse string
	Parsed      parser.ParsedResponse
	Usage       *Usage
}

// StreamEventType discriminates streaming sink events.
type StreamEventType string

const (
	StreamEventDelta StreamEventType = "delta"
	StreamEventDone  StreamEventType = "done"
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one unit delivered to a streaming sink. Delta events
// carry incremental display text; exactly one terminal event (done or
// error) ends every stream, including failed ones.
type StreamEvent struct {
	Type   StreamEventType
	Delta  string
	Result *GenerationResult
	Err    error
}

// StreamHandler receives stream events in order. Handlers must not
// block for long; they run on the provider's read loop.
type StreamHandler func(StreamEvent)

// Provider defines the behavior required for an LLM backend.
type Provider interface {
	ID() string
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// StreamingProvider is implemented by providers that can deliver
// incremental output. Callers discover support by type assertion.
type StreamingProvider interface {
	Provider
	GenerateStream(ctx context.Context, req GenerationRequest, handler StreamHandler) (*GenerationResult, error)
}

// normalizeModelForProvider strips provider prefixes (openai/, anthropic/)
// before sending requests to the underlying APIs.
func normalizeModelForProvider(modelID, providerID string) string {
	prefix := providerID + "/"
	if strings.HasPrefix(modelID, prefix) {
		return strings.TrimPrefix(modelID, prefix)
	}
	return modelID
}

// historyMessages converts request history into wire messages, remapping
// roles the target API does not accept.
func historyMessages(history []Message, remapSystem string) []Message {
	out := make([]Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == "system" && remapSystem != "" {
			msg.Role = remapSystem
		}
		out = append(out, msg)
	}
	return out
}
