package model

import (
	"strings"
	"sync"
)

// streamAccumulatorPool recycles StreamAccumulator instances to reduce
// GC pressure during streaming operations.
var streamAccumulatorPool = sync.Pool{
	New: func() any {
		return &StreamAccumulator{}
	},
}

// AcquireStreamAccumulator retrieves a StreamAccumulator from the pool.
// The accumulator is reset and ready for use.
func AcquireStreamAccumulator() *StreamAccumulator {
	a := streamAccumulatorPool.Get().(*StreamAccumulator)
	a.Reset()
	return a
}

// ReleaseStreamAccumulator returns a StreamAccumulator to the pool for
// reuse. The accumulator must not be used after this call.
func ReleaseStreamAccumulator(a *StreamAccumulator) {
	if a == nil {
		return
	}
	a.Reset()
	streamAccumulatorPool.Put(a)
}

// StreamAccumulator accumulates streaming chunks into a complete
// response. Tool call deltas are merged by index following the
// OpenAI-compatible pattern: ID and name usually arrive in the first
// delta for an index, argument JSON arrives as fragments.
type StreamAccumulator struct {
	content   strings.Builder
	toolCalls []ToolCall
	usage     *Usage
	role      string
}

// Add processes a streaming chunk and accumulates its contents.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.Usage != nil {
		a.usage = chunk.Usage
	}
	if len(chunk.Choices) == 0 {
		return
	}

	delta := chunk.Choices[0].Delta
	if delta.Role != "" {
		a.role = delta.Role
	}
	if delta.Content != "" {
		a.content.WriteString(delta.Content)
	}
	for _, tc := range delta.ToolCalls {
		a.accumulateToolCall(tc)
	}
}

func (a *StreamAccumulator) accumulateToolCall(delta ToolCallDelta) {
	for len(a.toolCalls) <= delta.Index {
		a.toolCalls = append(a.toolCalls, ToolCall{Type: "function"})
	}

	tc := &a.toolCalls[delta.Index]
	if delta.ID != "" {
		tc.ID += delta.ID
	}
	if delta.Type != "" {
		tc.Type = delta.Type
	}
	if delta.Function != nil {
		if delta.Function.Name != "" {
			tc.Function.Name += delta.Function.Name
		}
		if delta.Function.Arguments != "" {
			tc.Function.Arguments += delta.Function.Arguments
		}
	}
}

// Content returns the accumulated text content.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}

// ToolCalls returns the accumulated tool calls.
func (a *StreamAccumulator) ToolCalls() []ToolCall {
	return a.toolCalls
}

// HasToolCalls returns true if any tool calls have been accumulated.
func (a *StreamAccumulator) HasToolCalls() bool {
	return len(a.toolCalls) > 0
}

// Usage returns the usage information from the final chunk.
func (a *StreamAccumulator) Usage() *Usage {
	return a.usage
}

// Message returns the accumulated message.
func (a *StreamAccumulator) Message() Message {
	return Message{
		Role:      a.role,
		Content:   a.content.String(),
		ToolCalls: a.toolCalls,
	}
}

// Reset clears the accumulator for reuse.
func (a *StreamAccumulator) Reset() {
	a.content.Reset()
	a.toolCalls = nil
	a.usage = nil
	a.role = ""
}
