package model

import "testing"

func TestStreamAccumulator_Content(t *testing.T) {
	acc := &StreamAccumulator{}
	acc.Add(StreamChunk{Choices: []StreamChoice{{Delta: MessageDelta{Role: "assistant", Content: "Hello"}}}})
	acc.Add(StreamChunk{Choices: []StreamChoice{{Delta: MessageDelta{Content: ", world"}}}})
	acc.Add(StreamChunk{Usage: &Usage{TotalTokens: 10}})

	if acc.Content() != "Hello, world" {
		t.Fatalf("unexpected content: %q", acc.Content())
	}
	if acc.Usage() == nil || acc.Usage().TotalTokens != 10 {
		t.Fatalf("expected usage from final chunk")
	}
	msg := acc.Message()
	if msg.Role != "assistant" {
		t.Fatalf("expected assistant role, got %q", msg.Role)
	}
}

func TestStreamAccumulator_ToolCallDeltas(t *testing.T) {
	acc := &StreamAccumulator{}
	acc.Add(StreamChunk{Choices: []StreamChoice{{Delta: MessageDelta{ToolCalls: []ToolCallDelta{
		{Index: 0, ID: "call_1", Type: "function", Function: &FunctionCallDelta{Name: "emit_artifact_content", Arguments: `{"cont`}},
	}}}}})
	acc.Add(StreamChunk{Choices: []StreamChoice{{Delta: MessageDelta{ToolCalls: []ToolCallDelta{
		{Index: 0, Function: &FunctionCallDelta{Arguments: `ent": "body"}`}},
	}}}}})

	if !acc.HasToolCalls() {
		t.Fatal("expected accumulated tool calls")
	}
	calls := acc.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].ID != "call_1" {
		t.Fatalf("unexpected id: %q", calls[0].ID)
	}
	if calls[0].Function.Arguments != `{"content": "body"}` {
		t.Fatalf("arguments not reassembled: %q", calls[0].Function.Arguments)
	}
}

func TestStreamAccumulator_IndexGaps(t *testing.T) {
	acc := &StreamAccumulator{}
	acc.Add(StreamChunk{Choices: []StreamChoice{{Delta: MessageDelta{ToolCalls: []ToolCallDelta{
		{Index: 1, ID: "call_2", Function: &FunctionCallDelta{Name: "emit_commentary", Arguments: `{"content":"note"}`}},
	}}}}})

	calls := acc.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("expected slots up to index 1, got %d", len(calls))
	}
	if calls[0].Type != "function" {
		t.Fatalf("empty slot should default to function type")
	}
	if calls[1].Function.Name != "emit_commentary" {
		t.Fatalf("unexpected name: %q", calls[1].Function.Name)
	}
}

func TestStreamAccumulator_PoolReset(t *testing.T) {
	acc := AcquireStreamAccumulator()
	acc.Add(StreamChunk{Choices: []StreamChoice{{Delta: MessageDelta{Content: "leftover"}}}})
	ReleaseStreamAccumulator(acc)

	fresh := AcquireStreamAccumulator()
	defer ReleaseStreamAccumulator(fresh)
	if fresh.Content() != "" {
		t.Fatalf("pooled accumulator not reset: %q", fresh.Content())
	}
}
