package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/logging"
	"github.com/specfoundry/specfoundry/pkg/parser"
)

func TestAnthropicRequest_SystemRoleRemap(t *testing.T) {
	provider := NewAnthropicProvider("test-key", "", logging.Discard())
	req := GenerationRequest{
		SystemPrompt: "System prompt",
		UserPrompt:   "Next",
		Model:        "anthropic/claude-3.5-sonnet",
		History: []Message{
			{Role: "user", Content: "Hello"},
			{Role: "assistant", Content: "Hi there"},
			{Role: "system", Content: "Earlier instruction"},
		},
	}

	anthReq := provider.toAnthropicRequest(req)

	if anthReq.System != "System prompt" {
		t.Fatalf("system prompt not lifted into system field: %q", anthReq.System)
	}
	if anthReq.Model != "claude-3.5-sonnet" {
		t.Fatalf("provider prefix not stripped: %q", anthReq.Model)
	}
	if len(anthReq.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(anthReq.Messages))
	}
	if anthReq.Messages[2].Role != "assistant" {
		t.Fatalf("system history turn not remapped, got role %q", anthReq.Messages[2].Role)
	}
	if anthReq.Messages[3].Role != "user" || anthReq.Messages[3].Content[0].Text != "Next" {
		t.Fatal("user prompt must be the final message")
	}
	if anthReq.MaxTokens != 4096 {
		t.Fatalf("expected default max_tokens, got %d", anthReq.MaxTokens)
	}
}

func TestAnthropicGenerate_TaggedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Fatal("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Fatal("missing version header")
		}

		resp := map[string]any{
			"id":    "msg_1",
			"model": "claude-3.5-sonnet",
			"content": []map[string]string{
				{"text": "Some thoughts first.\n[VISION]# The Vision[/VISION]"},
			},
			"usage": map[string]int{"input_tokens": 12, "output_tokens": 34},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewAnthropicProvider("test-key", server.URL, logging.Discard())
	result, err := provider.Generate(context.Background(), GenerationRequest{
		SystemPrompt: "sys",
		UserPrompt:   "go",
		Model:        "anthropic/claude-3.5-sonnet",
		Format:       parser.TagFormat{StartTag: "[VISION]", EndTag: "[/VISION]"},
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if result.Parsed.ArtifactContent != "# The Vision" {
		t.Fatalf("unexpected content: %q", result.Parsed.ArtifactContent)
	}
	if result.Parsed.Commentary != "Some thoughts first." {
		t.Fatalf("unexpected commentary: %q", result.Parsed.Commentary)
	}
	if result.Model != "anthropic/claude-3.5-sonnet" {
		t.Fatalf("unexpected model: %q", result.Model)
	}
	if result.Usage.TotalTokens != 46 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
}

func TestAnthropicGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewAnthropicProvider("test-key", server.URL, logging.Discard())
	_, err := provider.Generate(context.Background(), GenerationRequest{
		UserPrompt: "go",
		Model:      "anthropic/claude-3.5-sonnet",
	})
	if !errors.IsCode(err, errors.ErrCodeProviderError) {
		t.Fatalf("expected PROVIDER_ERROR, got %v", err)
	}
}

func TestAnthropicDoesNotImplementStreaming(t *testing.T) {
	var p Provider = NewAnthropicProvider("test-key", "", logging.Discard())
	if _, ok := p.(StreamingProvider); ok {
		t.Fatal("anthropic provider must not advertise streaming")
	}
}
