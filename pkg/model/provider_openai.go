package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/logging"
	"github.com/specfoundry/specfoundry/pkg/parser"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider generates artifacts via OpenAI's chat completion API
// using the structured tool-call output strategy: the model is told to
// deliver artifact content and commentary through two function calls
// instead of delimiter tags.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewOpenAIProvider builds a provider using the supplied API key.
func NewOpenAIProvider(apiKey, baseURL string, logger *logging.Logger) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: newHTTPClient(newThrottledTransport(nil, 5, logger)),
		logger:     logger,
	}
}

// ID returns provider identifier.
func (p *OpenAIProvider) ID() string {
	return "openai"
}

// artifactTools defines the two output functions the model must use.
func artifactTools() []map[string]any {
	contentSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{"type": "string"},
		},
		"required": []string{"content"},
	}
	return []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        parser.ToolEmitArtifactContent,
				"description": "Deliver the full artifact document body.",
				"parameters":  contentSchema,
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        parser.ToolEmitCommentary,
				"description": "Deliver explanatory commentary about the artifact.",
				"parameters":  contentSchema,
			},
		},
	}
}

func (p *OpenAIProvider) buildRequest(req GenerationRequest, stream bool) ChatRequest {
	messages := make([]Message, 0, len(req.History)+2)
	messages = append(messages, Message{Role: "system", Content: req.SystemPrompt})
	messages = append(messages, req.History...)
	messages = append(messages, Message{Role: "user", Content: req.UserPrompt})

	return ChatRequest{
		Model:       normalizeModelForProvider(req.Model, "openai"),
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
		Tools:       artifactTools(),
		ToolChoice:  "auto",
	}
}

func (p *OpenAIProvider) post(ctx context.Context, chatReq ChatRequest, accept string) (*http.Response, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "marshaling request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "creating request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if accept != "" {
		httpReq.Header.Set("Accept", accept)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderError, "openai request failed").WithRetryable(true)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp)
		resp.Body.Close()
		return nil, errors.Wrap(apiErr, errors.ErrCodeProviderError, "openai request failed").
			WithRetryable(apiErr.Retryable).
			WithContext("status", apiErr.StatusCode)
	}
	return resp, nil
}

// Generate executes a non-streaming completion and normalizes the tool
// calls into a parsed response.
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	resp, err := p.post(ctx, p.buildRequest(req, false), "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderError, "decoding openai response")
	}
	if len(chatResp.Choices) == 0 {
		return nil, errors.New(errors.ErrCodeProviderError, "openai returned no choices")
	}

	msg := chatResp.Choices[0].Message
	return p.finalize(req, msg.Content, msg.ToolCalls, &chatResp.Usage, chatResp.Model)
}

// GenerateStream executes a streaming completion. Text deltas are
// forwarded to the handler as they arrive; tool call argument JSON is
// only decoded once the stream completes, since fragments are not valid
// JSON on their own. The handler always receives exactly one terminal
// event.
func (p *OpenAIProvider) GenerateStream(ctx context.Context, req GenerationRequest, handler StreamHandler) (*GenerationResult, error) {
	resp, err := p.post(ctx, p.buildRequest(req, true), "text/event-stream")
	if err != nil {
		handler(StreamEvent{Type: StreamEventError, Err: err})
		return nil, err
	}
	defer resp.Body.Close()

	acc := AcquireStreamAccumulator()
	defer ReleaseStreamAccumulator(acc)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		data := strings.TrimSpace(scanner.Text())
		if data == "" {
			continue
		}
		if strings.HasPrefix(data, "data: ") {
			data = data[6:]
		}
		if data == "[DONE]" {
			break
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// A malformed interim frame is recoverable; the terminal
			// accumulation decides whether the response is usable.
			p.logger.Warn(logging.CategoryModel, "stream_chunk_skipped", err.Error(), map[string]any{
				"provider": p.ID(),
			})
			continue
		}

		acc.Add(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			handler(StreamEvent{Type: StreamEventDelta, Delta: chunk.Choices[0].Delta.Content})
		}
	}
	if err := scanner.Err(); err != nil {
		wrapped := errors.Wrap(err, errors.ErrCodeProviderError, "reading openai stream").WithRetryable(true)
		handler(StreamEvent{Type: StreamEventError, Err: wrapped})
		return nil, wrapped
	}

	result, err := p.finalize(req, acc.Content(), acc.ToolCalls(), acc.Usage(), req.Model)
	if err != nil {
		handler(StreamEvent{Type: StreamEventError, Err: err})
		return nil, err
	}
	handler(StreamEvent{Type: StreamEventDone, Result: result})
	return result, nil
}

// finalize normalizes tool calls plus loose text into the shared parse
// result and applies the minimum-content rule.
func (p *OpenAIProvider) finalize(req GenerationRequest, text string, calls []ToolCall, usage *Usage, respModel string) (*GenerationResult, error) {
	invocations := make([]parser.ToolInvocation, 0, len(calls))
	for _, call := range calls {
		invocations = append(invocations, parser.ToolInvocation{
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	raw := text
	if len(calls) > 0 {
		encoded, err := json.Marshal(calls)
		if err == nil {
			raw = fmt.Sprintf("%s\n%s", text, encoded)
		}
	}

	parsed := parser.ExtractFromToolCalls(raw, invocations, []string{text})
	parsed, err := parser.ValidateAndFormatResponse(parsed, req.IsUpdate)
	if err != nil {
		return nil, err
	}

	model := respModel
	if model == "" {
		model = req.Model
	}
	return &GenerationResult{
		Model:       model,
		RawResponse: raw,
		Parsed:      parsed,
		Usage:       usage,
	}, nil
}
