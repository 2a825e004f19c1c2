package model

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/logging"
	"github.com/specfoundry/specfoundry/pkg/parser"
)

const anthropicBaseURL = "https://api.anthropic.com"

// AnthropicProvider calls the Claude Messages API using the delimiter
// tag output strategy: the system prompt instructs the model to wrap
// the artifact body in the type's tag pair and the response is parsed
// as free text. It does not implement StreamingProvider.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	version    string
	logger     *logging.Logger
}

// NewAnthropicProvider builds an Anthropic provider.
func NewAnthropicProvider(apiKey, baseURL string, logger *logging.Logger) *AnthropicProvider {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: newHTTPClient(newThrottledTransport(nil, 5, logger)),
		version:    "2023-06-01",
		logger:     logger,
	}
}

// ID returns provider identifier.
func (p *AnthropicProvider) ID() string {
	return "anthropic"
}

// Generate executes a non-streaming request and parses the tagged
// response text.
func (p *AnthropicProvider) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	anthReq := p.toAnthropicRequest(req)

	body, err := json.Marshal(anthReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "marshal anthropic request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "creating request")
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", p.version)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderError, "anthropic request failed").WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp)
		return nil, errors.Wrap(apiErr, errors.ErrCodeProviderError, "anthropic request failed").
			WithRetryable(apiErr.Retryable).
			WithContext("status", apiErr.StatusCode)
	}

	var anthResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthResp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderError, "decode anthropic response")
	}

	var parts []string
	for _, c := range anthResp.Content {
		parts = append(parts, c.Text)
	}
	raw := strings.Join(parts, "\n")

	parsed := parser.ExtractContentAndCommentary(raw, req.Format)
	parsed, err = parser.ValidateAndFormatResponse(parsed, req.IsUpdate)
	if err != nil {
		return nil, err
	}

	return &GenerationResult{
		Model:       "anthropic/" + anthResp.Model,
		RawResponse: raw,
		Parsed:      parsed,
		Usage: &Usage{
			PromptTokens:     anthResp.Usage.InputTokens,
			CompletionTokens: anthResp.Usage.OutputTokens,
			TotalTokens:      anthResp.Usage.InputTokens + anthResp.Usage.OutputTokens,
		},
	}, nil
}

// toAnthropicRequest maps the normalized request onto the Messages API.
// The Messages API accepts no "system" role inside the message list, so
// stray system turns in history are remapped to assistant.
func (p *AnthropicProvider) toAnthropicRequest(req GenerationRequest) *anthropicRequest {
	anthReq := &anthropicRequest{
		Model:       normalizeModelForProvider(req.Model, "anthropic"),
		System:      req.SystemPrompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if anthReq.MaxTokens == 0 {
		anthReq.MaxTokens = 4096
	}

	for _, msg := range historyMessages(req.History, "assistant") {
		anthReq.Messages = append(anthReq.Messages, anthropicMessage{
			Role:    msg.Role,
			Content: []anthropicContent{{Type: "text", Text: msg.Content}},
		})
	}
	anthReq.Messages = append(anthReq.Messages, anthropicMessage{
		Role:    "user",
		Content: []anthropicContent{{Type: "text", Text: req.UserPrompt}},
	})

	return anthReq
}

// anthropicRequest maps to the Messages API payload.
type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
