package model

import (
	"context"
	"sort"
	"sync"

	"github.com/specfoundry/specfoundry/pkg/config"
	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/logging"
)

// Manager owns the configured providers and routes generation calls to
// them by id, normalizing the streaming capability gap.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]Provider
	defaultID string
	logger    *logging.Logger
}

// NewManager creates an empty manager with a default provider id.
func NewManager(defaultID string, logger *logging.Logger) *Manager {
	return &Manager{
		providers: make(map[string]Provider),
		defaultID: defaultID,
		logger:    logger,
	}
}

// FromConfig builds a manager with every enabled provider registered.
func FromConfig(cfg *config.Config, logger *logging.Logger) (*Manager, error) {
	m := NewManager(cfg.Providers.Default, logger)

	if cfg.Providers.OpenAI.Enabled && cfg.Providers.OpenAI.APIKey != "" {
		m.Register(NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.BaseURL, logger))
	}
	if cfg.Providers.Anthropic.Enabled && cfg.Providers.Anthropic.APIKey != "" {
		m.Register(NewAnthropicProvider(cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.BaseURL, logger))
	}

	if len(m.ProviderIDs()) == 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			"no providers configured; set OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	return m, nil
}

// Register adds or replaces a provider.
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.ID()] = p
}

// ProviderIDs returns the registered provider ids, sorted.
func (m *Manager) ProviderIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.providers))
	for id := range m.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Provider resolves a provider by id; an empty id means the default.
func (m *Manager) Provider(id string) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id == "" {
		id = m.defaultID
	}
	p, ok := m.providers[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "provider %q not registered", id)
	}
	return p, nil
}

// Generate runs a synchronous generation call on the named provider.
func (m *Manager) Generate(ctx context.Context, providerID string, req GenerationRequest) (*GenerationResult, error) {
	p, err := m.Provider(providerID)
	if err != nil {
		return nil, err
	}

	m.logger.Info(logging.CategoryModel, "generation_start", "", map[string]any{
		"provider": p.ID(),
		"model":    req.Model,
		"update":   req.IsUpdate,
	})

	result, err := p.Generate(ctx, req)
	if err != nil {
		m.logger.Error(logging.CategoryModel, "generation_failed", err.Error(), map[string]any{
			"provider": p.ID(),
			"model":    req.Model,
		})
		return nil, err
	}
	return result, nil
}

// GenerateStream runs a streaming generation call. Providers without
// streaming support fail through the handler with a terminal error
// event carrying STREAMING_UNSUPPORTED, so sinks observe the same
// shape either way.
func (m *Manager) GenerateStream(ctx context.Context, providerID string, req GenerationRequest, handler StreamHandler) (*GenerationResult, error) {
	p, err := m.Provider(providerID)
	if err != nil {
		handler(StreamEvent{Type: StreamEventError, Err: err})
		return nil, err
	}

	sp, ok := p.(StreamingProvider)
	if !ok {
		err := errors.Newf(errors.ErrCodeStreamingUnsupported,
			"provider %q does not support streaming", p.ID())
		handler(StreamEvent{Type: StreamEventError, Err: err})
		return nil, err
	}

	m.logger.Info(logging.CategoryModel, "generation_stream_start", "", map[string]any{
		"provider": p.ID(),
		"model":    req.Model,
		"update":   req.IsUpdate,
	})

	result, err := sp.GenerateStream(ctx, req, handler)
	if err != nil {
		m.logger.Error(logging.CategoryModel, "generation_stream_failed", err.Error(), map[string]any{
			"provider": p.ID(),
			"model":    req.Model,
		})
		return nil, err
	}
	return result, nil
}
