package model

import (
	"context"
	"testing"

	"github.com/specfoundry/specfoundry/pkg/config"
	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/logging"
)

func TestManagerProviderResolution(t *testing.T) {
	m := NewManager("anthropic", logging.Discard())
	m.Register(NewAnthropicProvider("key", "", logging.Discard()))
	m.Register(NewOpenAIProvider("key", "", logging.Discard()))

	p, err := m.Provider("")
	if err != nil {
		t.Fatalf("default resolution failed: %v", err)
	}
	if p.ID() != "anthropic" {
		t.Fatalf("expected default provider, got %q", p.ID())
	}

	if _, err := m.Provider("google"); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unregistered provider, got %v", err)
	}

	ids := m.ProviderIDs()
	if len(ids) != 2 || ids[0] != "anthropic" || ids[1] != "openai" {
		t.Fatalf("unexpected provider ids: %v", ids)
	}
}

func TestManagerStreamingUnsupported(t *testing.T) {
	m := NewManager("anthropic", logging.Discard())
	m.Register(NewAnthropicProvider("key", "", logging.Discard()))

	var events []StreamEvent
	_, err := m.GenerateStream(context.Background(), "anthropic", GenerationRequest{}, func(ev StreamEvent) {
		events = append(events, ev)
	})
	if !errors.IsCode(err, errors.ErrCodeStreamingUnsupported) {
		t.Fatalf("expected STREAMING_UNSUPPORTED, got %v", err)
	}
	if len(events) != 1 || events[0].Type != StreamEventError {
		t.Fatalf("expected single terminal error event, got %v", events)
	}
	if !errors.IsCode(events[0].Err, errors.ErrCodeStreamingUnsupported) {
		t.Fatal("sink must carry the capability error")
	}
}

func TestFromConfigRequiresAProvider(t *testing.T) {
	cfg := config.Default()
	_, err := FromConfig(cfg, logging.Discard())
	if !errors.IsCode(err, errors.ErrCodeConfigInvalid) {
		t.Fatalf("expected CONFIG_INVALID, got %v", err)
	}

	cfg.Providers.OpenAI.Enabled = true
	cfg.Providers.OpenAI.APIKey = "key"
	m, err := FromConfig(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("FromConfig error: %v", err)
	}
	if _, err := m.Provider("openai"); err != nil {
		t.Fatalf("openai provider not registered: %v", err)
	}
}
