package aiclient

import (
	"context"
	"fmt"
)

// New constructs a Client for cfg.Provider, wrapped in retry and circuit
// breaking (see resilient.go). Adapted from the teacher's ai factory
// pattern: a provider switch producing a concrete client, here collapsed
// to this module's two carried providers (openai, bedrock) instead of the
// teacher's pluggable registry, since this module does not need runtime
// provider plugins.
func New(ctx context.Context, cfg *Config, opts ...Option) (Client, error) {
	if cfg == nil {
		cfg = DefaultConfig(ProviderOpenAI)
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var base Client
	switch cfg.Provider {
	case ProviderBedrock:
		p, err := newBedrockProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		base = p
	case ProviderOpenAI, "":
		base = newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("aiclient: unknown provider %q", cfg.Provider)
	}

	return newResilientClient(base, cfg), nil
}
