package aiclient

import (
	"context"

	"github.com/itsneelabh/agentctl/core"
	"github.com/itsneelabh/agentctl/resilience"
)

// resilientClient wraps a base Client's three calls in retry-with-backoff
// and a per-mode circuit breaker, so a flaky model endpoint degrades to
// spec.md §7's "Model call failure after retries" path instead of hanging
// the controller's single-threaded event loop.
type resilientClient struct {
	base Client

	retryConfig *resilience.RetryConfig
	planCB      *resilience.CircuitBreaker
	groundCB    *resilience.CircuitBreaker
	judgeCB     *resilience.CircuitBreaker

	logger core.Logger
}

func newResilientClient(base Client, cfg *Config) *resilientClient {
	logger := cfg.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &resilientClient{
		base:        base,
		retryConfig: resilience.DefaultRetryConfig(),
		planCB:      resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("aiclient.plan")),
		groundCB:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("aiclient.ground")),
		judgeCB:     resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("aiclient.judge")),
		logger:      logger,
	}
}

func (c *resilientClient) Plan(ctx context.Context, req Request) (*PlanResponse, error) {
	var out *PlanResponse
	err := c.planCB.Execute(func() error {
		return resilience.Retry(ctx, c.retryConfig, func() error {
			resp, err := c.base.Plan(ctx, req)
			if err != nil {
				return err
			}
			out = resp
			return nil
		})
	})
	if err != nil {
		c.logger.ErrorWithContext(ctx, "planning call failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	return out, nil
}

func (c *resilientClient) Ground(ctx context.Context, req Request) (*GroundResponse, error) {
	var out *GroundResponse
	err := c.groundCB.Execute(func() error {
		return resilience.Retry(ctx, c.retryConfig, func() error {
			resp, err := c.base.Ground(ctx, req)
			if err != nil {
				return err
			}
			out = resp
			return nil
		})
	})
	if err != nil {
		c.logger.ErrorWithContext(ctx, "grounding call failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	return out, nil
}

func (c *resilientClient) Judge(ctx context.Context, req Request) (*JudgeResponse, error) {
	var out *JudgeResponse
	err := c.judgeCB.Execute(func() error {
		return resilience.Retry(ctx, c.retryConfig, func() error {
			resp, err := c.base.Judge(ctx, req)
			if err != nil {
				return err
			}
			out = resp
			return nil
		})
	})
	if err != nil {
		c.logger.ErrorWithContext(ctx, "judgment call failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	return out, nil
}
