package tts

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Chain implements Provider by trying multiple providers in order.
// The first successful provider wins.
// A provider that rejects its API key is skipped from then on.
type Chain struct {
	providers []Provider
	rejected  []atomic.Bool
	logger    *zap.Logger
}

// NewChain creates a provider chain. At least one provider is required.
func NewChain(logger *zap.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		providers: providers,
		rejected:  make([]atomic.Bool, len(providers)),
		logger:    logger.Named("tts.chain"),
	}, nil
}

// Name lists the chained providers.
func (c *Chain) Name() string {
	name := "chain("
	for i, p := range c.providers {
		if i > 0 {
			name += ","
		}
		name += p.Name()
	}
	return name + ")"
}

// Synthesize tries each provider until one succeeds.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var errs []error

	for i, p := range c.providers {
		if c.rejected[i].Load() {
			continue
		}
		result, err := p.Synthesize(ctx, text)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded",
					zap.String("provider", p.Name()),
					zap.Int("chars", len(text)),
				)
			}
			return result, nil
		}

		errs = append(errs, err)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
			c.rejected[i].Store(true)
			c.logger.Error("provider rejected credentials, disabling",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
		} else {
			c.logger.Warn("provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if len(errs) == 0 {
		return nil, ErrProviderUnavailable
	}
	return nil, &ChainError{Errors: errs}
}

// Close closes all providers.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Providers returns the list of providers in the chain.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// ChainError aggregates errors from all providers in a chain.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "tts chain: no errors recorded"
	case 1:
		return fmt.Sprintf("tts chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("tts chain: all %d providers failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap exposes every provider error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}

var _ Provider = (*Chain)(nil)
