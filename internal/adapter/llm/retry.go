package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

type RetryConfig struct {
	Timeout      time.Duration // per attempt
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// RetryingGenerator bounds every generation call with a timeout and retries
// transient failures with exponential backoff.
type RetryingGenerator struct {
	inner  port.Generator
	cfg    RetryConfig
	logger *zerolog.Logger
}

func WithRetry(inner port.Generator, cfg RetryConfig, logger *zerolog.Logger) *RetryingGenerator {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RetryingGenerator{
		inner:  inner,
		cfg:    cfg,
		logger: logger,
	}
}

// Generate returns ctx.Err() when the caller gave up, and an error wrapping
// ErrGenerationUnavailable for every other failure.
func (r *RetryingGenerator) Generate(ctx context.Context, req port.GenerateRequest) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt-1, r.cfg.InitialDelay, r.cfg.MaxDelay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		out, err := r.attempt(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		r.logger.Warn().Err(err).Int("attempt", attempt+1).Str("model", r.inner.ModelName()).Msg("generation call failed")

		if isPermanent(err) {
			break
		}
	}

	if errors.Is(lastErr, domain.ErrGenerationUnavailable) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, lastErr)
}

func (r *RetryingGenerator) attempt(ctx context.Context, req port.GenerateRequest) (string, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	return r.inner.Generate(ctx, req)
}

func (r *RetryingGenerator) ModelName() string {
	return r.inner.ModelName()
}

func calculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	backoff := float64(initialDelay) * math.Pow(2, float64(attempt))

	if backoff > float64(maxDelay) {
		backoff = float64(maxDelay)
	}

	jitter := backoff * 0.2 * (2*rand.Float64() - 1) // between -20% and +20%
	backoff += jitter

	return time.Duration(backoff)
}
