package embedding

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

// RetryConfig bounds query-time embedding calls.
type RetryConfig struct {
	Timeout      time.Duration // per attempt
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// RetryingEmbedder wraps an Embedder for query-time use. Index builds use the
// inner embedder directly: a build fails on the first error.
type RetryingEmbedder struct {
	inner  port.Embedder
	cfg    RetryConfig
	logger *zerolog.Logger
}

func WithRetry(inner port.Embedder, cfg RetryConfig, logger *zerolog.Logger) *RetryingEmbedder {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RetryingEmbedder{
		inner:  inner,
		cfg:    cfg,
		logger: logger,
	}
}

func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.do(ctx, func(ctx context.Context) error {
		v, err := r.inner.Embed(ctx, text)
		out = v
		return err
	})
	return out, err
}

func (r *RetryingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.do(ctx, func(ctx context.Context) error {
		v, err := r.inner.EmbedBatch(ctx, texts)
		out = v
		return err
	})
	return out, err
}

func (r *RetryingEmbedder) do(ctx context.Context, call func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt-1, r.cfg.InitialDelay, r.cfg.MaxDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := r.attempt(ctx, call)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		r.logger.Warn().Err(err).Int("attempt", attempt+1).Str("model", r.inner.ModelVersion()).Msg("embedding call failed")
	}

	if !errors.Is(lastErr, domain.ErrEmbeddingUnavailable) {
		lastErr = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, lastErr)
	}
	return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, lastErr)
}

func (r *RetryingEmbedder) attempt(ctx context.Context, call func(context.Context) error) error {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	return call(ctx)
}

func (r *RetryingEmbedder) Dimension() int {
	return r.inner.Dimension()
}

func (r *RetryingEmbedder) ModelVersion() string {
	return r.inner.ModelVersion()
}

// calculateBackoff doubles the delay per attempt, caps it and adds ±20% jitter.
func calculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	backoff := float64(initialDelay) * math.Pow(2, float64(attempt))

	if backoff > float64(maxDelay) {
		backoff = float64(maxDelay)
	}

	jitter := backoff * 0.2 * (2*rand.Float64() - 1)
	backoff += jitter

	return time.Duration(backoff)
}
