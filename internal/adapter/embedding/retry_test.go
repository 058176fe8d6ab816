package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port/mocks"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		Timeout:      time.Second,
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestWithRetry_RecoversAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inner := mocks.NewMockEmbedder(ctrl)
	inner.EXPECT().ModelVersion().Return("mock").AnyTimes()
	gomock.InOrder(
		inner.EXPECT().Embed(gomock.Any(), "faculty").Return(nil, errors.New("connection reset")),
		inner.EXPECT().Embed(gomock.Any(), "faculty").Return([]float32{1, 0}, nil),
	)

	r := WithRetry(inner, fastRetry(2), nil)
	v, err := r.Embed(context.Background(), "faculty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v) != 2 {
		t.Errorf("unexpected vector %v", v)
	}
}

func TestWithRetry_ExhaustedMapsToServiceUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inner := mocks.NewMockEmbedder(ctrl)
	inner.EXPECT().ModelVersion().Return("mock").AnyTimes()
	inner.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, errors.New("503 from server")).Times(3)

	r := WithRetry(inner, fastRetry(2), nil)
	_, err := r.Embed(context.Background(), "dean")

	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable in chain, got %v", err)
	}
}

func TestWithRetry_NoRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inner := mocks.NewMockEmbedder(ctrl)
	inner.EXPECT().ModelVersion().Return("mock").AnyTimes()
	inner.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")).Times(1)

	r := WithRetry(inner, fastRetry(0), nil)
	if _, err := r.EmbedBatch(context.Background(), []string{"a"}); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestWithRetry_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inner := mocks.NewMockEmbedder(ctrl)
	inner.EXPECT().ModelVersion().Return("mock").AnyTimes()
	inner.EXPECT().Embed(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ string) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}).Times(2)

	cfg := fastRetry(1)
	cfg.Timeout = 10 * time.Millisecond
	r := WithRetry(inner, cfg, nil)

	_, err := r.Embed(context.Background(), "slow")
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the deadline in the chain, got %v", err)
	}
}

func TestWithRetry_CancelledStopsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())

	inner := mocks.NewMockEmbedder(ctrl)
	inner.EXPECT().ModelVersion().Return("mock").AnyTimes()
	inner.EXPECT().Embed(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string) ([]float32, error) {
		cancel()
		return nil, context.Canceled
	}).Times(1)

	r := WithRetry(inner, fastRetry(2), nil)
	_, err := r.Embed(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("cancellation must not be reported as unavailable")
	}
}

func TestCalculateBackoff(t *testing.T) {
	for attempt := 0; attempt < 6; attempt++ {
		d := calculateBackoff(attempt, 100*time.Millisecond, time.Second)
		if d <= 0 || d > 1200*time.Millisecond {
			t.Errorf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}
