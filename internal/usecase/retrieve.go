package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

// MaxTopK bounds the number of chunks a caller may ask for.
const MaxTopK = 20

// RetrieveUseCase applies the configured k and relevance floor around a
// retriever.
type RetrieveUseCase struct {
	retriever         port.Retriever
	topK              int
	minScoreThreshold float64 // results below this score are dropped
	logger            *zerolog.Logger
}

func NewRetrieveUseCase(
	retriever port.Retriever,
	topK int,
	minScoreThreshold float64,
	logger *zerolog.Logger,
) *RetrieveUseCase {
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RetrieveUseCase{
		retriever:         retriever,
		topK:              topK,
		minScoreThreshold: minScoreThreshold,
		logger:            logger,
	}
}

// Retrieve returns at most k chunks scoring at least the floor. k <= 0 means
// the configured default.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, q domain.Query, k int) (domain.RetrievalResult, error) {
	k = u.resolveK(k)

	results, err := u.retriever.Retrieve(ctx, q, k)
	if err != nil {
		return nil, err
	}

	filtered := u.filterByThreshold(results)
	if len(filtered) < len(results) {
		u.logger.Debug().
			Int("retrieved", len(results)).
			Int("kept", len(filtered)).
			Float64("min_score", u.minScoreThreshold).
			Msg("dropped low scoring chunks")
	}
	return filtered, nil
}

func (u *RetrieveUseCase) resolveK(k int) int {
	if k <= 0 {
		return u.topK
	}
	return min(k, MaxTopK)
}

// filterByThreshold removes results below the minimum score threshold.
func (u *RetrieveUseCase) filterByThreshold(results domain.RetrievalResult) domain.RetrievalResult {
	filtered := make(domain.RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.Score >= u.minScoreThreshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
