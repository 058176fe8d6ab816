package retriever

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/memstore"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

// SemanticRetriever embeds the question and ranks chunks of the served index
// by cosine similarity.
type SemanticRetriever struct {
	handle   *memstore.Handle
	embedder port.Embedder
	expander *QueryExpander
	filter   *MetadataFilter
	logger   *zerolog.Logger
}

// NewSemanticRetriever creates a retriever. expander may be nil to disable
// keyword expansion.
func NewSemanticRetriever(
	handle *memstore.Handle,
	embedder port.Embedder,
	expander *QueryExpander,
	logger *zerolog.Logger,
) *SemanticRetriever {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SemanticRetriever{
		handle:   handle,
		embedder: embedder,
		expander: expander,
		logger:   logger,
	}
}

// WithMetadataFilter enables topic filtering of candidates.
func (r *SemanticRetriever) WithMetadataFilter(f *MetadataFilter) *SemanticRetriever {
	r.filter = f
	return r
}

// Retrieve returns up to k chunks in descending score order.
func (r *SemanticRetriever) Retrieve(ctx context.Context, q domain.Query, k int) (domain.RetrievalResult, error) {
	idx := r.handle.Current()
	if idx == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, domain.ErrIndexNotLoaded)
	}

	text := q.NormalizedText
	if text == "" {
		text = domain.Normalize(q.RawText)
	}
	if r.expander != nil {
		if expanded := r.expander.ExpandWithKeywords(text); expanded != text {
			r.logger.Debug().Str("query", text).Str("expanded", expanded).Msg("expanded query")
			text = expanded
		}
	}

	vector := q.Vector
	if text != q.NormalizedText || len(vector) == 0 {
		var err error
		vector, err = r.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
	}

	var keep func(domain.Chunk) bool
	var topic string
	if r.filter != nil {
		topic, keep = r.filter.ForQuery(q.NormalizedText)
	}

	results, err := idx.QueryFiltered(vector, k, keep)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if keep != nil {
		if len(results) > 0 {
			r.logger.Debug().Str("topic", topic).Int("results", len(results)).Msg("metadata filter applied")
		} else {
			// no chunk carries the topic flag, rank the whole index instead
			r.logger.Debug().Str("topic", topic).Msg("metadata filter matched nothing")
			results, err = idx.Query(vector, k)
			if err != nil {
				return nil, fmt.Errorf("vector search failed: %w", err)
			}
		}
	}

	return domain.RetrievalResult(results), nil
}
