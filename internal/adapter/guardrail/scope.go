package guardrail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/analyzer"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/embedding"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

// Config tunes the decision boundary.
type Config struct {
	Keywords            []string
	MinKeywordMatches   int
	KeywordRatio        float64
	SemanticEnabled     bool
	SimilarityThreshold float64
	Exemplars           []string
}

// keyword is one allow-list entry: a single term pattern, or several for a phrase.
type keyword struct {
	raw   string
	terms []string
}

// ScopeGuard accepts a question when it uses department vocabulary or is
// semantically close to known department questions.
type ScopeGuard struct {
	cfg       Config
	keywords  []keyword
	embedder  port.Embedder
	tokenizer *analyzer.Tokenizer
	logger    *zerolog.Logger

	mu        sync.Mutex
	exemplars [][]float32
}

// New validates keyword patterns. embedder may be nil when the semantic
// signal is disabled.
func New(cfg Config, embedder port.Embedder, logger *zerolog.Logger) (*ScopeGuard, error) {
	if cfg.MinKeywordMatches < 1 {
		cfg.MinKeywordMatches = 1
	}
	if cfg.KeywordRatio <= 0 {
		cfg.KeywordRatio = 0.15
	}
	if cfg.SemanticEnabled && embedder == nil {
		return nil, fmt.Errorf("%w: semantic guardrail needs an embedder", domain.ErrInvalidConfig)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	keywords := make([]keyword, 0, len(cfg.Keywords))
	for _, raw := range cfg.Keywords {
		terms := strings.Fields(strings.ToLower(raw))
		if len(terms) == 0 {
			continue
		}
		for _, term := range terms {
			if !doublestar.ValidatePattern(term) {
				return nil, fmt.Errorf("%w: invalid keyword pattern %q", domain.ErrInvalidConfig, raw)
			}
		}
		keywords = append(keywords, keyword{raw: raw, terms: terms})
	}

	return &ScopeGuard{
		cfg:       cfg,
		keywords:  keywords,
		embedder:  embedder,
		tokenizer: analyzer.NewTokenizer(false),
		logger:    logger,
	}, nil
}

// Check never fails: when the embedding call fails the decision falls back
// to the keyword signal alone and is marked Degraded.
func (g *ScopeGuard) Check(ctx context.Context, q domain.Query) domain.ScopeDecision {
	if q.IsEmpty() {
		return domain.ScopeDecision{Accepted: false, Confidence: 0, Reason: domain.ReasonEmptyQuery}
	}

	terms := keywordTerms(g.tokenizer.Terms(q.NormalizedText))
	matched := g.matchKeywords(terms)

	var keywordConf float64
	if len(terms) > 0 {
		keywordConf = min(1, (float64(len(matched))/float64(len(terms)))/g.cfg.KeywordRatio)
	}
	keywordFires := len(matched) >= g.cfg.MinKeywordMatches

	decision := domain.ScopeDecision{MatchedKeywords: matched}

	if g.cfg.SemanticEnabled {
		sim, vec, err := g.similarity(ctx, q.NormalizedText)
		decision.Vector = vec
		if err != nil {
			decision.Degraded = true
			g.logger.Warn().Err(err).Msg("semantic scope check unavailable, using keywords only")
		} else {
			decision.Similarity = sim
		}
	}
	semanticFires := !decision.Degraded && g.cfg.SemanticEnabled && decision.Similarity >= g.cfg.SimilarityThreshold

	switch {
	case keywordFires:
		decision.Accepted = true
		decision.Reason = domain.ReasonKeywordMatch
	case semanticFires:
		decision.Accepted = true
		decision.Reason = domain.ReasonSemanticMatch
	default:
		decision.Reason = domain.ReasonOutOfScope
	}
	decision.Confidence = clamp(max(keywordConf, decision.Similarity))

	g.logger.Debug().
		Bool("accepted", decision.Accepted).
		Str("reason", decision.Reason).
		Strs("keywords", matched).
		Float64("similarity", decision.Similarity).
		Msg("scope decision")

	return decision
}

// matchKeywords returns the distinct allow-list entries found in terms.
func (g *ScopeGuard) matchKeywords(terms []string) []string {
	var matched []string
	for _, kw := range g.keywords {
		if containsSequence(terms, kw.terms) {
			matched = append(matched, kw.raw)
		}
	}
	return matched
}

// keywordTerms drops possessive endings so "department's" counts as
// "department".
func keywordTerms(terms []string) []string {
	out := make([]string, len(terms))
	for i, term := range terms {
		term = strings.TrimSuffix(term, "'s")
		out[i] = strings.TrimSuffix(term, "'")
	}
	return out
}

// containsSequence reports whether patterns match consecutive terms. Patterns
// are validated in New, so Match cannot fail here.
func containsSequence(terms, patterns []string) bool {
	for start := 0; start+len(patterns) <= len(terms); start++ {
		ok := true
		for i, p := range patterns {
			if matched, _ := doublestar.Match(p, terms[start+i]); !matched {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (g *ScopeGuard) similarity(ctx context.Context, text string) (float64, []float32, error) {
	vec, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return 0, nil, err
	}

	exemplars, err := g.exemplarVectors(ctx)
	if err != nil {
		// the query vector is still good for retrieval
		return 0, vec, err
	}

	best := 0.0
	for _, ex := range exemplars {
		if sim := embedding.Cosine(vec, ex); sim > best {
			best = sim
		}
	}
	return best, vec, nil
}

// exemplarVectors embeds the exemplar questions on first use. A failure is
// not cached, so a later request tries again.
func (g *ScopeGuard) exemplarVectors(ctx context.Context) ([][]float32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.exemplars != nil {
		return g.exemplars, nil
	}
	if len(g.cfg.Exemplars) == 0 {
		g.exemplars = [][]float32{}
		return g.exemplars, nil
	}

	normalized := make([]string, len(g.cfg.Exemplars))
	for i, ex := range g.cfg.Exemplars {
		normalized[i] = domain.Normalize(ex)
	}

	vectors, err := g.embedder.EmbedBatch(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("embed exemplars: %w", err)
	}
	g.exemplars = vectors
	return vectors, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
