package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/cache"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/memstore"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

const previewChars = 200

// Synthesizer is the answer step of the pipeline.
type Synthesizer interface {
	Synthesize(ctx context.Context, q domain.Query, result domain.RetrievalResult) (domain.Answer, error)
}

type AnswerOptions struct {
	ScopeMessage     string
	BatchConcurrency int
}

// AnswerService runs one question through guardrail, retrieval and
// synthesis. It holds no per-request state and is safe for concurrent use.
type AnswerService struct {
	guard       port.ScopeGuard
	retriever   port.Retriever
	synthesizer Synthesizer
	cache       port.AnswerCache
	handle      *memstore.Handle
	opts        AnswerOptions
	logger      *zerolog.Logger
}

func NewAnswerService(
	guard port.ScopeGuard,
	retriever port.Retriever,
	synthesizer Synthesizer,
	answerCache port.AnswerCache,
	handle *memstore.Handle,
	opts AnswerOptions,
	logger *zerolog.Logger,
) *AnswerService {
	if answerCache == nil {
		answerCache = cache.NopCache{}
	}
	if opts.ScopeMessage == "" {
		opts.ScopeMessage = domain.MessageOutOfScope
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 4
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AnswerService{
		guard:       guard,
		retriever:   retriever,
		synthesizer: synthesizer,
		cache:       answerCache,
		handle:      handle,
		opts:        opts,
		logger:      logger,
	}
}

// AnswerQuestion answers with the configured number of chunks.
func (s *AnswerService) AnswerQuestion(ctx context.Context, raw string) (domain.Response, error) {
	return s.Answer(ctx, raw, 0)
}

// Answer answers raw using up to k chunks (k <= 0: configured default). The
// returned error is only for logging and status mapping; the Response never
// carries its detail.
func (s *AnswerService) Answer(ctx context.Context, raw string, k int) (domain.Response, error) {
	start := time.Now()
	q := domain.NewQuery(raw)

	resp := domain.Response{
		Question:  raw,
		Citations: []int{},
	}

	decision := s.guard.Check(ctx, q)
	if !decision.Accepted {
		resp.Reason = decision.Reason
		resp.Answer = s.opts.ScopeMessage
		resp.Outcome = domain.OutcomeScopeRejected
		s.logger.Info().Str("reason", decision.Reason).Float64("confidence", decision.Confidence).Msg("question rejected")
		return resp, nil
	}
	resp.Accepted = true
	resp.Reason = decision.Reason
	q.Vector = decision.Vector

	key, cacheable := s.cacheKey(q, k)
	if cacheable {
		if answer, ok := s.cache.Get(ctx, key); ok {
			s.logger.Debug().Msg("answer cache hit")
			return s.fill(resp, answer, nil), nil
		}
	}

	result, err := s.retriever.Retrieve(ctx, q, k)
	if err != nil {
		return s.fail(resp, err), err
	}

	answer, err := s.synthesizer.Synthesize(ctx, q, result)
	if err != nil {
		return s.fail(resp, err), err
	}

	resp = s.fill(resp, answer, result)
	if cacheable {
		s.cache.Put(ctx, key, answer)
	}

	s.logger.Info().
		Str("outcome", string(resp.Outcome)).
		Ints("citations", resp.Citations).
		Int("retrieved", len(result)).
		Dur("took", time.Since(start)).
		Msg("question answered")

	return resp, nil
}

// cacheKey pins the key to the index build being served so a swap never
// serves answers computed against the previous index.
func (s *AnswerService) cacheKey(q domain.Query, k int) (string, bool) {
	if s.handle == nil {
		return "", false
	}
	idx := s.handle.Current()
	if idx == nil {
		return "", false
	}
	info := idx.Info()
	return cache.Key(q.NormalizedText, k, info.ModelVersion, info.BuiltAt), true
}

func (s *AnswerService) fill(resp domain.Response, answer domain.Answer, result domain.RetrievalResult) domain.Response {
	resp.Answer = answer.Text
	resp.Grounded = answer.Grounded
	if answer.Citations != nil {
		resp.Citations = answer.Citations
	}
	if answer.Grounded {
		resp.Outcome = domain.OutcomeAnswered
	} else {
		resp.Outcome = domain.OutcomeInsufficientContext
	}
	resp.Sources = sources(result)
	return resp
}

func (s *AnswerService) fail(resp domain.Response, err error) domain.Response {
	if domain.IsCancelled(err) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn().Err(err).Msg("request abandoned")
	} else {
		s.logger.Error().Err(err).Msg("failed to answer question")
	}
	resp.Answer = domain.UserMessage(err)
	resp.Outcome = domain.OutcomeUnavailable
	resp.Grounded = false
	return resp
}

func sources(result domain.RetrievalResult) []domain.Source {
	if len(result) == 0 {
		return nil
	}
	out := make([]domain.Source, len(result))
	for i, sc := range result {
		out[i] = domain.Source{
			ChunkID: sc.Chunk.ID,
			Score:   sc.Score,
			Preview: preview(sc.Chunk.Text),
		}
	}
	return out
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewChars {
		return text
	}
	return string(r[:previewChars]) + "..."
}

// AnswerBatch answers questions concurrently, at most BatchConcurrency at a
// time. Responses keep the input order; failures become unavailable
// responses.
func (s *AnswerService) AnswerBatch(ctx context.Context, questions []string, k int) []domain.Response {
	responses := make([]domain.Response, len(questions))
	sem := make(chan struct{}, s.opts.BatchConcurrency)
	done := make(chan struct{})

	for i, question := range questions {
		go func() {
			defer func() { done <- struct{}{} }()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				responses[i] = s.fail(domain.Response{Question: question, Citations: []int{}}, ctx.Err())
				return
			}
			defer func() { <-sem }()

			responses[i], _ = s.Answer(ctx, question, k)
		}()
	}

	for range questions {
		<-done
	}
	return responses
}
