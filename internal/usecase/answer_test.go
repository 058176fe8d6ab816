package usecase

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/config"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/cache"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/guardrail"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/llm"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/memstore"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/retriever"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port/mocks"
)

type countingRetriever struct {
	inner port.Retriever
	calls atomic.Int32
}

func (c *countingRetriever) Retrieve(ctx context.Context, q domain.Query, k int) (domain.RetrievalResult, error) {
	c.calls.Add(1)
	return c.inner.Retrieve(ctx, q, k)
}

type countingGenerator struct {
	inner port.Generator
	calls atomic.Int32
}

func (c *countingGenerator) Generate(ctx context.Context, req port.GenerateRequest) (string, error) {
	c.calls.Add(1)
	return c.inner.Generate(ctx, req)
}

func (c *countingGenerator) ModelName() string {
	return c.inner.ModelName()
}

type pipeline struct {
	service   *AnswerService
	handle    *memstore.Handle
	retriever *countingRetriever
	generator *countingGenerator
	cache     *cache.MemoryCache
}

// newPipeline indexes departmentDoc and wires the same components the
// CLI uses with the offline embedder and generator.
func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	embedder := hashingEmbedder(t, 512)
	ti := newTestIndex(t, embedder)
	if _, err := ti.indexer.Build(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	guard, err := guardrail.New(guardrail.Config{
		Keywords:            config.DefaultKeywords,
		MinKeywordMatches:   1,
		KeywordRatio:        0.15,
		SemanticEnabled:     true,
		SimilarityThreshold: 0.55,
		Exemplars:           config.DefaultExemplars,
	}, embedder, nil)
	if err != nil {
		t.Fatal(err)
	}

	ret := &countingRetriever{inner: NewRetrieveUseCase(
		retriever.NewSemanticRetriever(ti.handle, embedder, nil, nil), 3, 0.3, nil)}
	gen := &countingGenerator{inner: llm.NewExtractiveGenerator()}
	synth := NewSynthesizeUseCase(gen, NewPackUseCase(), SynthesisOptions{MaxContextWords: 600}, nil)
	answerCache := cache.NewMemoryCache(16, 0)

	svc := NewAnswerService(guard, ret, synth, answerCache, ti.handle, AnswerOptions{BatchConcurrency: 2}, nil)
	return &pipeline{service: svc, handle: ti.handle, retriever: ret, generator: gen, cache: answerCache}
}

func TestAnswer_GroundedWithCitation(t *testing.T) {
	p := newPipeline(t)

	resp, err := p.service.AnswerQuestion(context.Background(), "What is the admission deadline for Computer Science?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Outcome != domain.OutcomeAnswered || !resp.Grounded || !resp.Accepted {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Citations) == 0 {
		t.Fatal("expected at least one citation")
	}
	cited, ok := p.handle.Current().Chunk(resp.Citations[0])
	if !ok || !strings.Contains(cited.Text, "deadline") {
		t.Errorf("expected the deadline chunk to be cited first, got %+v", cited)
	}
	if !strings.Contains(resp.Answer, "15 August") {
		t.Errorf("expected the deadline in the answer, got %q", resp.Answer)
	}

	retrieved := map[int]bool{}
	for _, s := range resp.Sources {
		retrieved[s.ChunkID] = true
		if len([]rune(s.Preview)) > previewChars+3 {
			t.Errorf("preview too long: %d", len(s.Preview))
		}
	}
	for _, id := range resp.Citations {
		if !retrieved[id] {
			t.Errorf("citation %d is not among the sources", id)
		}
	}
}

func TestAnswer_OutOfScopeSkipsPipeline(t *testing.T) {
	p := newPipeline(t)

	resp, err := p.service.AnswerQuestion(context.Background(), "What's the weather today?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Accepted || resp.Outcome != domain.OutcomeScopeRejected {
		t.Fatalf("expected rejection, got %+v", resp)
	}
	if resp.Answer != domain.MessageOutOfScope || resp.Reason != domain.ReasonOutOfScope {
		t.Errorf("unexpected rejection %q (%s)", resp.Answer, resp.Reason)
	}
	if p.retriever.calls.Load() != 0 || p.generator.calls.Load() != 0 {
		t.Error("rejected question must not reach retrieval or generation")
	}
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	p := newPipeline(t)

	resp, _ := p.service.AnswerQuestion(context.Background(), "   ")
	if resp.Accepted || resp.Reason != domain.ReasonEmptyQuery {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAnswer_InsufficientContext(t *testing.T) {
	p := newPipeline(t)

	resp, err := p.service.AnswerQuestion(context.Background(), "What is the hostel fee for PhD students?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Accepted {
		t.Fatalf("expected the question to pass the guardrail, got %+v", resp)
	}
	if resp.Outcome != domain.OutcomeInsufficientContext || resp.Grounded || len(resp.Citations) != 0 {
		t.Errorf("expected insufficient context, got %+v", resp)
	}
}

func TestAnswer_CachesAnswers(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	q := "What is the admission deadline for Computer Science?"

	first, _ := p.service.AnswerQuestion(ctx, q)
	second, _ := p.service.AnswerQuestion(ctx, "  what is the ADMISSION deadline for computer science? ")

	if p.generator.calls.Load() != 1 {
		t.Errorf("expected one generation, got %d", p.generator.calls.Load())
	}
	if first.Answer != second.Answer {
		t.Errorf("cached answer differs: %q vs %q", first.Answer, second.Answer)
	}

	p.cache.Invalidate(ctx)
	_, _ = p.service.AnswerQuestion(ctx, q)
	if p.generator.calls.Load() != 2 {
		t.Error("expected invalidated cache to miss")
	}
}

func TestAnswer_UnavailableHidesDetail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p := newPipeline(t)
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return("", errors.New("dial tcp 10.0.0.7:8000: connection refused"))
	gen.EXPECT().ModelName().Return("mock").AnyTimes()

	synth := NewSynthesizeUseCase(llm.WithRetry(gen, llm.RetryConfig{MaxRetries: 0}, nil), NewPackUseCase(), SynthesisOptions{}, nil)
	svc := NewAnswerService(p.service.guard, p.service.retriever, synth, nil, p.handle, AnswerOptions{}, nil)

	resp, err := svc.AnswerQuestion(context.Background(), "What is the admission deadline for Computer Science?")
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if resp.Outcome != domain.OutcomeUnavailable || resp.Answer != domain.MessageUnavailable {
		t.Errorf("unexpected response %+v", resp)
	}
	if strings.Contains(resp.Answer, "10.0.0.7") {
		t.Error("raw error leaked into the response")
	}
}

func TestAnswer_NoIndex(t *testing.T) {
	p := newPipeline(t)
	p.handle.Swap(nil)

	resp, err := p.service.AnswerQuestion(context.Background(), "Who is the chairman of the department?")
	if !errors.Is(err, domain.ErrIndexNotLoaded) {
		t.Fatalf("expected ErrIndexNotLoaded, got %v", err)
	}
	if resp.Outcome != domain.OutcomeUnavailable {
		t.Errorf("unexpected outcome %s", resp.Outcome)
	}
}

func TestAnswerBatch_PreservesOrder(t *testing.T) {
	p := newPipeline(t)

	questions := []string{
		"What is the admission deadline for Computer Science?",
		"What's the weather today?",
		"Who is the chairman of the department?",
		"",
	}
	responses := p.service.AnswerBatch(context.Background(), questions, 0)

	if len(responses) != len(questions) {
		t.Fatalf("expected %d responses, got %d", len(questions), len(responses))
	}
	for i, r := range responses {
		if r.Question != questions[i] {
			t.Errorf("response %d is for %q, want %q", i, r.Question, questions[i])
		}
	}
	if responses[1].Outcome != domain.OutcomeScopeRejected || responses[3].Reason != domain.ReasonEmptyQuery {
		t.Errorf("unexpected outcomes %s / %s", responses[1].Outcome, responses[3].Reason)
	}
}

func TestAnswerBatch_CancelledContext(t *testing.T) {
	p := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	responses := p.service.AnswerBatch(ctx, []string{"Who is the chairman?", "fees?"}, 0)
	for _, r := range responses {
		if r.Outcome == domain.OutcomeAnswered {
			t.Errorf("cancelled batch produced an answer: %+v", r)
		}
	}
}
