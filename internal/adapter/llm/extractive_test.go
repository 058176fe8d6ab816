package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

const testPrompt = `Context:
[chunk 0] The department was founded in 1995. It offers BS and M.Sc. programs.
[chunk 4] The admission deadline for Computer Science is 15 August. Late forms are not accepted.

Question: What is the admission deadline for Computer Science?

Answer:`

func TestExtractiveGenerator_QuotesBestSentence(t *testing.T) {
	g := NewExtractiveGenerator()

	out, err := g.Generate(context.Background(), port.GenerateRequest{Prompt: testPrompt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "The admission deadline for Computer Science is 15 August. [chunk 4]"
	if !strings.HasPrefix(out, want) {
		t.Errorf("Generate() = %q, want prefix %q", out, want)
	}
}

func TestExtractiveGenerator_NoCoverage(t *testing.T) {
	g := NewExtractiveGenerator()

	prompt := strings.Replace(testPrompt,
		"What is the admission deadline for Computer Science?",
		"Who coaches the cricket team?", 1)
	out, err := g.Generate(context.Background(), port.GenerateRequest{Prompt: prompt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != NoAnswer {
		t.Errorf("expected no-answer reply, got %q", out)
	}
}

func TestExtractiveGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewExtractiveGenerator().Generate(ctx, port.GenerateRequest{Prompt: testPrompt}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Dr. Khan heads the M.Sc. program. Apply online! Any questions?")
	want := []string{"Dr. Khan heads the M.Sc. program.", "Apply online!", "Any questions?"}
	if len(got) != len(want) {
		t.Fatalf("splitSentences() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParsePrompt(t *testing.T) {
	question, chunks := parsePrompt(testPrompt)
	if question != "What is the admission deadline for Computer Science?" {
		t.Errorf("unexpected question %q", question)
	}
	if len(chunks) != 2 || chunks[0].id != 0 || chunks[1].id != 4 {
		t.Errorf("unexpected chunks %+v", chunks)
	}
}
