package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

func TestHashingEmbedder_Deterministic(t *testing.T) {
	e, err := NewHashingEmbedder(256)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	text := "The admission deadline for Computer Science is July 15."
	a, err := e.Embed(ctx, text)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, text)
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != 256 {
		t.Fatalf("expected dimension 256, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d", i)
		}
	}
	if sim := Cosine(a, b); math.Abs(sim-1) > 1e-6 {
		t.Errorf("expected self-similarity 1.0, got %f", sim)
	}
}

func TestHashingEmbedder_Similarity(t *testing.T) {
	e, _ := NewHashingEmbedder(512)
	ctx := context.Background()

	vecs, err := e.EmbedBatch(ctx, []string{
		"admission deadline for computer science",
		"What is the admission deadline?",
		"weather forecast today",
	})
	if err != nil {
		t.Fatal(err)
	}

	related := Cosine(vecs[0], vecs[1])
	unrelated := Cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("expected related texts to score higher: related=%f unrelated=%f", related, unrelated)
	}
}

func TestHashingEmbedder_OnlyStopwords(t *testing.T) {
	e, _ := NewHashingEmbedder(64)

	v, err := e.Embed(context.Background(), "what is the")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestHashingEmbedder_InvalidDimension(t *testing.T) {
	if _, err := NewHashingEmbedder(8); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestHashingEmbedder_ModelVersion(t *testing.T) {
	e, _ := NewHashingEmbedder(128)
	if got := e.ModelVersion(); got != "hashing-v1:128" {
		t.Errorf("unexpected model version %q", got)
	}
}

func TestHashingEmbedder_Cancelled(t *testing.T) {
	e, _ := NewHashingEmbedder(64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Embed(ctx, "faculty"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNormalizeAndCosine(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("unexpected normalized vector %v", v)
	}

	if got := Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors should score 0, got %f", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("mismatched lengths should score 0, got %f", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector should score 0, got %f", got)
	}
}
