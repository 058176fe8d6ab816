package usecase

import (
	"context"
	"testing"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

type fakeRetriever struct {
	results domain.RetrievalResult
	err     error
	calls   int
	lastK   int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ domain.Query, k int) (domain.RetrievalResult, error) {
	f.calls++
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

func TestRetrieve_FloorDropsEverything(t *testing.T) {
	inner := &fakeRetriever{results: domain.RetrievalResult{scored(0, 0.2, "x"), scored(1, 0.1, "y")}}
	u := NewRetrieveUseCase(inner, 3, 0.3, nil)

	res, err := u.Retrieve(context.Background(), domain.NewQuery("fees"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("expected empty result below floor, got %v", res.IDs())
	}
}

func TestRetrieve_KeepsScoresAtFloor(t *testing.T) {
	inner := &fakeRetriever{results: domain.RetrievalResult{scored(3, 0.8, "x"), scored(1, 0.3, "y"), scored(2, 0.29, "z")}}
	u := NewRetrieveUseCase(inner, 3, 0.3, nil)

	res, err := u.Retrieve(context.Background(), domain.NewQuery("fees"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := res.IDs(); len(ids) != 2 || ids[0] != 3 || ids[1] != 1 {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestRetrieve_ResolvesK(t *testing.T) {
	inner := &fakeRetriever{}
	u := NewRetrieveUseCase(inner, 3, 0.3, nil)

	tests := []struct {
		k    int
		want int
	}{
		{0, 3},
		{-1, 3},
		{5, 5},
		{50, MaxTopK},
	}
	for _, tt := range tests {
		if _, err := u.Retrieve(context.Background(), domain.NewQuery("q"), tt.k); err != nil {
			t.Fatal(err)
		}
		if inner.lastK != tt.want {
			t.Errorf("k=%d resolved to %d, want %d", tt.k, inner.lastK, tt.want)
		}
	}
}
