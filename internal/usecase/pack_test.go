package usecase

import (
	"strings"
	"testing"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

func scored(id int, score float64, text string) domain.ScoredChunk {
	return domain.ScoredChunk{Chunk: domain.Chunk{ID: id, Text: text}, Score: score}
}

func TestPack_ScoreOrderAndMarkers(t *testing.T) {
	packer := NewPackUseCase()

	packed := packer.Pack(domain.RetrievalResult{
		scored(5, 0.4, "fees are listed"),
		scored(2, 0.9, "the dean is Dr. Ali"),
	}, 100)

	want := "[chunk 2] the dean is Dr. Ali\n[chunk 5] fees are listed"
	if packed.Text != want {
		t.Errorf("Pack().Text = %q, want %q", packed.Text, want)
	}
	if len(packed.ChunkIDs) != 2 || packed.ChunkIDs[0] != 2 || packed.ChunkIDs[1] != 5 {
		t.Errorf("unexpected chunk ids %v", packed.ChunkIDs)
	}
	if packed.Words != 8 || packed.Truncated {
		t.Errorf("unexpected words=%d truncated=%v", packed.Words, packed.Truncated)
	}
}

func TestPack_TruncatesAtBudget(t *testing.T) {
	packer := NewPackUseCase()

	packed := packer.Pack(domain.RetrievalResult{
		scored(0, 0.9, "one two three four"),
		scored(1, 0.8, "five six   seven\neight"),
		scored(2, 0.7, "nine ten"),
	}, 6)

	if packed.Words != 6 {
		t.Errorf("expected 6 words, got %d", packed.Words)
	}
	if !packed.Truncated {
		t.Error("expected truncated context")
	}
	if len(packed.ChunkIDs) != 2 {
		t.Errorf("expected chunks 0 and 1, got %v", packed.ChunkIDs)
	}
	if !strings.HasSuffix(packed.Text, "[chunk 1] five six") {
		t.Errorf("expected cut at word boundary, got %q", packed.Text)
	}
	if strings.Contains(packed.Text, "nine") {
		t.Error("chunk after the budget must be dropped")
	}
}

func TestPack_Empty(t *testing.T) {
	packed := NewPackUseCase().Pack(nil, 600)
	if packed.Text != "" || len(packed.ChunkIDs) != 0 || packed.Truncated {
		t.Errorf("unexpected packed context %+v", packed)
	}
}
