package store

import (
	"errors"
	"testing"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/config"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/embedding"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

func TestComputeConfigHash(t *testing.T) {
	cfg := config.DefaultConfig()
	a := ComputeConfigHash(cfg)
	if len(a) != 16 {
		t.Errorf("expected 16 hex chars, got %q", a)
	}

	cfg.Retrieve.TopK = 9
	if ComputeConfigHash(cfg) != a {
		t.Error("retrieval settings must not change the index hash")
	}

	cfg.Chunking.Overlap = 40
	if ComputeConfigHash(cfg) == a {
		t.Error("chunk overlap must change the index hash")
	}
}

func TestCheckCompatibility(t *testing.T) {
	emb, err := embedding.NewHashingEmbedder(64)
	if err != nil {
		t.Fatal(err)
	}
	base := domain.IndexInfo{
		SchemaVersion: CurrentSchemaVersion,
		ModelVersion:  emb.ModelVersion(),
		Dimension:     64,
		ConfigHash:    "h1",
	}

	res, err := CheckCompatibility(base, emb, "h1")
	if err != nil || res.Stale {
		t.Errorf("expected compatible, got %+v, %v", res, err)
	}

	res, err = CheckCompatibility(base, emb, "h2")
	if err != nil || !res.Stale {
		t.Errorf("expected stale warning, got %+v, %v", res, err)
	}

	other := base
	other.ModelVersion = "openai:text-embedding-3-small"
	if _, err := CheckCompatibility(other, emb, "h1"); !errors.Is(err, domain.ErrIndexModelMismatch) {
		t.Errorf("expected ErrIndexModelMismatch for model change, got %v", err)
	}

	other = base
	other.Dimension = 32
	if _, err := CheckCompatibility(other, emb, "h1"); !errors.Is(err, domain.ErrIndexModelMismatch) {
		t.Errorf("expected ErrIndexModelMismatch for dimension change, got %v", err)
	}

	other = base
	other.SchemaVersion = CurrentSchemaVersion + 1
	if _, err := CheckCompatibility(other, emb, "h1"); err == nil {
		t.Error("expected error for newer schema")
	}
}
