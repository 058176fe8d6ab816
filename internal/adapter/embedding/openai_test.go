package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

func embeddingsServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"model not loaded","type":"server_error"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		// answer in reverse order to exercise index handling
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Object: "embedding", Embedding: []float32{float32(j + 1), 0, 0, 0}, Index: j}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv := embeddingsServer(t, http.StatusOK)
	defer srv.Close()

	e, err := NewOpenAIEmbedder("DEPTQA_TEST_UNSET_KEY", "custom-embed", srv.URL+"/v1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimension() != 0 {
		t.Errorf("unknown model should start with dimension 0, got %d", e.Dimension())
	}

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if math.Abs(float64(v[0])-1) > 1e-6 {
			t.Errorf("vector %d not normalized: %v", i, v)
		}
	}
	if e.Dimension() != 4 {
		t.Errorf("expected detected dimension 4, got %d", e.Dimension())
	}
	if e.ModelVersion() != "openai:custom-embed" {
		t.Errorf("unexpected model version %s", e.ModelVersion())
	}
}

func TestOpenAIEmbedder_ServerError(t *testing.T) {
	srv := embeddingsServer(t, http.StatusBadRequest)
	defer srv.Close()

	e, _ := NewOpenAIEmbedder("DEPTQA_TEST_UNSET_KEY", "custom-embed", srv.URL+"/v1", 8)
	_, err := e.Embed(context.Background(), "faculty")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestOpenAIEmbedder_EmptyText(t *testing.T) {
	e, _ := NewOpenAIEmbedder("DEPTQA_TEST_UNSET_KEY", "custom-embed", "http://127.0.0.1:1/v1", 8)
	if _, err := e.Embed(context.Background(), ""); !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestOpenAIEmbedder_RequiresModel(t *testing.T) {
	if _, err := NewOpenAIEmbedder("X", "", "", 1); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
