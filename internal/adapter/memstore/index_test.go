package memstore

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

func entry(id int, v ...float32) domain.IndexEntry {
	return domain.IndexEntry{
		Chunk:  domain.Chunk{ID: id, Text: "chunk"},
		Vector: v,
	}
}

func testInfo(dim int) domain.IndexInfo {
	return domain.IndexInfo{SchemaVersion: 1, ModelVersion: "test", Dimension: dim}
}

func TestBuild_Validation(t *testing.T) {
	if _, err := Build(testInfo(2), []domain.IndexEntry{entry(0, 1, 0), entry(0, 0, 1)}); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected duplicate id error, got %v", err)
	}
	if _, err := Build(testInfo(2), []domain.IndexEntry{entry(0, 1, 0), entry(1, 0, 1, 0)}); !errors.Is(err, domain.ErrIndexModelMismatch) {
		t.Errorf("expected dimension error, got %v", err)
	}
}

func TestBuild_DoesNotAliasInput(t *testing.T) {
	entries := []domain.IndexEntry{entry(0, 1, 0)}
	idx, err := Build(testInfo(2), entries)
	if err != nil {
		t.Fatal(err)
	}

	entries[0].Vector[0] = -1
	res, _ := idx.Query([]float32{1, 0}, 1)
	if res[0].Score < 0.99 {
		t.Errorf("index changed after input was mutated: %v", res)
	}
}

func TestQuery_OrderAndTies(t *testing.T) {
	idx, err := Build(testInfo(2), []domain.IndexEntry{
		entry(3, 1, 0),
		entry(1, 0, 1),
		entry(2, 1, 0),
		entry(0, 1, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := idx.Query([]float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 4 {
		t.Fatalf("expected min(k,size)=4 results, got %d", len(res))
	}

	wantIDs := []int{2, 3, 0, 1}
	for i, sc := range res {
		if sc.Chunk.ID != wantIDs[i] {
			t.Errorf("position %d: expected chunk %d, got %d", i, wantIDs[i], sc.Chunk.ID)
		}
	}
	for i := 1; i < len(res); i++ {
		if res[i].Score > res[i-1].Score {
			t.Errorf("scores not descending at %d: %v", i, res)
		}
	}
	if math.Abs(res[0].Score-1) > 1e-6 {
		t.Errorf("expected cosine 1 for identical direction, got %f", res[0].Score)
	}
	if math.Abs(res[2].Score-math.Sqrt2/2) > 1e-6 {
		t.Errorf("expected cosine 0.707, got %f", res[2].Score)
	}
}

func TestQuery_Errors(t *testing.T) {
	idx, _ := Build(testInfo(2), []domain.IndexEntry{entry(0, 1, 0)})

	if _, err := idx.Query([]float32{1, 0}, 0); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for k=0, got %v", err)
	}
	if _, err := idx.Query([]float32{1, 0, 0}, 1); !errors.Is(err, domain.ErrIndexModelMismatch) {
		t.Errorf("expected ErrIndexModelMismatch, got %v", err)
	}
}

func TestQuery_Empty(t *testing.T) {
	idx, err := Build(testInfo(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := idx.Query([]float32{1, 0}, 3)
	if err != nil || len(res) != 0 {
		t.Errorf("expected no results, got %v, %v", res, err)
	}

	unsized, err := Build(testInfo(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err = unsized.Query([]float32{1, 0, 0}, 3)
	if err != nil || len(res) != 0 {
		t.Errorf("empty index without a dimension should return no results, got %v, %v", res, err)
	}
}

func TestQueryFiltered(t *testing.T) {
	idx, err := Build(testInfo(2), []domain.IndexEntry{
		entry(0, 1, 0),
		entry(1, 0, 1),
		entry(2, 1, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	odd := func(c domain.Chunk) bool { return c.ID%2 == 1 }
	res, err := idx.QueryFiltered([]float32{1, 0}, 3, odd)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Chunk.ID != 1 {
		t.Errorf("expected only chunk 1, got %v", res)
	}

	none := func(domain.Chunk) bool { return false }
	res, err = idx.QueryFiltered([]float32{1, 0}, 3, none)
	if err != nil || len(res) != 0 {
		t.Errorf("expected no results, got %v, %v", res, err)
	}

	res, _ = idx.QueryFiltered([]float32{1, 0}, 2, nil)
	if len(res) != 2 || res[0].Chunk.ID != 0 {
		t.Errorf("nil filter should rank every chunk, got %v", res)
	}
}

func TestIndexChunkLookup(t *testing.T) {
	idx, _ := Build(testInfo(2), []domain.IndexEntry{entry(7, 1, 0)})

	if _, ok := idx.Chunk(7); !ok {
		t.Error("expected chunk 7")
	}
	if _, ok := idx.Chunk(8); ok {
		t.Error("did not expect chunk 8")
	}
	if idx.Info().ChunkCount != 1 || idx.Size() != 1 {
		t.Errorf("unexpected size info %+v", idx.Info())
	}
}

func TestHandle_SwapUnderConcurrentReaders(t *testing.T) {
	a, _ := Build(testInfo(2), []domain.IndexEntry{entry(0, 1, 0)})
	b, _ := Build(testInfo(2), []domain.IndexEntry{entry(0, 1, 0), entry(1, 0, 1)})

	h := NewHandle(nil)
	if h.Current() != nil {
		t.Fatal("expected no index before first swap")
	}
	if h.Stats().Loaded {
		t.Fatal("expected unloaded stats")
	}
	h.Swap(a)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				idx := h.Current()
				res, err := idx.Query([]float32{1, 0}, 2)
				if err != nil {
					t.Error(err)
					return
				}
				// each reader sees one complete index, never a mix
				if len(res) != idx.Size() {
					t.Errorf("partial index: %d results for size %d", len(res), idx.Size())
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			h.Swap(b)
		} else {
			h.Swap(a)
		}
	}
	wg.Wait()

	if h.Generation() != 101 {
		t.Errorf("expected generation 101, got %d", h.Generation())
	}
	if !h.Stats().Loaded {
		t.Error("expected loaded stats")
	}
}
