package memstore

import (
	"fmt"
	"sort"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/embedding"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// Index is an immutable in-memory vector index over the chunks of one
// document. It is safe for concurrent queries; nothing mutates it after Build.
type Index struct {
	info    domain.IndexInfo
	entries []domain.IndexEntry
	byID    map[int]int
}

// Build validates and copies entries. Vectors are normalized so that query
// scoring is a dot product.
func Build(info domain.IndexInfo, entries []domain.IndexEntry) (*Index, error) {
	if info.Dimension <= 0 && len(entries) > 0 {
		info.Dimension = len(entries[0].Vector)
	}

	idx := &Index{
		entries: make([]domain.IndexEntry, len(entries)),
		byID:    make(map[int]int, len(entries)),
	}

	for i, entry := range entries {
		if _, dup := idx.byID[entry.Chunk.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate chunk id %d", domain.ErrInvalidConfig, entry.Chunk.ID)
		}
		if len(entry.Vector) != info.Dimension {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, index expects %d",
				domain.ErrIndexModelMismatch, entry.Chunk.ID, len(entry.Vector), info.Dimension)
		}

		v := make([]float32, len(entry.Vector))
		copy(v, entry.Vector)
		embedding.Normalize(v)

		idx.entries[i] = domain.IndexEntry{Chunk: entry.Chunk, Vector: v}
		idx.byID[entry.Chunk.ID] = i
	}

	info.ChunkCount = len(entries)
	idx.info = info
	return idx, nil
}

// Query returns the min(k, size) most similar chunks, highest score first,
// ties broken by ascending chunk id.
func (x *Index) Query(vector []float32, k int) ([]domain.ScoredChunk, error) {
	return x.QueryFiltered(vector, k, nil)
}

// QueryFiltered is Query restricted to the chunks keep accepts. A nil keep
// accepts every chunk.
func (x *Index) QueryFiltered(vector []float32, k int, keep func(domain.Chunk) bool) ([]domain.ScoredChunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidConfig, k)
	}
	if len(x.entries) == 0 {
		return nil, nil
	}
	if len(vector) != x.info.Dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			domain.ErrIndexModelMismatch, len(vector), x.info.Dimension)
	}

	q := make([]float32, len(vector))
	copy(q, vector)
	embedding.Normalize(q)

	scores := make([]domain.ScoredChunk, 0, len(x.entries))
	for _, entry := range x.entries {
		if keep != nil && !keep(entry.Chunk) {
			continue
		}
		scores = append(scores, domain.ScoredChunk{
			Chunk: entry.Chunk,
			Score: dot(q, entry.Vector),
		})
	}
	if len(scores) == 0 {
		return nil, nil
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Chunk.ID < scores[j].Chunk.ID
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

func (x *Index) Size() int {
	return len(x.entries)
}

func (x *Index) Info() domain.IndexInfo {
	return x.info
}

// Chunk returns the chunk with the given id.
func (x *Index) Chunk(id int) (domain.Chunk, bool) {
	i, ok := x.byID[id]
	if !ok {
		return domain.Chunk{}, false
	}
	return x.entries[i].Chunk, true
}

// Snapshot returns the persisted form of the index.
func (x *Index) Snapshot() domain.IndexSnapshot {
	entries := make([]domain.IndexEntry, len(x.entries))
	copy(entries, x.entries)
	return domain.IndexSnapshot{Info: x.info, Entries: entries}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
