package memstore

import (
	"sync/atomic"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// Handle points at the index currently being served. Readers take the
// pointer once per request and keep using that index even if a rebuild
// swaps in a new one meanwhile.
type Handle struct {
	current    atomic.Pointer[Index]
	generation atomic.Uint64
}

func NewHandle(idx *Index) *Handle {
	h := &Handle{}
	if idx != nil {
		h.Swap(idx)
	}
	return h
}

// Current returns the served index, or nil before the first load.
func (h *Handle) Current() *Index {
	return h.current.Load()
}

// Swap installs idx and returns the previous index.
func (h *Handle) Swap(idx *Index) *Index {
	old := h.current.Swap(idx)
	h.generation.Add(1)
	return old
}

// Generation counts swaps, so callers can tell that the index changed.
func (h *Handle) Generation() uint64 {
	return h.generation.Load()
}

// Stats summarizes the served index.
func (h *Handle) Stats() domain.Stats {
	idx := h.Current()
	if idx == nil {
		return domain.Stats{Generation: h.Generation()}
	}
	info := idx.Info()
	return domain.Stats{
		Loaded:       true,
		Chunks:       idx.Size(),
		Dimension:    info.Dimension,
		ModelVersion: info.ModelVersion,
		BuiltAt:      info.BuiltAt,
		DocumentID:   info.DocumentID,
		Generation:   h.Generation(),
	}
}
