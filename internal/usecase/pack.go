package usecase

import (
	"sort"
	"strconv"
	"strings"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

const defaultContextWords = 600

// PackUseCase renders retrieved chunks as prompt context.
type PackUseCase struct{}

func NewPackUseCase() *PackUseCase {
	return &PackUseCase{}
}

// Pack adds chunks in descending score order, each as one "[chunk N] text"
// line, until budgetWords is spent. The chunk crossing the budget is cut at a
// word boundary and everything after it is dropped.
func (u *PackUseCase) Pack(result domain.RetrievalResult, budgetWords int) domain.PackedContext {
	if budgetWords <= 0 {
		budgetWords = defaultContextWords
	}

	ranked := make([]domain.ScoredChunk, len(result))
	copy(ranked, result)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	packed := domain.PackedContext{ChunkIDs: []int{}}
	lines := make([]string, 0, len(ranked))

	for _, sc := range ranked {
		remaining := budgetWords - packed.Words
		if remaining <= 0 {
			packed.Truncated = true
			break
		}

		words := strings.Fields(sc.Chunk.Text)
		if len(words) == 0 {
			continue
		}
		if len(words) > remaining {
			words = words[:remaining]
			packed.Truncated = true
		}

		lines = append(lines, chunkMarker(sc.Chunk.ID)+" "+strings.Join(words, " "))
		packed.ChunkIDs = append(packed.ChunkIDs, sc.Chunk.ID)
		packed.Words += len(words)

		if packed.Truncated {
			break
		}
	}

	packed.Text = strings.Join(lines, "\n")
	return packed
}

func chunkMarker(id int) string {
	return "[chunk " + strconv.Itoa(id) + "]"
}
