package chunker

import (
	"fmt"
	"strings"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// WordChunker splits text into fixed-size word windows where consecutive
// windows share overlap words.
type WordChunker struct {
	size    int
	overlap int
}

func NewWordChunker(size, overlap int) (*WordChunker, error) {
	if size <= 0 || overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk size %d and overlap %d must satisfy 0 < overlap < size",
			domain.ErrInvalidConfig, size, overlap)
	}
	return &WordChunker{
		size:    size,
		overlap: overlap,
	}, nil
}

// Chunk returns chunks in document order with ids 0..n-1. The last window may
// be shorter than size; no window is emitted once the end has been reached.
func (c *WordChunker) Chunk(docID, text string) ([]domain.Chunk, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	stride := c.size - c.overlap
	chunks := make([]domain.Chunk, 0, len(words)/stride+1)

	for start := 0; start < len(words); start += stride {
		end := min(start+c.size, len(words))
		chunkText := strings.Join(words[start:end], " ")

		chunks = append(chunks, domain.Chunk{
			ID:               len(chunks),
			Text:             chunkText,
			StartWordOffset:  start,
			SourceDocumentID: docID,
			Metadata:         DetectMetadata(chunkText),
		})

		if end == len(words) {
			break
		}
	}

	return chunks, nil
}
