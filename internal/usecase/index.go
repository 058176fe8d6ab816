package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/analyzer"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/memstore"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/store"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

type IndexOptions struct {
	DocumentPattern string
	Clean           bool
	ConfigHash      string
	BatchSize       int
}

// ProgressFunc is called after every embedded batch.
type ProgressFunc func(done, total int)

// IndexUseCase builds, persists and loads the chunk index.
type IndexUseCase struct {
	source   port.DocumentSource
	chunker  port.Chunker
	embedder port.Embedder
	store    port.IndexStore
	handle   *memstore.Handle
	opts     IndexOptions
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewIndexUseCase(
	source port.DocumentSource,
	chunker port.Chunker,
	embedder port.Embedder,
	store port.IndexStore,
	handle *memstore.Handle,
	opts IndexOptions,
	logger *zerolog.Logger,
) *IndexUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &IndexUseCase{
		source:   source,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		handle:   handle,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// IndexResult summarizes one build.
type IndexResult struct {
	DocumentID string
	Chunks     int
	Words      int
	Dimension  int
	Duration   time.Duration
}

// Build reads the document, embeds every chunk and replaces the persisted
// index. The served index is swapped only after the snapshot is saved, so a
// failed build leaves both the old file and the old handle in place.
func (u *IndexUseCase) Build(ctx context.Context, progress ProgressFunc) (*IndexResult, error) {
	start := u.now()

	path, err := u.source.Resolve(u.opts.DocumentPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document: %w", err)
	}

	doc, err := u.source.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	text := doc.Text
	if u.opts.Clean {
		text = analyzer.Clean(text)
	}

	chunks, err := u.chunker.Chunk(doc.ID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document %s has no text", domain.ErrInvalidConfig, doc.ID)
	}

	u.logger.Info().Str("document", doc.ID).Int("chunks", len(chunks)).Msg("embedding chunks")

	vectors, err := u.embedChunks(ctx, chunks, progress)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexEntry{Chunk: c, Vector: vectors[i]}
	}

	info := domain.IndexInfo{
		SchemaVersion:    store.CurrentSchemaVersion,
		ModelVersion:     u.embedder.ModelVersion(),
		Dimension:        len(vectors[0]),
		BuiltAt:          u.now().UTC(),
		ConfigHash:       u.opts.ConfigHash,
		DocumentID:       doc.ID,
		DocumentChecksum: doc.Checksum,
	}

	idx, err := memstore.Build(info, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	if err := u.store.Save(ctx, idx.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}

	if u.handle != nil {
		u.handle.Swap(idx)
	}

	result := &IndexResult{
		DocumentID: doc.ID,
		Chunks:     idx.Size(),
		Words:      analyzer.CountWords(text),
		Dimension:  info.Dimension,
		Duration:   u.now().Sub(start),
	}
	u.logger.Info().
		Str("document", result.DocumentID).
		Int("chunks", result.Chunks).
		Int("dimension", result.Dimension).
		Dur("took", result.Duration).
		Msg("index built")

	return result, nil
}

func (u *IndexUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += u.opts.BatchSize {
		end := min(start+u.opts.BatchSize, len(chunks))

		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}

		batch, err := u.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingUnavailable, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)

		if progress != nil {
			progress(end, len(chunks))
		}
	}

	return vectors, nil
}

// Load reads the persisted index, checks it against the configured embedder
// and swaps it in. A stale configuration is reported but still served.
func (u *IndexUseCase) Load(ctx context.Context) (*store.Compatibility, error) {
	snap, err := u.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	compat, err := store.CheckCompatibility(snap.Info, u.embedder, u.opts.ConfigHash)
	if err != nil {
		return nil, err
	}
	if compat.Stale {
		u.logger.Warn().Str("reason", compat.Reason).Msg("index is stale, run `deptqa index` to rebuild")
	}

	idx, err := memstore.Build(snap.Info, snap.Entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	if u.handle != nil {
		u.handle.Swap(idx)
	}
	u.logger.Info().
		Str("model", snap.Info.ModelVersion).
		Int("chunks", idx.Size()).
		Time("built_at", snap.Info.BuiltAt).
		Msg("index loaded")

	return compat, nil
}
