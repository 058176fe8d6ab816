package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/config"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/cache"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/chunker"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/embedding"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/fs"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/guardrail"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/llm"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/memstore"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/retriever"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/store"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/usecase"
)

// Pipeline holds every wired component of the question answering service.
type Pipeline struct {
	Handle    *memstore.Handle
	Indexer   *usecase.IndexUseCase
	Retrieve  *usecase.RetrieveUseCase
	Packer    *usecase.PackUseCase
	Service   *usecase.AnswerService
	Cache     port.AnswerCache
	Embedder  port.Embedder
	Generator port.Generator

	closers []func() error
}

// NewPipeline wires the components named by cfg. The index is not loaded.
func NewPipeline(ctx context.Context, cfg *config.Config, root string, logger *zerolog.Logger) (*Pipeline, error) {
	p := &Pipeline{Handle: memstore.NewHandle(nil)}

	base, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	p.Embedder = base

	// Query-time calls are bounded and retried; builds fail fast on the base embedder.
	queryEmbedder := embedding.WithRetry(base, embedding.RetryConfig{
		Timeout:    cfg.Embedding.Timeout,
		MaxRetries: cfg.Embedding.MaxRetries,
	}, logger)

	generator, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	p.Generator = generator

	st, err := newStore(ctx, cfg, root)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, st.Close)

	chk, err := chunker.NewWordChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.Indexer = usecase.NewIndexUseCase(
		fs.NewSource(root),
		chk,
		base,
		st,
		p.Handle,
		usecase.IndexOptions{
			DocumentPattern: cfg.Document.Path,
			Clean:           cfg.Document.Clean,
			ConfigHash:      store.ComputeConfigHash(cfg),
			BatchSize:       cfg.Embedding.BatchSize,
		},
		logger,
	)

	var guardEmbedder port.Embedder
	if cfg.Guardrail.SemanticEnabled {
		guardEmbedder = queryEmbedder
	}
	guard, err := guardrail.New(guardrail.Config{
		Keywords:            cfg.Guardrail.Keywords,
		MinKeywordMatches:   cfg.Guardrail.MinKeywordMatches,
		KeywordRatio:        cfg.Guardrail.KeywordRatio,
		SemanticEnabled:     cfg.Guardrail.SemanticEnabled,
		SimilarityThreshold: cfg.Guardrail.SimilarityThreshold,
		Exemplars:           cfg.Guardrail.Exemplars,
	}, guardEmbedder, logger)
	if err != nil {
		p.Close()
		return nil, err
	}

	var expander *retriever.QueryExpander
	if cfg.Retrieve.ExpandQuery {
		expander = retriever.NewQueryExpander()
	}
	semantic := retriever.NewSemanticRetriever(p.Handle, queryEmbedder, expander, logger)
	if cfg.Retrieve.MetadataFilter {
		semantic.WithMetadataFilter(retriever.NewMetadataFilter())
	}
	p.Retrieve = usecase.NewRetrieveUseCase(semantic, cfg.Retrieve.TopK, cfg.Retrieve.MinScore, logger)

	p.Packer = usecase.NewPackUseCase()
	synth := usecase.NewSynthesizeUseCase(generator, p.Packer, usecase.SynthesisOptions{
		MaxContextWords: cfg.Synthesis.MaxContextWords,
		MaxTokens:       cfg.Generation.MaxTokens,
		Temperature:     cfg.Generation.Temperature,
	}, logger)

	p.Cache = newCache(ctx, cfg, logger, &p.closers)

	p.Service = usecase.NewAnswerService(guard, p.Retrieve, synth, p.Cache, p.Handle, usecase.AnswerOptions{
		ScopeMessage:     cfg.Guardrail.Message,
		BatchConcurrency: cfg.Server.BatchConcurrency,
	}, logger)

	return p, nil
}

// Close releases the store and cache connections.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		_ = p.closers[i]()
	}
	p.closers = nil
}

// LoadIndex loads the persisted index into the handle.
func (p *Pipeline) LoadIndex(ctx context.Context) (*store.Compatibility, error) {
	return p.Indexer.Load(ctx)
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "hashing", "":
		return embedding.NewHashingEmbedder(cfg.Embedding.Dimension)
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.BatchSize)
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrInvalidConfig, cfg.Embedding.Provider)
	}
}

func newGenerator(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (port.Generator, error) {
	var (
		gen port.Generator
		err error
	)

	switch cfg.Generation.Provider {
	case "extractive", "":
		return llm.NewExtractiveGenerator(), nil
	case "openai":
		gen, err = llm.NewOpenAIGenerator(cfg.Generation.APIKeyEnv, cfg.Generation.Model, cfg.Generation.BaseURL)
	case "bedrock":
		gen, err = llm.NewBedrockGenerator(ctx, cfg.Generation.Region, cfg.Generation.Model)
	default:
		return nil, fmt.Errorf("%w: unsupported generation provider: %s", domain.ErrInvalidConfig, cfg.Generation.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	return llm.WithRetry(gen, llm.RetryConfig{
		Timeout:    cfg.Generation.Timeout,
		MaxRetries: cfg.Generation.MaxRetries,
	}, logger), nil
}

func newStore(ctx context.Context, cfg *config.Config, root string) (port.IndexStore, error) {
	switch cfg.Index.Backend {
	case "bolt", "":
		if err := cfg.EnsureDataDir(root); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return store.NewBoltStore(cfg.IndexDBPath(root)), nil
	case "postgres":
		url := os.Getenv(cfg.Index.PostgresURLEnv)
		if url == "" {
			return nil, fmt.Errorf("%w: %s is not set", domain.ErrInvalidConfig, cfg.Index.PostgresURLEnv)
		}
		st, err := store.NewPostgresStore(ctx, url)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: unsupported index backend: %s", domain.ErrInvalidConfig, cfg.Index.Backend)
	}
}

// newCache never fails: an unreachable redis degrades to no caching.
func newCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, closers *[]func() error) port.AnswerCache {
	switch cfg.Cache.Backend {
	case "redis":
		client, err := cache.Connect(ctx, cfg.Cache.RedisAddr, os.Getenv(cfg.Cache.RedisPasswordEnv), 3, logger)
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, answer cache disabled")
			return cache.NopCache{}
		}
		rc := cache.NewRedisCache(client, cfg.Cache.Prefix, cfg.Cache.TTL, logger)
		*closers = append(*closers, rc.Close)
		return rc
	case "none":
		return cache.NopCache{}
	default:
		return cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL)
	}
}
