package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/api"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the question answering API under /api/v1. Send SIGHUP to reload
the index after running 'deptqa index'; requests in flight finish on the
index they started with.

Endpoints:
  POST /api/v1/chat          {"question": "...", "top_k": 3}
  POST /api/v1/chat/batch    {"questions": ["...", "..."]}
  GET  /api/v1/health
  GET  /api/v1/stats
  GET  /api/v1/openapi.json`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := NewPipeline(ctx, cfg, GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.LoadIndex(ctx); err != nil {
		if !errors.Is(err, domain.ErrIndexNotLoaded) {
			return err
		}
		logger.Warn().Err(err).Msg("starting without an index, send SIGHUP after indexing")
	}

	handler := api.NewHandler(p.Service, p.Handle, api.HandlerConfig{
		MaxBatch:        cfg.Server.MaxBatch,
		MaxTopK:         usecase.MaxTopK,
		EmbeddingModel:  p.Embedder.ModelVersion(),
		GenerationModel: p.Generator.ModelName(),
	}, logger)

	addr := cfg.Addr()
	if serveAddr != "" {
		addr = serveAddr
	}

	server := api.NewServer(api.ServerConfig{
		Addr:         addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handler, logger)

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)
	go watchReload(ctx, reload, p)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// watchReload swaps in the persisted index on every signal. A failed reload
// keeps the current index.
func watchReload(ctx context.Context, signals <-chan os.Signal, p *Pipeline) {
	logger := GetLogger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			before := p.Handle.Generation()
			if _, err := p.LoadIndex(ctx); err != nil {
				logger.Error().Err(err).Msg("index reload failed, keeping current index")
				continue
			}
			p.Cache.Invalidate(ctx)
			logger.Info().
				Uint64("from_generation", before).
				Uint64("to_generation", p.Handle.Generation()).
				Msg("index reloaded")
		}
	}
}
