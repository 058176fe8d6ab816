package api

import (
	"context"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

const Version = "1.0.0"

// Answerer is the question answering service behind the API.
type Answerer interface {
	Answer(ctx context.Context, raw string, k int) (domain.Response, error)
	AnswerBatch(ctx context.Context, questions []string, k int) []domain.Response
}

// StatsSource reports the served index.
type StatsSource interface {
	Stats() domain.Stats
}

type HandlerConfig struct {
	MaxBatch        int
	MaxTopK         int
	EmbeddingModel  string
	GenerationModel string
}

type Handler struct {
	service Answerer
	stats   StatsSource
	cfg     HandlerConfig
	logger  *zerolog.Logger
}

func NewHandler(service Answerer, stats StatsSource, cfg HandlerConfig, logger *zerolog.Logger) *Handler {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 32
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 20
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Handler{
		service: service,
		stats:   stats,
		cfg:     cfg,
		logger:  logger,
	}
}

// POST /api/v1/chat
func (h *Handler) Chat(req *restful.Request, resp *restful.Response) {
	var chatRequest ChatRequest
	if err := req.ReadEntity(&chatRequest); err != nil {
		h.logger.Warn().Err(err).Str("request_id", requestID(req)).Msg("failed to parse request body")
		HandleError(resp, err, http.StatusBadRequest)
		return
	}

	chatRequest.SetDefaults()
	if err := chatRequest.Validate(h.cfg.MaxTopK); err != nil {
		HandleError(resp, err, http.StatusBadRequest)
		return
	}

	response, err := h.service.Answer(req.Request.Context(), chatRequest.Question, chatRequest.TopK)
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", requestID(req)).Msg("failed to answer")
	}

	_ = resp.WriteHeaderAndEntity(statusFor(response), response)
}

// POST /api/v1/chat/batch
func (h *Handler) ChatBatch(req *restful.Request, resp *restful.Response) {
	var batchRequest BatchRequest
	if err := req.ReadEntity(&batchRequest); err != nil {
		HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if err := batchRequest.Validate(h.cfg.MaxBatch, h.cfg.MaxTopK); err != nil {
		HandleError(resp, err, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("request_id", requestID(req)).
		Int("questions", len(batchRequest.Questions)).
		Msg("process batch")

	responses := h.service.AnswerBatch(req.Request.Context(), batchRequest.Questions, batchRequest.TopK)
	_ = resp.WriteHeaderAndEntity(http.StatusOK, BatchResponse{Responses: responses})
}

// GET /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	stats := h.stats.Stats()
	health := HealthResponse{
		Status:      "ok",
		Version:     Version,
		IndexLoaded: stats.Loaded,
		Chunks:      stats.Chunks,
	}
	if !stats.Loaded {
		health.Status = "error"
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, health)
}

// GET /api/v1/stats
func (h *Handler) Stats(req *restful.Request, resp *restful.Response) {
	stats := h.stats.Stats()
	if !stats.Loaded {
		HandleError(resp, domain.ErrIndexNotLoaded, http.StatusServiceUnavailable)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, StatsResponse{
		Stats:           stats,
		EmbeddingModel:  h.cfg.EmbeddingModel,
		GenerationModel: h.cfg.GenerationModel,
	})
}

// statusFor maps an outcome to an HTTP status. Rejections and missing
// information are successful answers.
func statusFor(r domain.Response) int {
	if r.Outcome == domain.OutcomeUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
