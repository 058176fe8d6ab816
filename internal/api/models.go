package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

type ChatRequest struct {
	Question string `json:"question" description:"The question about the department"`
	// Message is accepted for clients of the first version of the API.
	Message string `json:"message,omitempty" description:"Deprecated alias of question"`
	TopK    int    `json:"top_k,omitempty" description:"Number of chunks to retrieve (1-20, default from config)"`
}

func (r *ChatRequest) SetDefaults() {
	if strings.TrimSpace(r.Question) == "" {
		r.Question = r.Message
	}
}

func (r *ChatRequest) Validate(maxTopK int) error {
	if strings.TrimSpace(r.Question) == "" {
		return errors.New("question cannot be empty")
	}
	if r.TopK < 0 || r.TopK > maxTopK {
		return fmt.Errorf("top_k must be between 1 and %d", maxTopK)
	}
	return nil
}

type BatchRequest struct {
	Questions []string `json:"questions"`
	TopK      int      `json:"top_k,omitempty"`
}

func (r *BatchRequest) Validate(maxBatch, maxTopK int) error {
	if len(r.Questions) == 0 {
		return errors.New("questions cannot be empty")
	}
	if len(r.Questions) > maxBatch {
		return fmt.Errorf("at most %d questions per batch", maxBatch)
	}
	if r.TopK < 0 || r.TopK > maxTopK {
		return fmt.Errorf("top_k must be between 1 and %d", maxTopK)
	}
	return nil
}

type BatchResponse struct {
	Responses []domain.Response `json:"responses"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	IndexLoaded bool   `json:"index_loaded"`
	Chunks      int    `json:"chunks"`
}

type StatsResponse struct {
	domain.Stats
	EmbeddingModel  string `json:"embedding_model"`
	GenerationModel string `json:"generation_model"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
