package mcpserver

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// Answerer answers one department question.
type Answerer interface {
	Answer(ctx context.Context, raw string, k int) (domain.Response, error)
}

type StatsSource interface {
	Stats() domain.Stats
}

// AskInput is the ask_department tool input schema.
type AskInput struct {
	Question string `json:"question" jsonschema:"question about the department"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (1-20, default from config)"`
}

type StatsInput struct{}

// StatsOutput is the index_stats tool result.
type StatsOutput struct {
	Loaded       bool   `json:"loaded"`
	Chunks       int    `json:"chunks"`
	Dimension    int    `json:"dimension"`
	ModelVersion string `json:"model_version"`
	BuiltAt      string `json:"built_at,omitempty"`
	DocumentID   string `json:"document_id,omitempty"`
}

// New creates the MCP server exposing the question answering tools.
func New(service Answerer, stats StatsSource, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "deptqa",
			Version: version,
		}, nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_department",
		Description: "Answer a question about the department using only the indexed department document. Off-topic questions are declined.",
	}, NewAskHandler(service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Describe the loaded document index: chunk count, embedding model and build time.",
	}, NewStatsHandler(stats))

	return server
}

// NewAskHandler returns the ask_department tool handler.
func NewAskHandler(service Answerer) func(context.Context, *mcp.CallToolRequest, AskInput) (*mcp.CallToolResult, domain.Response, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, domain.Response, error) {
		if strings.TrimSpace(input.Question) == "" {
			return nil, domain.Response{}, errors.New("question cannot be empty")
		}
		if input.TopK < 0 || input.TopK > 20 {
			return nil, domain.Response{}, errors.New("top_k must be between 1 and 20")
		}

		// Failures are already mapped to a safe answer; the detail stays in the logs.
		resp, _ := service.Answer(ctx, input.Question, input.TopK)
		return nil, resp, nil
	}
}

// NewStatsHandler returns the index_stats tool handler.
func NewStatsHandler(stats StatsSource) func(context.Context, *mcp.CallToolRequest, StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
		s := stats.Stats()
		out := StatsOutput{
			Loaded:       s.Loaded,
			Chunks:       s.Chunks,
			Dimension:    s.Dimension,
			ModelVersion: s.ModelVersion,
			DocumentID:   s.DocumentID,
		}
		if !s.BuiltAt.IsZero() {
			out.BuiltAt = s.BuiltAt.UTC().Format(time.RFC3339)
		}
		return nil, out, nil
	}
}

// Run serves over stdio until ctx is cancelled or stdin closes.
func Run(ctx context.Context, server *mcp.Server, logger *zerolog.Logger) error {
	err := server.Run(ctx, &mcp.StdioTransport{})
	if err == nil {
		return nil
	}
	// EOF or "server is closing" is expected when the client closes stdin.
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "server is closing") {
		logger.Debug().Err(err).Msg("mcp server stopped")
		return nil
	}
	return err
}
