package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/api"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the question answering tools over MCP (stdio)",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing the
ask_department and index_stats tools. Logs go to stderr.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger := GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := NewPipeline(ctx, GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.LoadIndex(ctx); err != nil {
		return err
	}

	server := mcpserver.New(p.Service, p.Handle, api.Version)
	return mcpserver.Run(ctx, server, logger)
}
