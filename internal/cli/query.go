package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the chunks retrieved for a question",
	Long: `Retrieve the most similar chunks for a question without generating an
answer. Chunks below the configured score floor are dropped.

Examples:
  deptqa query -q "admission deadline"
  deptqa query -q "faculty members" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := NewPipeline(ctx, GetConfig(), GetRootDir(), GetLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.LoadIndex(ctx); err != nil {
		return err
	}

	if queryTopK > usecase.MaxTopK {
		return fmt.Errorf("top-k must be at most %d", usecase.MaxTopK)
	}

	q := domain.NewQuery(queryText)
	if q.IsEmpty() {
		return fmt.Errorf("query cannot be empty")
	}

	results, err := p.Retrieve.Retrieve(ctx, q, queryTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results above the score floor.")
		return nil
	}

	header := color.New(color.FgCyan, color.Bold)
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		header.Printf("--- [%d] chunk %d (score: %.3f) ---\n", i+1, r.Chunk.ID, r.Score)
		if topics := r.Chunk.Metadata.Topics(); len(topics) > 0 {
			color.New(color.Faint).Printf("topics: %v\n", topics)
		}
		// Truncate long text for display
		text := r.Chunk.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}

	return nil
}
