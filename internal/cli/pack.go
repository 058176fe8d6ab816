package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/usecase"
)

var (
	packQuery  string
	packBudget int
	packOutput string
	packTopK   int
	packPrompt bool
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Show the context the generator would receive",
	Long: `Retrieve chunks for a question and pack them into the word budget used
for answer generation. With --prompt the full generator prompt is printed
instead, which is useful for trying a model by hand.

Examples:
  deptqa pack -q "What is the fee structure?"
  deptqa pack -q "Who is the chairman?" -b 300 -o context.json
  deptqa pack -q "Who is the chairman?" --prompt`,
	RunE: runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringVarP(&packQuery, "query", "q", "", "question (required)")
	packCmd.Flags().IntVarP(&packBudget, "budget", "b", 0, "context word budget (default from config)")
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "output file (default: stdout)")
	packCmd.Flags().IntVarP(&packTopK, "top-k", "k", 0, "number of chunks (default from config)")
	packCmd.Flags().BoolVar(&packPrompt, "prompt", false, "print the rendered generator prompt")
	_ = packCmd.MarkFlagRequired("query")
}

func runPack(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	p, err := NewPipeline(ctx, cfg, GetRootDir(), GetLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.LoadIndex(ctx); err != nil {
		return err
	}

	budget := cfg.Synthesis.MaxContextWords
	if packBudget > 0 {
		budget = packBudget
	}

	q := domain.NewQuery(packQuery)
	chunks, err := p.Retrieve.Retrieve(ctx, q, packTopK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if len(chunks) == 0 {
		fmt.Fprintln(os.Stderr, "No relevant content found.")
		return nil
	}

	packed := p.Packer.Pack(chunks, budget)

	var output []byte
	if packPrompt {
		prompt, err := usecase.RenderPrompt(q, packed)
		if err != nil {
			return err
		}
		output = []byte(prompt)
	} else {
		output, err = json.MarshalIndent(packed, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
	}

	if packOutput != "" {
		if err := os.WriteFile(packOutput, output, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Context packed to: %s\n", packOutput)
		fmt.Printf("  Chunks: %v\n", packed.ChunkIDs)
		fmt.Printf("  Words:  %d / %d\n", packed.Words, budget)
		if packed.Truncated {
			fmt.Println("  (truncated to fit the budget)")
		}
	} else {
		fmt.Println(string(output))
	}

	return nil
}
