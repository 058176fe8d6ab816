package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

var (
	askQuestion string
	askTopK     int
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question about the department",
	Long: `Answer one question from the indexed department document. Questions
outside the department's scope are declined without searching the document.

Examples:
  deptqa ask -q "What is the eligibility for M.Sc. Computer Science?"
  deptqa ask -q "Who is the head of department?" --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	_ = askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := NewPipeline(ctx, GetConfig(), GetRootDir(), GetLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.LoadIndex(ctx); err != nil {
		return err
	}

	// Failures are already reported in the response; details are logged.
	resp, _ := p.Service.Answer(ctx, askQuestion, askTopK)

	if askJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printResponse(resp)
	return nil
}

func printResponse(resp domain.Response) {
	switch resp.Outcome {
	case domain.OutcomeAnswered:
		color.New(color.FgGreen).Println(resp.Answer)
	case domain.OutcomeScopeRejected:
		color.New(color.FgMagenta).Println(resp.Answer)
	case domain.OutcomeUnavailable:
		color.New(color.FgRed).Println(resp.Answer)
	default:
		color.New(color.FgYellow).Println(resp.Answer)
	}

	if len(resp.Sources) == 0 {
		return
	}

	faint := color.New(color.Faint)
	fmt.Println()
	faint.Println("Sources:")
	for _, s := range resp.Sources {
		marker := " "
		for _, id := range resp.Citations {
			if id == s.ChunkID {
				marker = "*"
				break
			}
		}
		faint.Printf(" %s chunk %d (%.3f) %s\n", marker, s.ChunkID, s.Score, strings.ReplaceAll(s.Preview, "\n", " "))
	}
}
