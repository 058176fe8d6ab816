package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

var (
	batchFile   string
	batchOutput string
	batchTopK   int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Answer every question in a file",
	Long: `Answer one question per line of a text file. Blank lines and lines
starting with # are skipped. Responses are written as JSON lines in input
order.

Examples:
  deptqa batch -f questions.txt
  deptqa batch -f questions.txt -o answers.jsonl`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "questions file, one per line (required)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().IntVarP(&batchTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(batchFile)
	if err != nil {
		return fmt.Errorf("failed to open questions file: %w", err)
	}
	defer f.Close()

	questions, err := readQuestions(f)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions in %s", batchFile)
	}

	ctx := cmd.Context()
	p, err := NewPipeline(ctx, GetConfig(), GetRootDir(), GetLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.LoadIndex(ctx); err != nil {
		return err
	}

	responses := p.Service.AnswerBatch(ctx, questions, batchTopK)

	var out io.Writer = os.Stdout
	if batchOutput != "" {
		file, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	if err := writeResponses(out, responses); err != nil {
		return err
	}

	if batchOutput != "" {
		answered := 0
		for _, r := range responses {
			if r.Outcome == domain.OutcomeAnswered {
				answered++
			}
		}
		fmt.Printf("Answered %d/%d questions, written to %s\n", answered, len(responses), batchOutput)
	}
	return nil
}

func readQuestions(r io.Reader) ([]string, error) {
	var questions []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	return questions, nil
}

func writeResponses(w io.Writer, responses []domain.Response) error {
	enc := json.NewEncoder(w)
	for _, r := range responses {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	return nil
}
