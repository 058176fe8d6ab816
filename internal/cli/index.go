package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var indexSource string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the document index",
	Long: `Read the department document, split it into overlapping word chunks,
embed every chunk and persist the index. The previous index keeps serving
until the new one is complete.

Examples:
  deptqa index
  deptqa index --source "data/processed/department.txt"`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexSource, "source", "", "document path or glob (default from config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if indexSource != "" {
		cfg.Document.Path = indexSource
	}

	ctx := cmd.Context()
	p, err := NewPipeline(ctx, cfg, GetRootDir(), GetLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Printf("Indexing %s...\n", cfg.Document.Path)

	// Progress bar is created once the chunk count is known
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		_ = bar.Set(done)

		if done > 0 && done < total {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := p.Indexer.Build(ctx, progressCallback)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Document:   %s\n", result.DocumentID)
	fmt.Printf("  Words:      %d\n", result.Words)
	fmt.Printf("  Chunks:     %d\n", result.Chunks)
	fmt.Printf("  Dimension:  %d\n", result.Dimension)
	fmt.Printf("  Model:      %s\n", p.Embedder.ModelVersion())
	fmt.Printf("  Took:       %s\n", formatDuration(result.Duration))

	if cfg.Index.Backend == "postgres" {
		fmt.Printf("\nIndex stored in postgres (%s)\n", cfg.Index.PostgresURLEnv)
	} else {
		fmt.Printf("\nIndex stored at: %s\n", cfg.IndexDBPath(GetRootDir()))
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
