package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index metadata",
	Long: `Load the persisted index and report its size, embedding model and
build time, and whether it is compatible with the current configuration.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

type statsOutput struct {
	Loaded          bool      `json:"loaded"`
	Chunks          int       `json:"chunks"`
	Dimension       int       `json:"dimension"`
	ModelVersion    string    `json:"model_version"`
	BuiltAt         time.Time `json:"built_at"`
	DocumentID      string    `json:"document_id"`
	Stale           bool      `json:"stale"`
	StaleReason     string    `json:"stale_reason,omitempty"`
	GenerationModel string    `json:"generation_model"`
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := NewPipeline(ctx, GetConfig(), GetRootDir(), GetLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	compat, err := p.LoadIndex(ctx)
	if err != nil {
		color.New(color.FgRed).Printf("Index not usable: %v\n", err)
		return err
	}

	s := p.Handle.Stats()
	out := statsOutput{
		Loaded:          s.Loaded,
		Chunks:          s.Chunks,
		Dimension:       s.Dimension,
		ModelVersion:    s.ModelVersion,
		BuiltAt:         s.BuiltAt,
		DocumentID:      s.DocumentID,
		Stale:           compat.Stale,
		StaleReason:     compat.Reason,
		GenerationModel: p.Generator.ModelName(),
	}

	if statsJSON {
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Document:    %s\n", out.DocumentID)
	fmt.Printf("Chunks:      %d\n", out.Chunks)
	fmt.Printf("Embedding:   %s (%d dims)\n", out.ModelVersion, out.Dimension)
	fmt.Printf("Generation:  %s\n", out.GenerationModel)
	fmt.Printf("Built:       %s (%s ago)\n", out.BuiltAt.Local().Format(time.RFC1123), formatDuration(time.Since(out.BuiltAt)))
	if out.Stale {
		color.New(color.FgYellow).Printf("Stale:       %s, run `deptqa index` to rebuild\n", out.StaleReason)
	} else {
		color.New(color.FgGreen).Println("Status:      up to date")
	}
	return nil
}
