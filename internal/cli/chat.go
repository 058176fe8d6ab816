package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal chat",
	Long: `Open a terminal chat for asking department questions. Each question is
answered on its own; earlier questions are not used as context.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := NewPipeline(ctx, GetConfig(), GetRootDir(), GetLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.LoadIndex(ctx); err != nil {
		return err
	}

	stats := p.Handle.Stats()
	title := fmt.Sprintf("Department QA  %s  %d chunks", stats.DocumentID, stats.Chunks)

	m := tui.New(ctx, p.Service, title)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	return nil
}
