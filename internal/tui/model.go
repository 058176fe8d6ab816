package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// Answerer is the TUI-facing subset of the answer service.
type Answerer interface {
	Answer(ctx context.Context, raw string, k int) (domain.Response, error)
}

type answerMsg struct {
	response domain.Response
}

// exchange is one question and its answer. Questions are answered
// independently; earlier exchanges are only shown, never sent back.
type exchange struct {
	question string
	response domain.Response
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx      context.Context
	service  Answerer
	title    string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []exchange
	pending  string
	waiting  bool
	ready    bool
}

func New(ctx context.Context, service Answerer, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about programs, admissions, faculty... (Enter to send, Ctrl+C to quit)"
	ti.Focus()
	ti.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return Model{
		ctx:      ctx,
		service:  service,
		title:    title,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := historyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 + bh
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case answerMsg:
		m.waiting = false
		m.history = append(m.history, exchange{question: m.pending, response: msg.response})
		m.pending = ""
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.pending = q
			m.waiting = true
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		// Errors are already turned into a user-facing answer.
		resp, _ := m.service.Answer(m.ctx, question, 0)
		return answerMsg{response: resp}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(m.title)
	status := statusStyle.Render("Ready")
	if m.waiting {
		status = m.spinner.View() + " Searching the department document..."
	}
	return header + "\n" +
		historyBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		status
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 && m.pending == "" {
		return hintStyle.Render("Ask a question about the department.")
	}

	var b strings.Builder
	for _, ex := range m.history {
		b.WriteString(questionStyle.Render("You: " + ex.question))
		b.WriteString("\n")
		b.WriteString(renderResponse(ex.response))
		b.WriteString("\n\n")
	}
	if m.pending != "" {
		b.WriteString(questionStyle.Render("You: " + m.pending))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderResponse(r domain.Response) string {
	var style lipgloss.Style
	switch r.Outcome {
	case domain.OutcomeAnswered:
		style = answerStyle
	case domain.OutcomeScopeRejected:
		style = rejectedStyle
	case domain.OutcomeUnavailable:
		style = errorStyle
	default:
		style = insufficientStyle
	}

	out := style.Render(r.Answer)
	if len(r.Citations) > 0 {
		ids := make([]string, len(r.Citations))
		for i, id := range r.Citations {
			ids[i] = fmt.Sprintf("%d", id)
		}
		out += "\n" + hintStyle.Render("cited chunks: "+strings.Join(ids, ", "))
	}
	return out
}

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	historyBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle     = lipgloss.NewStyle().Bold(true)
	answerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	insufficientStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	rejectedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
