package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

type stubAnswerer struct {
	questions []string
}

func (s *stubAnswerer) Answer(_ context.Context, raw string, _ int) (domain.Response, error) {
	s.questions = append(s.questions, raw)
	return domain.Response{
		Question:  raw,
		Answer:    "Applications close on June 30.",
		Citations: []int{2},
		Grounded:  true,
		Outcome:   domain.OutcomeAnswered,
	}, nil
}

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func TestModel_AskFlow(t *testing.T) {
	svc := &stubAnswerer{}
	m := sized(New(context.Background(), svc, "Department QA"))
	m = typeText(m, "When is the deadline?")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if !m.waiting || cmd == nil {
		t.Fatal("expected model to wait for an answer")
	}
	if m.input.Value() != "" {
		t.Errorf("expected input to be cleared, got %q", m.input.Value())
	}

	// Run the ask command directly rather than through the batch.
	msg := m.ask("When is the deadline?")()
	updated, _ = m.Update(msg)
	m = updated.(Model)

	if m.waiting {
		t.Error("expected waiting to end")
	}
	if len(m.history) != 1 || m.history[0].question != "When is the deadline?" {
		t.Fatalf("unexpected history: %+v", m.history)
	}
	if !strings.Contains(m.renderHistory(), "cited chunks: 2") {
		t.Errorf("expected citations in history: %q", m.renderHistory())
	}
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	m := sized(New(context.Background(), &stubAnswerer{}, "Department QA"))

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if m.waiting || cmd != nil {
		t.Error("empty input should not start a request")
	}
}

func TestModel_Quit(t *testing.T) {
	m := New(context.Background(), &stubAnswerer{}, "Department QA")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_ViewBeforeSize(t *testing.T) {
	m := New(context.Background(), &stubAnswerer{}, "Department QA")
	if m.View() != "Loading..." {
		t.Errorf("unexpected view: %q", m.View())
	}
}
