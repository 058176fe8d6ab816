package analyzer

import (
	"reflect"
	"testing"
)

func TestTokenizer_Tokenize_WithStemming(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("running dogs are playing")
	want := []string{"run", "dog", "play"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_Tokenize_WithoutStemming(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("running dogs are playing")
	if len(tokens) != 3 {
		t.Errorf("expected 3 tokens, got %d: %v", len(tokens), tokens)
	}

	hasRunning := false
	for _, token := range tokens {
		if token == "running" {
			hasRunning = true
		}
	}
	if !hasRunning {
		t.Errorf("expected 'running' to remain unstemmed, got %v", tokens)
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("What is the admission deadline")
	want := []string{"admission", "deadline"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("a I go to")
	for _, token := range tokens {
		if len(token) < 2 {
			t.Errorf("short word should be removed: %s", token)
		}
	}
}

func TestTokenizer_Terms(t *testing.T) {
	tok := NewTokenizer(false)

	got := tok.Terms("Eligibility for M.Sc. and Ph.D programs?")
	want := []string{"eligibility", "for", "m.sc", "and", "ph.d", "programs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}

	if got := tok.Terms("   "); len(got) != 0 {
		t.Errorf("expected no terms for blank input, got %v", got)
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("")
	if len(tokens) != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", len(tokens))
	}

	if n := CountWords(""); n != 0 {
		t.Errorf("expected 0 words for empty input, got %d", n)
	}
}

func TestCountWords(t *testing.T) {
	if n := CountWords("  one two\tthree\nfour  "); n != 4 {
		t.Errorf("expected 4 words, got %d", n)
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello-world", 2},
		{"func(x, y)", 3},
		{"CamelCase", 1},
		{"snake_case", 2},
		{"123numbers456", 1},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if len(words) != tt.expected {
			t.Errorf("splitWords(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}

func TestSuffixStemmer(t *testing.T) {
	s := NewSuffixStemmer()
	tests := map[string]string{
		"running":    "run",
		"playing":    "play",
		"programs":   "program",
		"faculties":  "faculty",
		"classes":    "class",
		"admissions": "admission",
		"status":     "status",
		"thesis":     "thesis",
		"offered":    "offer",
		"fee":        "fee",
		"quickly":    "quick",
	}
	for in, want := range tests {
		if got := s.Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}
