package analyzer

import "strings"

// SuffixStemmer strips common English inflections (plurals, -ing, -ed, -ly).
// It is deliberately light: department vocabulary such as "admission" and
// "engineering" must keep a readable stem, and questions and chunks only need
// to agree on the same stem, not on a linguistic root.
type SuffixStemmer struct{}

func NewSuffixStemmer() *SuffixStemmer {
	return &SuffixStemmer{}
}

// Stem returns the stem of a lower-case word.
func (s *SuffixStemmer) Stem(word string) string {
	if len(word) <= 3 {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}

	for _, suffix := range []string{"ing", "ed"} {
		stem, ok := strings.CutSuffix(word, suffix)
		if !ok || len(stem) < 3 || !hasVowel(stem) {
			continue
		}
		return undouble(stem)
	}

	if stem, ok := strings.CutSuffix(word, "ly"); ok && len(stem) >= 4 {
		return stem
	}

	return word
}

func hasVowel(s string) bool {
	return strings.ContainsAny(s, "aeiouy")
}

// undouble turns "runn" into "run" but leaves "fall", "pass" and "buzz" alone.
func undouble(stem string) string {
	n := len(stem)
	if n < 2 || stem[n-1] != stem[n-2] {
		return stem
	}
	switch stem[n-1] {
	case 'l', 's', 'z', 'a', 'e', 'i', 'o', 'u':
		return stem
	}
	return stem[:n-1]
}
