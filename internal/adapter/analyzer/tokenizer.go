package analyzer

import (
	"regexp"
	"strings"
	"unicode"
)

// termPattern keeps internal dots and apostrophes so "m.sc", "ph.d" and
// "department's" survive as single terms.
var termPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[.'][\p{L}\p{N}]+)*`)

// Tokenizer splits text into tokens with optional stemming and stopword removal.
type Tokenizer struct {
	stemmer   *SuffixStemmer
	stopwords map[string]struct{}
	useStem   bool
}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer(useStemming bool) *Tokenizer {
	var stemmer *SuffixStemmer
	if useStemming {
		stemmer = NewSuffixStemmer()
	}
	return &Tokenizer{
		stemmer:   stemmer,
		stopwords: defaultStopwords(),
		useStem:   useStemming,
	}
}

// Tokenize splits text into content tokens: lower-cased, stopwords and
// single characters dropped, optionally stemmed.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len(word) < 2 {
			continue
		}
		if t.IsStopword(word) {
			continue
		}
		if t.useStem && t.stemmer != nil {
			word = t.stemmer.Stem(word)
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// Terms returns every lower-cased term of text, in order, without filtering.
func (t *Tokenizer) Terms(text string) []string {
	return termPattern.FindAllString(strings.ToLower(text), -1)
}

func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// CountWords returns the number of whitespace separated words, the unit of
// chunk sizes and context budgets.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// splitWords splits text into words using unicode letter/digit boundaries.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// defaultStopwords returns a set of common English stopwords.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
		"there", "about", "any", "me", "my", "i", "tell", "please",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
