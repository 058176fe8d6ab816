package llm

import (
	"bufio"
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/analyzer"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

// NoAnswer is what the extractive generator says when no sentence of the
// context covers the question.
const NoAnswer = domain.MessageNoAnswer

var (
	chunkLine    = regexp.MustCompile(`^\[chunk (\d+)\]\s*(.*)$`)
	questionLine = regexp.MustCompile(`^(?i)question:\s*(.*)$`)
)

var abbreviations = map[string]struct{}{
	"dr.": {}, "mr.": {}, "mrs.": {}, "ms.": {}, "prof.": {}, "st.": {},
	"no.": {}, "etc.": {}, "e.g.": {}, "i.e.": {}, "vs.": {},
}

// ExtractiveGenerator answers without a model: it quotes the context
// sentences sharing the most terms with the question. It reads prompts that
// carry one "[chunk N] text" line per chunk and a "Question:" line.
type ExtractiveGenerator struct {
	tokenizer    *analyzer.Tokenizer
	minCoverage  float64
	maxSentences int
}

func NewExtractiveGenerator() *ExtractiveGenerator {
	return &ExtractiveGenerator{
		tokenizer:    analyzer.NewTokenizer(true),
		minCoverage:  0.5,
		maxSentences: 2,
	}
}

type sentence struct {
	chunkID int
	text    string
	overlap int
}

func (g *ExtractiveGenerator) Generate(ctx context.Context, req port.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	question, chunks := parsePrompt(req.Prompt)
	terms := termSet(g.tokenizer.Tokenize(question))
	if len(terms) == 0 {
		return NoAnswer, nil
	}

	var candidates []sentence
	for _, c := range chunks {
		for _, s := range splitSentences(c.text) {
			overlap := 0
			for t := range termSet(g.tokenizer.Tokenize(s)) {
				if _, ok := terms[t]; ok {
					overlap++
				}
			}
			if float64(overlap)/float64(len(terms)) < g.minCoverage {
				continue
			}
			candidates = append(candidates, sentence{chunkID: c.id, text: s, overlap: overlap})
		}
	}

	if len(candidates) == 0 {
		return NoAnswer, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].overlap > candidates[j].overlap
	})
	if len(candidates) > g.maxSentences {
		candidates = candidates[:g.maxSentences]
	}

	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = c.text + " [chunk " + strconv.Itoa(c.chunkID) + "]"
	}
	return strings.Join(parts, " "), nil
}

func (g *ExtractiveGenerator) ModelName() string {
	return "extractive"
}

type promptChunk struct {
	id   int
	text string
}

func parsePrompt(prompt string) (string, []promptChunk) {
	var question string
	var chunks []promptChunk

	scanner := bufio.NewScanner(strings.NewReader(prompt))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := chunkLine.FindStringSubmatch(line); m != nil {
			id, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			chunks = append(chunks, promptChunk{id: id, text: m[2]})
			continue
		}
		if m := questionLine.FindStringSubmatch(line); m != nil {
			question = m[1]
		}
	}
	return question, chunks
}

// splitSentences breaks text after '.', '!' or '?' unless the word is a
// known abbreviation or a dotted degree name such as "M.Sc.".
func splitSentences(text string) []string {
	var out []string
	var cur []string
	for _, word := range strings.Fields(text) {
		cur = append(cur, word)
		if !strings.ContainsAny(word[len(word)-1:], ".!?") {
			continue
		}
		lower := strings.ToLower(word)
		if _, ok := abbreviations[lower]; ok {
			continue
		}
		if strings.Contains(strings.TrimRight(word, ".!?"), ".") {
			continue
		}
		out = append(out, strings.Join(cur, " "))
		cur = cur[:0]
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

func termSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
