package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

//go:embed templates/answer_prompt.txt
var answerPromptText string

var answerPrompt = template.Must(template.New("answer").Parse(answerPromptText))

var (
	// [chunk 3], [Chunk 3, 5], [3], [chunks 1, chunk 2] and (chunk 3)
	citationMarker = regexp.MustCompile(
		`(?i)\[\s*(?:chunks?\s*)?(\d+(?:\s*,\s*(?:chunks?\s*)?\d+)*)\s*\]|\(\s*chunks?\s*(\d+(?:\s*,\s*(?:chunks?\s*)?\d+)*)\s*\)`)
	markerNumber = regexp.MustCompile(`\d+`)

	multiSpace      = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforePunc = regexp.MustCompile(`[ \t]+([.,;:!?])`)
)

type SynthesisOptions struct {
	MaxContextWords int
	MaxTokens       int
	Temperature     float64
}

// SynthesizeUseCase turns retrieved chunks into a cited answer.
type SynthesizeUseCase struct {
	generator port.Generator
	packer    port.Packer
	opts      SynthesisOptions
	logger    *zerolog.Logger
}

func NewSynthesizeUseCase(generator port.Generator, packer port.Packer, opts SynthesisOptions, logger *zerolog.Logger) *SynthesizeUseCase {
	if opts.MaxContextWords <= 0 {
		opts.MaxContextWords = defaultContextWords
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SynthesizeUseCase{
		generator: generator,
		packer:    packer,
		opts:      opts,
		logger:    logger,
	}
}

// Synthesize answers q from result. An empty result gives the fixed
// insufficient-information answer without calling the generator. Citations
// only ever name chunks that were in the prompt.
func (u *SynthesizeUseCase) Synthesize(ctx context.Context, q domain.Query, result domain.RetrievalResult) (domain.Answer, error) {
	if len(result) == 0 {
		return insufficientAnswer(), nil
	}

	packed := u.packer.Pack(result, u.opts.MaxContextWords)
	if len(packed.ChunkIDs) == 0 {
		return insufficientAnswer(), nil
	}

	prompt, err := RenderPrompt(q, packed)
	if err != nil {
		return domain.Answer{}, err
	}

	u.logger.Debug().
		Ints("chunks", packed.ChunkIDs).
		Int("context_words", packed.Words).
		Bool("truncated", packed.Truncated).
		Msg("generating answer")

	raw, err := u.generator.Generate(ctx, port.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   u.opts.MaxTokens,
		Temperature: u.opts.Temperature,
	})
	if err != nil {
		return domain.Answer{}, err
	}

	return u.postProcess(raw, packed.ChunkIDs), nil
}

// RenderPrompt fills the answer prompt with the packed context.
func RenderPrompt(q domain.Query, packed domain.PackedContext) (string, error) {
	var buf bytes.Buffer
	err := answerPrompt.Execute(&buf, struct {
		Context  string
		Question string
		NoAnswer string
	}{
		Context:  packed.Text,
		Question: strings.Join(strings.Fields(q.RawText), " "),
		NoAnswer: domain.MessageNoAnswer,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

func (u *SynthesizeUseCase) postProcess(raw string, contextIDs []int) domain.Answer {
	text, cited := rewriteCitations(raw, contextIDs)

	if text == "" {
		return insufficientAnswer()
	}

	if bare, _ := rewriteCitations(text, nil); isNoAnswer(bare) {
		return domain.Answer{Text: bare, Citations: []int{}, Grounded: false}
	}

	return domain.Answer{Text: text, Citations: cited, Grounded: true}
}

// isNoAnswer reports whether text is the prompt's refusal sentence and
// nothing else. Quotes, case and the final period are ignored.
func isNoAnswer(text string) bool {
	norm := func(s string) string {
		s = strings.Trim(strings.TrimSpace(s), `"'`)
		return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "."))
	}
	return norm(text) == norm(domain.MessageNoAnswer)
}

// rewriteCitations puts every marker naming an allowed id in canonical
// "[chunk N]" form and removes the rest. It returns the allowed ids in order
// of first appearance.
func rewriteCitations(text string, allowedIDs []int) (string, []int) {
	allowed := make(map[int]struct{}, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = struct{}{}
	}

	cited := []int{}
	seen := make(map[int]struct{})

	out := citationMarker.ReplaceAllStringFunc(text, func(marker string) string {
		var kept []string
		for _, n := range markerNumber.FindAllString(marker, -1) {
			id, err := strconv.Atoi(n)
			if err != nil {
				continue
			}
			if _, ok := allowed[id]; !ok {
				continue
			}
			kept = append(kept, chunkMarker(id))
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				cited = append(cited, id)
			}
		}
		return strings.Join(kept, " ")
	})

	out = multiSpace.ReplaceAllString(out, " ")
	out = spaceBeforePunc.ReplaceAllString(out, "$1")
	return strings.TrimSpace(out), cited
}

func insufficientAnswer() domain.Answer {
	return domain.Answer{
		Text:      domain.MessageInsufficient,
		Citations: []int{},
		Grounded:  false,
	}
}
