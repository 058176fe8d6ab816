package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/config"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/cli"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/logging"
)

// Case is one benchmark question and the outcome it should get.
type Case struct {
	Question string         `yaml:"question"`
	Expect   domain.Outcome `yaml:"expect"`
	// Cite optionally lists chunk ids that must all be cited.
	Cite []int `yaml:"cite,omitempty"`
}

type Suite struct {
	Cases []Case `yaml:"cases"`
}

type caseResult struct {
	Case     Case
	Response domain.Response
	Took     time.Duration
}

func main() {
	dir := flag.String("dir", ".", "Root directory holding the config and index")
	casesPath := flag.String("cases", "cmd/benchmark/questions.yaml", "YAML question set")
	verbose := flag.Bool("v", false, "Print every answer")
	flag.Parse()

	_ = godotenv.Load()

	suite, err := loadSuite(*casesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading cases: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err == nil {
		err = cfg.ApplyEnv(os.LookupEnv)
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New("warn", cfg.Logging.Format)
	ctx := context.Background()

	p, err := cli.NewPipeline(ctx, cfg, *dir, &logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error wiring pipeline: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	if _, err := p.LoadIndex(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading index: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("DEPARTMENT QA BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Embedding:  %s\n", p.Embedder.ModelVersion())
	fmt.Printf("Generation: %s\n", p.Generator.ModelName())
	fmt.Printf("Cases:      %d\n\n", len(suite.Cases))

	results := make([]caseResult, 0, len(suite.Cases))
	for _, c := range suite.Cases {
		start := time.Now()
		resp, _ := p.Service.Answer(ctx, c.Question, 0)
		r := caseResult{Case: c, Response: resp, Took: time.Since(start)}
		results = append(results, r)

		mark := "PASS"
		if !r.passed() {
			mark = "FAIL"
		}
		fmt.Printf("[%s] %-60.60s %s (%s)\n", mark, c.Question, resp.Outcome, r.Took.Round(time.Millisecond))
		if *verbose {
			fmt.Printf("       %s\n", resp.Answer)
		}
	}

	printReport(summarize(results))
}

func loadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, c := range suite.Cases {
		switch c.Expect {
		case domain.OutcomeAnswered, domain.OutcomeScopeRejected, domain.OutcomeInsufficientContext:
		default:
			return nil, fmt.Errorf("case %d: unknown expected outcome %q", i+1, c.Expect)
		}
	}
	return &suite, nil
}

func (r caseResult) passed() bool {
	if r.Response.Outcome != r.Case.Expect {
		return false
	}
	cited := make(map[int]bool, len(r.Response.Citations))
	for _, id := range r.Response.Citations {
		cited[id] = true
	}
	for _, id := range r.Case.Cite {
		if !cited[id] {
			return false
		}
	}
	return true
}

type report struct {
	Total            int
	Passed           int
	GuardrailTotal   int
	GuardrailRight   int
	AnsweredTotal    int
	AnsweredGrounded int
	P50, P95         time.Duration
}

func summarize(results []caseResult) report {
	rep := report{Total: len(results)}
	latencies := make([]time.Duration, 0, len(results))

	for _, r := range results {
		latencies = append(latencies, r.Took)
		if r.passed() {
			rep.Passed++
		}

		// Guardrail accuracy: did in/out of scope match expectations
		rep.GuardrailTotal++
		wantRejected := r.Case.Expect == domain.OutcomeScopeRejected
		gotRejected := r.Response.Outcome == domain.OutcomeScopeRejected
		if wantRejected == gotRejected {
			rep.GuardrailRight++
		}

		if r.Response.Outcome == domain.OutcomeAnswered {
			rep.AnsweredTotal++
			if r.Response.Grounded && len(r.Response.Citations) > 0 {
				rep.AnsweredGrounded++
			}
		}
	}

	rep.P50 = percentile(latencies, 0.50)
	rep.P95 = percentile(latencies, 0.95)
	return rep
}

func percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func printReport(rep report) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Passed:             %d/%d (%.0f%%)\n", rep.Passed, rep.Total, 100*ratio(rep.Passed, rep.Total))
	fmt.Printf("Guardrail accuracy: %.0f%%\n", 100*ratio(rep.GuardrailRight, rep.GuardrailTotal))
	fmt.Printf("Grounding rate:     %.0f%% of %d answers\n", 100*ratio(rep.AnsweredGrounded, rep.AnsweredTotal), rep.AnsweredTotal)
	fmt.Printf("Latency:            p50 %s, p95 %s\n", rep.P50.Round(time.Millisecond), rep.P95.Round(time.Millisecond))
}
