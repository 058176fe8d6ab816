package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

type fakeInvoker struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockGenerator_Generate(t *testing.T) {
	fake := &fakeInvoker{body: []byte(`{"content":[{"type":"text","text":"The dean is Dr. Ali [chunk 2]."}],"stop_reason":"end_turn"}`)}
	g := &BedrockGenerator{client: fake, modelID: "anthropic.claude-3-haiku-20240307-v1:0"}

	out, err := g.Generate(context.Background(), port.GenerateRequest{Prompt: "who is the dean", MaxTokens: 256, Temperature: 0.3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "The dean is Dr. Ali [chunk 2]." {
		t.Errorf("unexpected output %q", out)
	}

	var sent claudeMessageRequest
	if err := json.Unmarshal(fake.input.Body, &sent); err != nil {
		t.Fatal(err)
	}
	if sent.AnthropicVersion != anthropicVersion || sent.MaxTokens != 256 || len(sent.Messages) != 1 {
		t.Errorf("unexpected request %+v", sent)
	}
	if *fake.input.ModelId != "anthropic.claude-3-haiku-20240307-v1:0" {
		t.Errorf("unexpected model id %s", *fake.input.ModelId)
	}
}

func TestBedrockGenerator_InvokeError(t *testing.T) {
	g := &BedrockGenerator{client: &fakeInvoker{err: errors.New("ThrottlingException")}, modelID: "m"}
	if _, err := g.Generate(context.Background(), port.GenerateRequest{Prompt: "x"}); err == nil {
		t.Error("expected error")
	}
}
