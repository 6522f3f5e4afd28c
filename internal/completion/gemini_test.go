package completion

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/lionelhu/foliochat/internal/config"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.cfg = cfg
	return f.resp, f.err
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: string(genai.RoleModel), Parts: parts}}},
	}
}

func geminiConfig() config.CompletionConfig {
	return config.CompletionConfig{Provider: config.ProviderGemini, Model: "gemini-2.5-flash", Temperature: 0.2}
}

func TestGemini_MapsRolesAndSystem(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse(&genai.Part{Text: "B.S. "}, &genai.Part{Text: "Computer Science."})}
	c := newGeminiClient(fake, geminiConfig())

	text, err := c.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "B.S. Computer Science." {
		t.Errorf("text = %q", text)
	}

	if fake.model != "gemini-2.5-flash" {
		t.Errorf("model = %q", fake.model)
	}
	if len(fake.contents) != 3 {
		t.Fatalf("contents = %d, want 3", len(fake.contents))
	}
	wantRoles := []string{string(genai.RoleUser), string(genai.RoleModel), string(genai.RoleUser)}
	for i, want := range wantRoles {
		if fake.contents[i].Role != want {
			t.Errorf("contents[%d].Role = %q, want %q", i, fake.contents[i].Role, want)
		}
	}
	if fake.cfg.SystemInstruction == nil || fake.cfg.SystemInstruction.Parts[0].Text != "You are a helpful assistant." {
		t.Errorf("system instruction = %+v", fake.cfg.SystemInstruction)
	}
	if fake.cfg.Temperature == nil || *fake.cfg.Temperature != float32(0.2) {
		t.Errorf("temperature = %v", fake.cfg.Temperature)
	}
}

func TestGemini_SkipsThoughtParts(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse(&genai.Part{Text: "thinking...", Thought: true}, &genai.Part{Text: "Answer."})}

	text, err := newGeminiClient(fake, geminiConfig()).Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if text != "Answer." {
		t.Errorf("text = %q", text)
	}
}

func TestGemini_EmptyCandidates(t *testing.T) {
	fake := &fakeGenerator{resp: &genai.GenerateContentResponse{}}

	text, err := newGeminiClient(fake, geminiConfig()).Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestGemini_Error(t *testing.T) {
	fake := &fakeGenerator{err: errors.New("quota exceeded")}

	if _, err := newGeminiClient(fake, geminiConfig()).Complete(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewGeminiClient_RequiresKeyAndModel(t *testing.T) {
	cfg := geminiConfig()
	if _, err := NewGeminiClient(context.Background(), cfg); err == nil {
		t.Error("expected error without API key")
	}

	cfg.APIKey = "k"
	cfg.Model = "gpt-4o-mini"
	if _, err := NewGeminiClient(context.Background(), cfg); err == nil {
		t.Error("expected error for OpenAI model name")
	}
}
