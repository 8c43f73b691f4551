package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRequiresAPIKey(t *testing.T) {
	for _, provider := range []string{"openai", "azure", "anthropic", "gemini"} {
		_, err := New(Config{Provider: provider})
		if !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("%s without key: err = %v, want ErrNoAPIKey", provider, err)
		}
	}

	// Ollama runs locally and needs no credential.
	p, err := New(Config{Provider: "ollama"})
	if err != nil {
		t.Fatalf("ollama without key: %v", err)
	}
	if p == nil {
		t.Fatal("nil provider")
	}
}

func TestNewDefaultsToGemini(t *testing.T) {
	p, err := New(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g, ok := p.(*gemini)
	if !ok {
		t.Fatalf("default provider = %T, want gemini", p)
	}
	if g.model != "gemini-2.0-flash" {
		t.Errorf("default gemini model = %q", g.model)
	}
}

func TestResolveFillsDefaults(t *testing.T) {
	got := Resolve(Config{})
	if got.Provider != "gemini" || got.Model != "gemini-2.0-flash" {
		t.Errorf("Resolve(empty) = %+v", got)
	}

	got = Resolve(Config{Provider: "anthropic"})
	if got.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("anthropic default model = %q", got.Model)
	}

	got = Resolve(Config{Provider: "ollama", Model: "custom"})
	if got.Model != "custom" {
		t.Errorf("explicit model overridden: %q", got.Model)
	}
}

func TestNewAzureNeedsBaseURL(t *testing.T) {
	if _, err := New(Config{Provider: "azure", APIKey: "k"}); err == nil {
		t.Error("azure without base URL should fail")
	}
	if _, err := New(Config{Provider: "azure", APIKey: "k", BaseURL: "https://example.azure.com/v1"}); err != nil {
		t.Errorf("azure with base URL: %v", err)
	}
}

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantQuestion string
		wantAnswer   string
		wantErr      bool
	}{
		{
			name:         "plain json",
			raw:          `{"question": "What does this loop do?", "answer": "Prints each x."}`,
			wantQuestion: "What does this loop do?",
			wantAnswer:   "Prints each x.",
		},
		{
			name:         "fenced",
			raw:          "```\n{\"question\": \"Why a set?\", \"answer\": \"\"}\n```",
			wantQuestion: "Why a set?",
		},
		{
			name:         "fenced with language tag",
			raw:          "```json\n{\"question\": \"Name the base case.\"}\n```",
			wantQuestion: "Name the base case.",
		},
		{
			name:         "surrounding whitespace",
			raw:          "  \n{\"question\": \"Q\", \"answer\": \"A\"}\n  ",
			wantQuestion: "Q",
			wantAnswer:   "A",
		},
		{
			name:    "missing question",
			raw:     `{"answer": "only an answer"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     "Sure! Here is a question for you.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDraft(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", d)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDraft: %v", err)
			}
			if d.Question != tt.wantQuestion {
				t.Errorf("question = %q, want %q", d.Question, tt.wantQuestion)
			}
			if d.Answer != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", d.Answer, tt.wantAnswer)
			}
		})
	}
}

func TestParseDraftErrorIncludesRaw(t *testing.T) {
	_, err := ParseDraft("garbage")
	if err == nil || !strings.Contains(err.Error(), "garbage") {
		t.Errorf("error should carry the raw response for debugging: %v", err)
	}
}
