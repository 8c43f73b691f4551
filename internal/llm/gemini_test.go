package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranslateRoles(t *testing.T) {
	req := translate([]Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "again"},
	})

	if req.SystemInstruction == nil || len(req.SystemInstruction.Parts) != 1 {
		t.Fatalf("system instruction = %+v", req.SystemInstruction)
	}
	if req.SystemInstruction.Parts[0].Text != "be brief" {
		t.Errorf("system text = %q", req.SystemInstruction.Parts[0].Text)
	}
	if len(req.Contents) != 3 {
		t.Fatalf("contents = %+v", req.Contents)
	}
	wantRoles := []string{"user", "model", "user"}
	for i, c := range req.Contents {
		if c.Role != wantRoles[i] {
			t.Errorf("content[%d].role = %q, want %q", i, c.Role, wantRoles[i])
		}
	}
}

func TestTranslateNoSystem(t *testing.T) {
	req := translate([]Message{{Role: RoleUser, Content: "hi"}})
	if req.SystemInstruction != nil {
		t.Errorf("system instruction should be omitted: %+v", req.SystemInstruction)
	}
}

func TestGeminiGenerateCompletion(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": `{"question": "Q?"}`}},
				}},
			},
			"usageMetadata": map[string]int{
				"promptTokenCount":     10,
				"candidatesTokenCount": 5,
				"totalTokenCount":      15,
			},
		})
	}))
	defer srv.Close()

	p, err := New(Config{Provider: "gemini", APIKey: "secret", BaseURL: srv.URL, Model: "gemini-2.0-flash"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.GenerateCompletion(context.Background(), []Message{
		{Role: RoleSystem, Content: "draft a question"},
		{Role: RoleUser, Content: "for x in xs:"},
	})
	if err != nil {
		t.Fatalf("GenerateCompletion: %v", err)
	}
	if resp.Content != `{"question": "Q?"}` {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotBody.SystemInstruction == nil || len(gotBody.Contents) != 1 {
		t.Errorf("request body = %+v", gotBody)
	}
}

func TestGeminiAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid"}}`))
	}))
	defer srv.Close()

	p, err := New(Config{Provider: "gemini", APIKey: "bad", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.GenerateCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected API error")
	}
}
