package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidatePL(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidatePL(); err != nil {
		t.Fatalf("default config should pass PL validation, got %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"missing title", func(c *Config) { c.Title = "" }, "title"},
		{"missing pl_root", func(c *Config) { c.PLRoot = "" }, "pl_root"},
		{"missing quiz folder", func(c *Config) { c.PLQuizFolder = "" }, "pl_quiz_folder"},
		{"zero points", func(c *Config) { c.PointsPerQuestion = 0 }, "points_per_question"},
		{"zero time limit", func(c *Config) { c.TimeLimitMin = 0 }, "timeLimitMin"},
		{"zero grading days", func(c *Config) { c.DaysForGrading = 0 }, "daysForGrading"},
		{"missing review end", func(c *Config) { c.ReviewEndDate = "" }, "reviewEndDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.ValidatePL()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var mf *MissingFieldError
			if !errors.As(err, &mf) {
				t.Fatalf("expected MissingFieldError, got %T: %v", err, err)
			}
			if mf.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, mf.Field)
			}
		})
	}
}

func TestValidatePLPasswordOptional(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = ""
	if err := cfg.ValidatePL(); err != nil {
		t.Errorf("password should be optional, got %v", err)
	}
}

func TestQuestionRecordJSONRoundTrip(t *testing.T) {
	rec := QuestionRecord{
		FilePath: "cis371_server/antonio/my_http_server.py",
		Range: Range{
			Start: Position{Line: 4, Character: 0},
			End:   Position{Line: 9, Character: 12},
		},
		Text:            "Why did you choose a dictionary here?",
		HighlightedCode: "handlers = {}",
		Answer:          "O(1) lookup by route.",
		ExcludeFromQuiz: true,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got QuestionRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != rec {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
}

func TestQuestionRecordLegacyFieldNames(t *testing.T) {
	// Data files written by the original extension must load unchanged.
	raw := `{
		"filePath": "caleb2/my_http_server.py",
		"range": {"start": {"line": 1, "character": 2}, "end": {"line": 3, "character": 4}},
		"text": "Explain this loop.",
		"highlightedCode": "for line in f:",
		"excludeFromQuiz": false
	}`
	var rec QuestionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal legacy record: %v", err)
	}
	if rec.FilePath != "caleb2/my_http_server.py" {
		t.Errorf("filePath = %q", rec.FilePath)
	}
	if rec.Range.End.Character != 4 {
		t.Errorf("range.end.character = %d", rec.Range.End.Character)
	}
	if rec.Answer != "" {
		t.Errorf("absent answer should decode as empty, got %q", rec.Answer)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.ViewMode != "normal" || s.ContrastMode != "normal" {
		t.Errorf("defaults should be normal/normal, got %+v", s)
	}
}
