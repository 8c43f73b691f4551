package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gvqlc/qlc/internal/model"
)

func testRecord(filePath, text string) model.QuestionRecord {
	return model.QuestionRecord{
		FilePath: filePath,
		Range: model.Range{
			Start: model.Position{Line: 1, Character: 0},
			End:   model.Position{Line: 4, Character: 10},
		},
		Text:            text,
		HighlightedCode: "def handle(self):\n    pass",
	}
}

func TestOpenQuestionsMissingFile(t *testing.T) {
	ws := t.TempDir()
	q, err := OpenQuestions(ws)
	if err != nil {
		t.Fatalf("OpenQuestions: %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty store, got %d records", q.Len())
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		recs []model.QuestionRecord
	}{
		{"zero records", nil},
		{"one record", []model.QuestionRecord{testRecord("a/x.py", "why?")}},
		{"several records", []model.QuestionRecord{
			testRecord("a/x.py", "first"),
			testRecord("b/y.py", "second"),
			{FilePath: "c/z.py", Text: "third", Answer: "because", ExcludeFromQuiz: true},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := t.TempDir()
			q, err := OpenQuestions(ws)
			if err != nil {
				t.Fatalf("OpenQuestions: %v", err)
			}
			for _, r := range tt.recs {
				q.Append(r)
			}
			if err := q.Persist(); err != nil {
				t.Fatalf("Persist: %v", err)
			}

			reloaded, err := OpenQuestions(ws)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			got := reloaded.Records()
			if len(got) != len(tt.recs) {
				t.Fatalf("expected %d records, got %d", len(tt.recs), len(got))
			}
			for i := range tt.recs {
				if got[i] != tt.recs[i] {
					t.Errorf("record %d mismatch:\n got %+v\nwant %+v", i, got[i], tt.recs[i])
				}
			}
		})
	}
}

func TestPersistWritesEnvelope(t *testing.T) {
	ws := t.TempDir()
	q, _ := OpenQuestions(ws)
	q.Append(testRecord("a/x.py", "q"))
	if err := q.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws, QuestionsFileName))
	if err != nil {
		t.Fatalf("read store file: %v", err)
	}
	var env struct {
		Data      []model.QuestionRecord `json:"data"`
		Timestamp string                 `json:"timestamp"`
		UniqID    int64                  `json:"uniqID"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if len(env.Data) != 1 {
		t.Errorf("envelope data has %d records, want 1", len(env.Data))
	}
	if env.Timestamp == "" {
		t.Error("envelope timestamp is empty")
	}

	// A second persist regenerates timestamp and uniqID.
	first := env.UniqID
	if err := q.Persist(); err != nil {
		t.Fatalf("second Persist: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(ws, QuestionsFileName))
	_ = json.Unmarshal(data, &env)
	if env.UniqID == first {
		t.Error("uniqID should change on every persist")
	}
}

func TestOpenQuestionsLegacyBareArray(t *testing.T) {
	ws := t.TempDir()
	legacy := `[{"filePath":"antonio/a.py","range":{"start":{"line":0,"character":0},"end":{"line":1,"character":0}},"text":"q1","highlightedCode":"x = 1","excludeFromQuiz":false}]`
	if err := os.WriteFile(filepath.Join(ws, QuestionsFileName), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	q, err := OpenQuestions(ws)
	if err != nil {
		t.Fatalf("OpenQuestions: %v", err)
	}
	if q.Len() != 1 || q.Records()[0].FilePath != "antonio/a.py" {
		t.Errorf("legacy array not loaded: %+v", q.Records())
	}
}

func TestOpenQuestionsMalformedFile(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, QuestionsFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenQuestions(ws); err == nil {
		t.Fatal("expected parse error for malformed store file")
	}
}

func TestMutations(t *testing.T) {
	ws := t.TempDir()
	q, _ := OpenQuestions(ws)
	q.Append(testRecord("a/x.py", "first"))
	q.Append(testRecord("b/y.py", "second"))
	q.Append(testRecord("c/z.py", "third"))

	if err := q.Update(1, "revised", "new code", "an answer"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if q.Records()[1].Text != "revised" || q.Records()[1].Answer != "an answer" {
		t.Errorf("update not applied: %+v", q.Records()[1])
	}

	if err := q.ToggleExclude(0, true); err != nil {
		t.Fatalf("ToggleExclude: %v", err)
	}
	if !q.Records()[0].ExcludeFromQuiz {
		t.Error("exclusion flag not set")
	}

	if err := q.Delete(2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 records after delete, got %d", q.Len())
	}

	if err := q.Update(99, "x", "y", ""); err == nil {
		t.Error("expected out-of-range error")
	}
	if err := q.Delete(-1); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestExcludedRecordSurvivesReload(t *testing.T) {
	ws := t.TempDir()
	q, _ := OpenQuestions(ws)
	q.Append(testRecord("a/x.py", "kept"))
	if err := q.ToggleExclude(0, true); err != nil {
		t.Fatal(err)
	}
	if err := q.Persist(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := OpenQuestions(ws)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 1 || !reloaded.Records()[0].ExcludeFromQuiz {
		t.Error("excluded record must remain in storage with its flag intact")
	}
}

func TestEnsureGitignore(t *testing.T) {
	ws := t.TempDir()
	if _, err := OpenQuestions(ws); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(ws, ".gitignore"))
	if err != nil {
		t.Fatalf("gitignore not created: %v", err)
	}
	if !strings.Contains(string(data), QuestionsFileName) {
		t.Errorf(".gitignore missing store file entry: %q", string(data))
	}

	// Existing entries are preserved and the store entry is not duplicated.
	if err := os.WriteFile(filepath.Join(ws, ".gitignore"), []byte("*.pyc\n"+QuestionsFileName+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenQuestions(ws); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(filepath.Join(ws, ".gitignore"))
	if strings.Count(string(data), QuestionsFileName) != 1 {
		t.Errorf("store entry duplicated in .gitignore: %q", string(data))
	}
	if !strings.Contains(string(data), "*.pyc") {
		t.Error("existing gitignore entries lost")
	}
}

func TestAppendAnswer(t *testing.T) {
	ws := t.TempDir()
	entry := model.AnswerEntry{
		QuestionID:   0,
		QuestionText: "why?",
		Answer:       "because",
		StudentName:  "antonio",
		FilePath:     "antonio/a.py",
		Timestamp:    "2025-03-22T10:30:00Z",
	}
	if err := AppendAnswer(ws, entry); err != nil {
		t.Fatalf("AppendAnswer: %v", err)
	}
	if err := AppendAnswer(ws, entry); err != nil {
		t.Fatalf("second AppendAnswer: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws, AnswersFileName))
	if err != nil {
		t.Fatal(err)
	}
	var env struct {
		Data []model.AnswerEntry `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}
	if len(env.Data) != 2 {
		t.Fatalf("expected 2 answer entries, got %d", len(env.Data))
	}
	if !reflect.DeepEqual(env.Data[0], entry) {
		t.Errorf("entry mismatch: %+v", env.Data[0])
	}
}
