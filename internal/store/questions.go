// Package store persists qlc's workspace data: the question store, the
// workspace config, presentation settings, the answers side file, and a
// sqlite audit log of LLM drafts. All JSON files live at the workspace root.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gvqlc/qlc/internal/model"
)

const (
	// QuestionsFileName is the question store file at the workspace root.
	QuestionsFileName = "qlc.quizQuestions.json"
	// AnswersFileName is the side file recording model answers.
	AnswersFileName = "quiz_questions_answers.json"
)

// ErrNoQuestions distinguishes "nothing to do" from real failures at the
// command boundary.
var ErrNoQuestions = errors.New("no personalized questions available")

// envelope wraps every persisted data file. Timestamp and UniqID are
// regenerated on each persist so external watchers (and the tests) can
// detect stale reads.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	UniqID    int64           `json:"uniqID"`
}

// Questions is the ordered in-memory question store for one workspace.
// Mutations are in-memory only; callers follow every mutation with an
// explicit Persist so a write failure is surfaced, never silently retried.
type Questions struct {
	path    string
	records []model.QuestionRecord
}

// OpenQuestions loads the question store for a workspace. A missing file
// yields an empty store, not an error. Loading also ensures the store file
// name is present in the workspace .gitignore.
func OpenQuestions(workspace string) (*Questions, error) {
	q := &Questions{path: filepath.Join(workspace, QuestionsFileName)}

	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := ensureGitignore(workspace); err != nil {
				return nil, err
			}
			return q, nil
		}
		return nil, fmt.Errorf("read %s: %w", QuestionsFileName, err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", QuestionsFileName, err)
	}
	q.records = records

	if err := ensureGitignore(workspace); err != nil {
		return nil, err
	}
	return q, nil
}

// decodeRecords accepts both the {data, timestamp, uniqID} envelope and the
// legacy bare-array form older data files use.
func decodeRecords(data []byte) ([]model.QuestionRecord, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Data != nil {
		var records []model.QuestionRecord
		if err := json.Unmarshal(env.Data, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var records []model.QuestionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Records returns the ordered records. The slice is shared; callers that
// reorder must copy first (the aggregator already does).
func (q *Questions) Records() []model.QuestionRecord {
	return q.records
}

// Len returns the number of records.
func (q *Questions) Len() int {
	return len(q.records)
}

// Append adds a record at the end of the store order.
func (q *Questions) Append(rec model.QuestionRecord) {
	q.records = append(q.records, rec)
}

// Update replaces the text, code, and answer of the record at index.
// Empty answer means "leave unset"; text and code always overwrite.
func (q *Questions) Update(index int, text, highlightedCode, answer string) error {
	if index < 0 || index >= len(q.records) {
		return fmt.Errorf("question index %d out of range", index)
	}
	q.records[index].Text = text
	q.records[index].HighlightedCode = highlightedCode
	if answer != "" {
		q.records[index].Answer = answer
	}
	return nil
}

// ToggleExclude sets the exclusion flag of the record at index. Excluded
// records stay in the store and reappear in every load; only generated
// artifacts omit them.
func (q *Questions) ToggleExclude(index int, exclude bool) error {
	if index < 0 || index >= len(q.records) {
		return fmt.Errorf("question index %d out of range", index)
	}
	q.records[index].ExcludeFromQuiz = exclude
	return nil
}

// Delete removes the record at index, preserving the order of the rest.
func (q *Questions) Delete(index int) error {
	if index < 0 || index >= len(q.records) {
		return fmt.Errorf("question index %d out of range", index)
	}
	q.records = append(q.records[:index], q.records[index+1:]...)
	return nil
}

// Persist rewrites the whole store file inside a fresh envelope. Whole-file
// rewrite is fine at classroom scale (a few hundred records at most).
func (q *Questions) Persist() error {
	records := q.records
	if records == nil {
		records = []model.QuestionRecord{}
	}
	return writeEnvelope(q.path, records)
}

func writeEnvelope(path string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	env := envelope{
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UniqID:    rand.Int64(),
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// AppendAnswer records a model answer in the answers side file.
func AppendAnswer(workspace string, entry model.AnswerEntry) error {
	path := filepath.Join(workspace, AnswersFileName)

	var entries []model.AnswerEntry
	data, err := os.ReadFile(path)
	if err == nil {
		var env envelope
		if jerr := json.Unmarshal(data, &env); jerr == nil && env.Data != nil {
			data = env.Data
		}
		if jerr := json.Unmarshal(data, &entries); jerr != nil {
			return fmt.Errorf("parse %s: %w", AnswersFileName, jerr)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", AnswersFileName, err)
	}

	entries = append(entries, entry)
	return writeEnvelope(path, entries)
}

// ensureGitignore adds the question store file to the workspace .gitignore
// so instructor quiz data never lands in a student-visible repository.
func ensureGitignore(workspace string) error {
	path := filepath.Join(workspace, ".gitignore")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.WriteFile(path, []byte(QuestionsFileName+"\n"), 0o644)
		}
		return fmt.Errorf("read .gitignore: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == QuestionsFileName {
			return nil
		}
	}

	content := string(data)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += QuestionsFileName + "\n"
	return os.WriteFile(path, []byte(content), 0o644)
}
