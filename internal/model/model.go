package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Position is a zero-based location in a source file. Line and column
// conventions are inherited from the editor that captured the selection.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a selection span in a source file. Whether End is inclusive or
// exclusive follows the capturing editor's convention and is not re-derived.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// QuestionRecord is one instructor-authored question tied to a code region
// of a student submission. HighlightedCode is a snapshot taken at creation
// time and is not re-synced if the source file changes later.
type QuestionRecord struct {
	FilePath        string `json:"filePath"`
	Range           Range  `json:"range"`
	Text            string `json:"text"`
	HighlightedCode string `json:"highlightedCode"`
	Answer          string `json:"answer,omitempty"`
	ExcludeFromQuiz bool   `json:"excludeFromQuiz"`
}

// Config is the workspace configuration file. JSON keys match the format
// the original extension wrote so existing data files load unchanged.
// Fields tagged `validate:"required"` are the ones the assessment-tree
// generator refuses to run without.
type Config struct {
	SubmissionRoot     string            `json:"submissionRoot"`
	StudentNameMapping map[string]string `json:"studentNameMapping,omitempty"`

	Title             string `json:"title" validate:"required"`
	Topic             string `json:"topic" validate:"required"`
	PLReady           bool   `json:"pl_ready"`
	PLRoot            string `json:"pl_root" validate:"required"`
	PLQuestionRoot    string `json:"pl_question_root" validate:"required"`
	PLAssessmentRoot  string `json:"pl_assessment_root" validate:"required"`
	PLQuizFolder      string `json:"pl_quiz_folder" validate:"required"`
	Set               string `json:"set" validate:"required"`
	Number            string `json:"number" validate:"required"`
	PointsPerQuestion int    `json:"points_per_question" validate:"required"`
	StartDate         string `json:"startDate" validate:"required"`
	EndDate           string `json:"endDate" validate:"required"`
	TimeLimitMin      int    `json:"timeLimitMin" validate:"required"`
	DaysForGrading    int    `json:"daysForGrading" validate:"required"`
	ReviewEndDate     string `json:"reviewEndDate" validate:"required"`
	Password          string `json:"password,omitempty"`
	Language          string `json:"language" validate:"required"`

	SinglePageFlag     bool `json:"singlePageFlag"`
	MarkdownFlag       bool `json:"markdownFlag"`
	PDFFlag            bool `json:"pdfFlag"`
	IncludeAnswersFlag bool `json:"includeAnswersFlag"`
}

// DefaultConfig returns the sample configuration written by `qlc config init`.
func DefaultConfig() Config {
	return Config{
		SubmissionRoot:     ".",
		Title:              "<<Title>>",
		Topic:              "<<Topic>>",
		PLReady:            false,
		PLRoot:             "pl-course-root",
		PLQuestionRoot:     "PersonalQuiz",
		PLAssessmentRoot:   "courseInstances/TemplateCourseInstance/assessments",
		PLQuizFolder:       "qlcQuiz0",
		Set:                "Custom Quiz",
		Number:             "0",
		PointsPerQuestion:  10,
		StartDate:          "2025-03-22T10:30:00",
		EndDate:            "2025-03-22T16:30:40",
		TimeLimitMin:       30,
		DaysForGrading:     7,
		ReviewEndDate:      "2025-04-21T23:59:59",
		Password:           "letMeIn",
		Language:           "python",
		StudentNameMapping: map[string]string{"smithj": "smithj@example.com"},
	}
}

// MissingFieldError reports a config field required for assessment-tree
// generation that is absent or zero.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field in config: %s", e.Field)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidatePL checks every field the assessment-tree generator needs.
// It returns a MissingFieldError naming the first absent field so the
// failure can be reported before any directory is created.
func (c Config) ValidatePL() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return &MissingFieldError{Field: jsonFieldName(verrs[0].StructField())}
	}
	return err
}

// jsonFieldName maps a Go struct field name to the config file's JSON key.
func jsonFieldName(structField string) string {
	names := map[string]string{
		"Title":             "title",
		"Topic":             "topic",
		"PLRoot":            "pl_root",
		"PLQuestionRoot":    "pl_question_root",
		"PLAssessmentRoot":  "pl_assessment_root",
		"PLQuizFolder":      "pl_quiz_folder",
		"Set":               "set",
		"Number":            "number",
		"PointsPerQuestion": "points_per_question",
		"StartDate":         "startDate",
		"EndDate":           "endDate",
		"TimeLimitMin":      "timeLimitMin",
		"DaysForGrading":    "daysForGrading",
		"ReviewEndDate":     "reviewEndDate",
		"Language":          "language",
	}
	if n, ok := names[structField]; ok {
		return n
	}
	return structField
}

// Settings holds presentation preferences persisted separately from Config.
// Both fields default to "normal" when the settings file is absent.
type Settings struct {
	ViewMode     string `json:"viewMode"`
	ContrastMode string `json:"contrastMode"`
}

// DefaultSettings returns the settings written on first read.
func DefaultSettings() Settings {
	return Settings{ViewMode: "normal", ContrastMode: "normal"}
}

// AnswerEntry is one row of the answers side file, recorded whenever a
// question is created with a model answer.
type AnswerEntry struct {
	QuestionID      int    `json:"questionId"`
	QuestionText    string `json:"questionText"`
	Answer          string `json:"answer"`
	StudentName     string `json:"studentName"`
	FilePath        string `json:"filePath"`
	Timestamp       string `json:"timestamp"`
	HighlightedCode string `json:"highlightedCode,omitempty"`
}
