// Package pltree generates a PrairieLearn course tree from the question
// store: per-student question directories, per-student assessments, and a
// combined instructor view.
package pltree

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gvqlc/qlc/internal/aggregate"
	"github.com/gvqlc/qlc/internal/model"
)

// ErrNoQuestions is returned when no records remain after dropping the
// excluded ones. Checked before the config is even looked at, so an empty
// workspace never gains a config file as a side effect.
var ErrNoQuestions = errors.New("no questions available to generate the quiz")

// ErrNotReady is returned while the config still carries the sample
// values (pl_ready is false).
var ErrNotReady = errors.New("config file has not been customized")

// naiveTimestamp is the timezone-less format PrairieLearn interprets in
// course-local time.
const naiveTimestamp = "2006-01-02T15:04:05"

type questionInfo struct {
	UUID          string `json:"uuid"`
	Type          string `json:"type"`
	GradingMethod string `json:"gradingMethod"`
	Title         string `json:"title"`
	Topic         string `json:"topic"`
}

type accessRule struct {
	Mode         string   `json:"mode"`
	UIDs         []string `json:"uids"`
	Credit       int      `json:"credit"`
	TimeLimitMin int      `json:"timeLimitMin,omitempty"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Password     string   `json:"password,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

type zoneQuestion struct {
	ID          string `json:"id"`
	Points      int    `json:"points"`
	Description string `json:"description,omitempty"`
}

type zone struct {
	Title     string         `json:"title,omitempty"`
	Questions []zoneQuestion `json:"questions"`
}

type assessmentInfo struct {
	UUID        string       `json:"uuid"`
	Type        string       `json:"type"`
	Title       string       `json:"title"`
	Set         string       `json:"set"`
	Number      string       `json:"number"`
	AllowAccess []accessRule `json:"allowAccess"`
	Zones       []zone       `json:"zones"`
}

// Generator writes the PrairieLearn tree. Now and NewUUID are fields so
// tests get deterministic manifests.
type Generator struct {
	Workspace string
	Now       func() time.Time
	NewUUID   func() string
}

// New returns a Generator rooted at the given workspace.
func New(workspace string) *Generator {
	return &Generator{
		Workspace: workspace,
		Now:       time.Now,
		NewUUID:   func() string { return uuid.NewString() },
	}
}

// reviewStart computes the opening of the zero-credit review window:
// daysForGrading days after the primary start, rendered without a timezone
// suffix so PrairieLearn applies course-local time.
func reviewStart(startDate string, daysForGrading int) (string, error) {
	t, err := time.Parse(naiveTimestamp, startDate)
	if err != nil {
		return "", fmt.Errorf("parse startDate %q: %w", startDate, err)
	}
	start := t.Add(time.Duration(daysForGrading) * 24 * time.Hour)
	return start.Format(naiveTimestamp) + ".000", nil
}

// questionHTML renders one student question in PrairieLearn markup. The
// code snippet is HTML-escaped; the question text passes through as
// markdown.
func questionHTML(rec model.QuestionRecord, language string) string {
	text := rec.Text
	if text == "" {
		text = "No question text provided"
	}
	var b strings.Builder
	b.WriteString("\n<pl-question-panel>\n<markdown>\n")
	b.WriteString(text)
	b.WriteString("\n</markdown>\n")
	if rec.HighlightedCode != "" {
		b.WriteString(fmt.Sprintf("<pl-code language=%q>\n%s\n</pl-code>\n", language, html.EscapeString(rec.HighlightedCode)))
	}
	b.WriteString("</pl-question-panel>")
	return b.String()
}

// combinedHTML renders every student's questions into the single
// instructor view, grouped under per-student headings.
func combinedHTML(groups []aggregate.Group, cfg model.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<pl-question-panel>\n<markdown>\n# %s - All Student Questions\n<hr><br>\n</markdown>\n</pl-question-panel>", cfg.Title)

	for _, g := range groups {
		fmt.Fprintf(&b, "\n<pl-question-panel>\n<markdown>\n## Student: %s\n</markdown>\n</pl-question-panel>", g.Student)
		for i, ir := range g.Records {
			text := ir.Record.Text
			if text == "" {
				text = "No question text provided"
			}
			fmt.Fprintf(&b, "\n<pl-question-panel>\n<markdown>\n### Question %d\n%s\n</markdown>\n", i+1, text)
			if ir.Record.HighlightedCode != "" {
				fmt.Fprintf(&b, "<pl-code language=%q>\n%s\n</pl-code>\n", cfg.Language, html.EscapeString(ir.Record.HighlightedCode))
			}
			b.WriteString("</pl-question-panel>\n<br><hr><br>\n")
		}
	}
	return b.String()
}

func (g *Generator) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Generate validates the config, groups the records by student, and writes
// the full tree under the config's pl_root (resolved against the workspace
// when relative). Records flagged exclude_from_quiz never reach the tree,
// the student assessments, or the instructor view. Validation failures
// abort before any directory is created; a write failure mid-tree leaves
// the directories already written.
func (g *Generator) Generate(records []model.QuestionRecord, cfg model.Config) error {
	records = aggregate.Filter(records, aggregate.Included)
	if len(records) == 0 {
		return ErrNoQuestions
	}
	if !cfg.PLReady {
		return ErrNotReady
	}
	if err := cfg.ValidatePL(); err != nil {
		return err
	}
	reviewOpen, err := reviewStart(cfg.StartDate, cfg.DaysForGrading)
	if err != nil {
		return err
	}

	plRoot := cfg.PLRoot
	if !filepath.IsAbs(plRoot) {
		plRoot = filepath.Join(g.Workspace, plRoot)
	}
	questionsDir := filepath.Join(plRoot, "questions", cfg.PLQuestionRoot, cfg.PLQuizFolder)
	assessmentDir := filepath.Join(plRoot, cfg.PLAssessmentRoot, cfg.PLQuizFolder)

	result := aggregate.Run(records, cfg.SubmissionRoot, nil)

	for _, group := range result.Groups {
		if err := g.writeStudent(group, cfg, questionsDir, assessmentDir, reviewOpen); err != nil {
			return err
		}
	}
	return g.writeInstructor(result.Groups, cfg, questionsDir, assessmentDir)
}

func (g *Generator) writeStudent(group aggregate.Group, cfg model.Config, questionsDir, assessmentDir, reviewOpen string) error {
	studentDir := filepath.Join(questionsDir, group.Student)
	zoneQuestions := make([]zoneQuestion, 0, len(group.Records))

	for i, ir := range group.Records {
		n := i + 1
		qDir := filepath.Join(studentDir, "question"+strconv.Itoa(n))
		if err := os.MkdirAll(qDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", qDir, err)
		}
		htmlPath := filepath.Join(qDir, "question.html")
		if err := os.WriteFile(htmlPath, []byte(questionHTML(ir.Record, cfg.Language)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", htmlPath, err)
		}
		info := questionInfo{
			UUID:          g.NewUUID(),
			Type:          "v3",
			GradingMethod: "Manual",
			Title:         fmt.Sprintf("%s Q%d", cfg.Title, n),
			Topic:         cfg.Topic,
		}
		if err := g.writeJSON(filepath.Join(qDir, "info.json"), info); err != nil {
			return err
		}
		zoneQuestions = append(zoneQuestions, zoneQuestion{
			ID:     fmt.Sprintf("%s/%s/%s/question%d", cfg.PLQuestionRoot, cfg.PLQuizFolder, group.Student, n),
			Points: cfg.PointsPerQuestion,
		})
	}

	studentAssessmentDir := filepath.Join(assessmentDir, group.Student)
	if err := os.MkdirAll(studentAssessmentDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", studentAssessmentDir, err)
	}
	inactive := false
	assessment := assessmentInfo{
		UUID:   g.NewUUID(),
		Type:   "Exam",
		Title:  cfg.Title,
		Set:    cfg.Set,
		Number: cfg.Number,
		AllowAccess: []accessRule{
			{
				Mode:         "Public",
				UIDs:         []string{group.Student},
				Credit:       100,
				TimeLimitMin: cfg.TimeLimitMin,
				StartDate:    cfg.StartDate,
				EndDate:      cfg.EndDate,
				Password:     cfg.Password,
			},
			{
				Mode:      "Public",
				UIDs:      []string{group.Student},
				Credit:    0,
				StartDate: reviewOpen,
				EndDate:   cfg.ReviewEndDate,
				Active:    &inactive,
			},
		},
		Zones: []zone{{Questions: zoneQuestions}},
	}
	return g.writeJSON(filepath.Join(studentAssessmentDir, "infoAssessment.json"), assessment)
}

func (g *Generator) writeInstructor(groups []aggregate.Group, cfg model.Config, questionsDir, assessmentDir string) error {
	combinedDir := filepath.Join(questionsDir, "instructor", "combined_questions")
	if err := os.MkdirAll(combinedDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", combinedDir, err)
	}
	htmlPath := filepath.Join(combinedDir, "question.html")
	if err := os.WriteFile(htmlPath, []byte(combinedHTML(groups, cfg)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", htmlPath, err)
	}
	info := questionInfo{
		UUID:          g.NewUUID(),
		Type:          "v3",
		GradingMethod: "Manual",
		Title:         cfg.Title + " - All Questions",
		Topic:         cfg.Topic,
	}
	if err := g.writeJSON(filepath.Join(combinedDir, "info.json"), info); err != nil {
		return err
	}

	instructorAssessmentDir := filepath.Join(assessmentDir, "instructor")
	if err := os.MkdirAll(instructorAssessmentDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", instructorAssessmentDir, err)
	}
	// The instructor view is meant to stay open indefinitely: it starts a
	// day in the past and ends a thousand days out, with triple the
	// student time limit.
	now := g.Now().UTC()
	active := true
	assessment := assessmentInfo{
		UUID:   g.NewUUID(),
		Type:   "Exam",
		Title:  cfg.Title + " (Instructor View)",
		Set:    cfg.Set,
		Number: cfg.Number,
		AllowAccess: []accessRule{
			{
				Mode:         "Public",
				UIDs:         []string{"instructor"},
				Credit:       100,
				TimeLimitMin: cfg.TimeLimitMin * 3,
				StartDate:    now.Add(-24 * time.Hour).Format(time.RFC3339),
				EndDate:      now.Add(1000 * 24 * time.Hour).Format(time.RFC3339),
				Active:       &active,
			},
		},
		Zones: []zone{{
			Title: "Combined Questions",
			Questions: []zoneQuestion{{
				ID:          fmt.Sprintf("%s/%s/instructor/combined_questions", cfg.PLQuestionRoot, cfg.PLQuizFolder),
				Points:      0,
				Description: "All student questions combined",
			}},
		}},
	}
	return g.writeJSON(filepath.Join(instructorAssessmentDir, "infoAssessment.json"), assessment)
}
