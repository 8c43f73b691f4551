// Package export renders the study-guide documents: per-student or combined
// HTML, with optional Markdown and PDF conversions.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"

	"github.com/gvqlc/qlc/internal/aggregate"
	"github.com/gvqlc/qlc/internal/model"
)

// ErrNothingToExport is returned when every record is excluded or the store
// is empty. Callers report it as an empty-result notice, not a failure.
var ErrNothingToExport = errors.New("no questions to export")

// Document is one rendered study document. Student is empty for the
// combined all-students document.
type Document struct {
	Student string
	Name    string
	HTML    string
}

type questionData struct {
	Number        int
	FileName      string
	StartLine     int
	EndLine       int
	StartCol      int
	EndCol        int
	Text          string
	Code          string
	Answer        string
	IncludeAnswer bool
}

type studentData struct {
	Student   string
	Questions []questionData
}

type documentData struct {
	DocumentTitle string
	Students      []studentData
}

// Slug lowercases a student identifier and replaces every run-of-one
// non-alphanumeric character with an underscore, matching the artifact
// naming convention quiz_<slug>.<ext>.
func Slug(student string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(student) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func buildStudent(g aggregate.Group, includeAnswers bool) studentData {
	sd := studentData{Student: g.Student}
	for i, ir := range g.Records {
		r := ir.Record
		sd.Questions = append(sd.Questions, questionData{
			Number:        i + 1,
			FileName:      filepath.Base(r.FilePath),
			StartLine:     r.Range.Start.Line,
			EndLine:       r.Range.End.Line,
			StartCol:      r.Range.Start.Character,
			EndCol:        r.Range.End.Character,
			Text:          r.Text,
			Code:          r.HighlightedCode,
			Answer:        r.Answer,
			IncludeAnswer: includeAnswers,
		})
	}
	return sd
}

// BuildDocuments renders the study documents for the given aggregation
// result. SinglePageFlag selects one combined document over one document
// per student. The groups must already be filtered of excluded records.
func BuildDocuments(result aggregate.Result, cfg model.Config, render func(string, any) (string, error)) ([]Document, error) {
	if cfg.SinglePageFlag {
		data := documentData{DocumentTitle: "Quiz Export for all students"}
		for _, g := range result.Groups {
			data.Students = append(data.Students, buildStudent(g, cfg.IncludeAnswersFlag))
		}
		html, err := render("study_quiz.mustache.html", data)
		if err != nil {
			return nil, err
		}
		return []Document{{Name: "quiz_all_students", HTML: html}}, nil
	}

	var docs []Document
	for _, g := range result.Groups {
		data := documentData{
			DocumentTitle: "Quiz Export for " + g.Student,
			Students:      []studentData{buildStudent(g, cfg.IncludeAnswersFlag)},
		}
		html, err := render("study_quiz.mustache.html", data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{
			Student: g.Student,
			Name:    "quiz_" + Slug(g.Student),
			HTML:    html,
		})
	}
	return docs, nil
}

// ToMarkdown converts a rendered HTML document to Markdown. Page-break
// divs carry no text content and are dropped by the conversion.
func ToMarkdown(html string) (string, error) {
	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return out, nil
}

// ToPDF converts a rendered HTML document to PDF. It shells out to
// wkhtmltopdf, which must be on PATH.
func ToPDF(html string) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("init pdf generator: %w", err)
	}
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.AddPage(wkhtmltopdf.NewPageReader(strings.NewReader(html)))
	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdfg.Buffer().Bytes(), nil
}

// Runner writes study documents into a workspace. The conversion funcs are
// fields so tests can run without a wkhtmltopdf binary installed.
type Runner struct {
	Workspace string
	Render    func(string, any) (string, error)
	Markdown  func(string) (string, error)
	PDF       func(string) ([]byte, error)
}

// NewRunner returns a Runner with the production converters.
func NewRunner(workspace string, render func(string, any) (string, error)) *Runner {
	return &Runner{
		Workspace: workspace,
		Render:    render,
		Markdown:  ToMarkdown,
		PDF:       ToPDF,
	}
}

// Run filters out excluded records, aggregates by student, renders the
// documents, and writes them to the workspace root. The output format
// follows the config flags: markdownFlag writes .md, pdfFlag writes .pdf
// alongside the .html source, otherwise .html alone. It returns the
// paths written, or ErrNothingToExport when no record survives the filter.
func (r *Runner) Run(records []model.QuestionRecord, cfg model.Config) ([]string, error) {
	included := aggregate.Filter(records, aggregate.Included)
	if len(included) == 0 {
		return nil, ErrNothingToExport
	}
	result := aggregate.Run(included, cfg.SubmissionRoot, cfg.StudentNameMapping)

	docs, err := BuildDocuments(result, cfg, r.Render)
	if err != nil {
		return nil, err
	}

	var written []string
	write := func(name string, data []byte) error {
		p := filepath.Join(r.Workspace, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, p)
		return nil
	}

	for _, doc := range docs {
		switch {
		case cfg.MarkdownFlag:
			mdText, err := r.Markdown(doc.HTML)
			if err != nil {
				return written, err
			}
			if err := write(doc.Name+".md", []byte(mdText)); err != nil {
				return written, err
			}
		case cfg.PDFFlag:
			pdf, err := r.PDF(doc.HTML)
			if err != nil {
				return written, err
			}
			if err := write(doc.Name+".pdf", pdf); err != nil {
				return written, err
			}
			if err := write(doc.Name+".html", []byte(doc.HTML)); err != nil {
				return written, err
			}
		default:
			if err := write(doc.Name+".html", []byte(doc.HTML)); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
