// Package handler serves the question-management UI and its JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gvqlc/qlc/internal/aggregate"
	"github.com/gvqlc/qlc/internal/export"
	"github.com/gvqlc/qlc/internal/i18n"
	"github.com/gvqlc/qlc/internal/identity"
	"github.com/gvqlc/qlc/internal/llm"
	"github.com/gvqlc/qlc/internal/llm/prompts"
	"github.com/gvqlc/qlc/internal/model"
	"github.com/gvqlc/qlc/internal/pltree"
	"github.com/gvqlc/qlc/internal/store"
	"github.com/gvqlc/qlc/internal/view"
)

// Summary-table colors, one per severity bucket.
const (
	colorRed    = "rgba(255, 184, 181, 1)"
	colorGreen  = "rgba(208, 240, 208, 1)"
	colorYellow = "rgba(255, 255, 178, 1)"
	colorBlue   = "rgba(184, 215, 255, 1)"
)

// severityColor maps a severity bucket to its presentation color: red for
// students with no questions, blue above the mode, green at it, yellow below.
func severityColor(s aggregate.Severity) string {
	switch s {
	case aggregate.SeverityNone:
		return colorRed
	case aggregate.SeverityAbove:
		return colorBlue
	case aggregate.SeverityTypical:
		return colorGreen
	default:
		return colorYellow
	}
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	workspace string
	questions *store.Questions
	cfg       model.Config
	settings  model.Settings
	provider  llm.Provider
	llmCfg    llm.Config
	drafts    *store.DraftLog
	exporter  *export.Runner
	generator *pltree.Generator
}

// New creates a new Handler. provider and drafts may be nil when no LLM is
// configured; the draft endpoint then reports the missing credential.
// llmCfg names the backend for draft audit entries.
func New(workspace string, questions *store.Questions, cfg model.Config, settings model.Settings, provider llm.Provider, llmCfg llm.Config, drafts *store.DraftLog) *Handler {
	return &Handler{
		workspace: workspace,
		questions: questions,
		cfg:       cfg,
		settings:  settings,
		provider:  provider,
		llmCfg:    llm.Resolve(llmCfg),
		drafts:    drafts,
		exporter:  export.NewRunner(workspace, view.Render),
		generator: pltree.New(workspace),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/api/questions", h.handleAdd)
	r.Post("/api/questions/{index}/save", h.handleSave)
	r.Post("/api/questions/{index}/exclude", h.handleExclude)
	r.Post("/api/questions/{index}/delete", h.handleDelete)
	r.Get("/api/suggestions", h.handleSuggestions)
	r.Post("/api/export", h.handleExport)
	r.Post("/api/pltree", h.handlePLTree)
	r.Post("/api/draft", h.handleDraft)
	r.Get("/api/settings", h.handleGetSettings)
	r.Post("/api/settings", h.handleSaveSettings)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondMessage(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// shortPath keeps the last two path segments so the table shows
// "student/file.py" instead of the full submission path.
func shortPath(p string) string {
	parts := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) <= 2 {
		return p
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

type summaryRow struct {
	DisplayName string
	Count       int
	Mark        string
	Color       string
}

type tableRow struct {
	Index      int
	Label      string
	LabelColor string
	FilePath   string
	ShortPath  string
	Code       string
	Text       string
	Excluded   bool
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records := h.questions.Records()
	result := aggregate.Run(records, h.cfg.SubmissionRoot, h.cfg.StudentNameMapping)

	countByStudent := make(map[string]int, len(result.Groups))
	for _, g := range result.Groups {
		countByStudent[g.Student] = g.Count
	}

	// The summary covers every student directory under the submission root,
	// so students with zero questions still show up (in red).
	var summary []summaryRow
	seen := make(map[string]bool)
	roster, err := store.StudentRoster(h.workspace, h.cfg.SubmissionRoot)
	if err != nil {
		slog.Warn("roster scan failed", "error", err)
	}
	for _, student := range roster {
		seen[student] = true
		count := countByStudent[student]
		row := summaryRow{
			DisplayName: identity.MapName(student, h.cfg.StudentNameMapping),
			Count:       count,
			Color:       severityColor(aggregate.Classify(count, result.Mode)),
		}
		if count > 0 {
			row.Mark = "✓"
		}
		summary = append(summary, row)
	}
	for _, g := range result.Groups {
		if seen[g.Student] {
			continue
		}
		summary = append(summary, summaryRow{
			DisplayName: g.DisplayName,
			Count:       g.Count,
			Mark:        "✓",
			Color:       severityColor(aggregate.Classify(g.Count, result.Mode)),
		})
	}

	rows := make([]tableRow, 0, len(records))
	for i, rec := range records {
		student := identity.Extract(rec.FilePath, h.cfg.SubmissionRoot, nil)
		rows = append(rows, tableRow{
			Index:      i,
			Label:      result.Labels[i],
			LabelColor: severityColor(aggregate.Classify(countByStudent[student], result.Mode)),
			FilePath:   rec.FilePath,
			ShortPath:  shortPath(rec.FilePath),
			Code:       rec.HighlightedCode,
			Text:       rec.Text,
			Excluded:   rec.ExcludeFromQuiz,
		})
	}

	background := "#f4f4f4"
	if h.settings.ViewMode == "dark" {
		background = "#d6d6d6"
	}

	data := map[string]any{
		"PageTitle":          i18n.T(ctx, "AppTitle"),
		"Heading":            i18n.T(ctx, "PageHeading"),
		"BodyBackground":     background,
		"TotalLabel":         i18n.T(ctx, "TotalQuestions"),
		"TotalQuestions":     len(records),
		"RefreshLabel":       i18n.T(ctx, "Refresh"),
		"SummaryLabel":       i18n.T(ctx, "SummaryTable"),
		"ExportLabel":        i18n.T(ctx, "ExportQuiz"),
		"TreeLabel":          i18n.T(ctx, "GenerateTree"),
		"SearchPlaceholder":  i18n.T(ctx, "SearchPlaceholder"),
		"SummaryHeading":     i18n.T(ctx, "SummaryHeading"),
		"StudentHeader":      i18n.T(ctx, "Student"),
		"CountHeader":        i18n.T(ctx, "Count"),
		"HasQuestionsHeader": i18n.T(ctx, "HasQuestions"),
		"FileHeader":         i18n.T(ctx, "File"),
		"CodeHeader":         i18n.T(ctx, "Code"),
		"QuestionHeader":     i18n.T(ctx, "Question"),
		"ActionsHeader":      i18n.T(ctx, "Actions"),
		"SaveLabel":          i18n.T(ctx, "Save"),
		"DeleteLabel":        i18n.T(ctx, "Delete"),
		"ExcludeLabel":       i18n.T(ctx, "ExcludeFromQuiz"),
		"Summary":            summary,
		"Rows":               rows,
	}

	html, err := view.Render("questions_table.mustache.html", data)
	if err != nil {
		slog.Error("render error", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (h *Handler) recordIndex(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "index"))
}

// handleAdd appends a manually written question for a code selection,
// without involving an LLM. A provided model answer also lands in the
// answers side file.
func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePath        string      `json:"filePath"`
		Range           model.Range `json:"range"`
		HighlightedCode string      `json:"highlightedCode"`
		Text            string      `json:"text"`
		Answer          string      `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FilePath == "" {
		respondError(w, http.StatusBadRequest, "filePath is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "question text is required")
		return
	}

	h.questions.Append(model.QuestionRecord{
		FilePath:        req.FilePath,
		Range:           req.Range,
		Text:            req.Text,
		HighlightedCode: req.HighlightedCode,
		Answer:          req.Answer,
	})
	if err := h.questions.Persist(); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.Answer != "" {
		entry := model.AnswerEntry{
			QuestionID:      h.questions.Len() - 1,
			QuestionText:    req.Text,
			Answer:          req.Answer,
			StudentName:     identity.Extract(req.FilePath, h.cfg.SubmissionRoot, h.cfg.StudentNameMapping),
			FilePath:        req.FilePath,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			HighlightedCode: req.HighlightedCode,
		}
		if err := store.AppendAnswer(h.workspace, entry); err != nil {
			slog.Warn("answers side file update failed", "error", err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": i18n.T(r.Context(), "QuestionAdded"),
		"index":   h.questions.Len() - 1,
	})
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	index, err := h.recordIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid question index")
		return
	}
	var req struct {
		Text            string `json:"text"`
		HighlightedCode string `json:"highlightedCode"`
		Answer          string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.questions.Update(index, req.Text, req.HighlightedCode, req.Answer); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.questions.Persist(); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondMessage(w, i18n.T(r.Context(), "QuestionSaved"))
}

func (h *Handler) handleExclude(w http.ResponseWriter, r *http.Request) {
	index, err := h.recordIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid question index")
		return
	}
	var req struct {
		Exclude bool `json:"exclude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.questions.ToggleExclude(index, req.Exclude); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.questions.Persist(); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondMessage(w, i18n.T(r.Context(), "ExcludeUpdated"))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	index, err := h.recordIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid question index")
		return
	}
	if err := h.questions.Delete(index); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.questions.Persist(); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondMessage(w, i18n.T(r.Context(), "QuestionDeleted"))
}

// handleSuggestions returns the distinct question texts already in the
// store, oldest first, for reuse in the add/edit UI.
func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]bool)
	suggestions := []string{}
	for _, rec := range h.questions.Records() {
		if rec.Text == "" || seen[rec.Text] {
			continue
		}
		seen[rec.Text] = true
		suggestions = append(suggestions, rec.Text)
	}
	respondJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	written, err := h.exporter.Run(h.questions.Records(), h.cfg)
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			respondError(w, http.StatusBadRequest, i18n.T(r.Context(), "NoQuestions"))
			return
		}
		slog.Error("export failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slog.Info("export complete", "files", len(written))
	respondMessage(w, i18n.Tp(r.Context(), "ExportDone", len(written)))
}

func (h *Handler) handlePLTree(w http.ResponseWriter, r *http.Request) {
	err := h.generator.Generate(h.questions.Records(), h.cfg)
	switch {
	case err == nil:
		respondMessage(w, i18n.T(r.Context(), "TreeDone"))
	case errors.Is(err, pltree.ErrNoQuestions):
		respondError(w, http.StatusBadRequest, i18n.T(r.Context(), "NoQuestionsForTree"))
	case errors.Is(err, pltree.ErrNotReady):
		respondError(w, http.StatusBadRequest, i18n.T(r.Context(), "ConfigNotReady"))
	default:
		var mfe *model.MissingFieldError
		if errors.As(err, &mfe) {
			respondError(w, http.StatusBadRequest, mfe.Error())
			return
		}
		slog.Error("tree generation failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

type draftRequest struct {
	FilePath        string      `json:"filePath"`
	Range           model.Range `json:"range"`
	HighlightedCode string      `json:"highlightedCode"`
	Question        string      `json:"question"`
	Guidance        string      `json:"guidance"`
	Save            bool        `json:"save"`
}

func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respondError(w, http.StatusServiceUnavailable, "no LLM provider configured")
		return
	}
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := "draft"
	var messages []llm.Message
	if req.Question != "" {
		kind = "rephrase"
		messages = []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.RephraseSystem()},
			{Role: llm.RoleUser, Content: prompts.RephraseUser(req.Question, req.HighlightedCode)},
		}
	} else {
		messages = []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.DraftSystem(h.cfg.Language)},
			{Role: llm.RoleUser, Content: prompts.DraftUser(req.HighlightedCode, req.Guidance)},
		}
	}

	resp, err := h.provider.GenerateCompletion(r.Context(), messages)
	if err != nil {
		slog.Error("draft call failed", "kind", kind, "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	if h.drafts != nil {
		if _, err := h.drafts.Record(store.DraftEntry{
			Provider: h.llmCfg.Provider,
			Model:    h.llmCfg.Model,
			Kind:     kind,
			FilePath: req.FilePath,
			Snippet:  req.HighlightedCode,
			Response: resp.Content,
		}); err != nil {
			slog.Warn("draft audit record failed", "error", err)
		}
	}

	draft, err := llm.ParseDraft(resp.Content)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	if req.Save {
		h.questions.Append(model.QuestionRecord{
			FilePath:        req.FilePath,
			Range:           req.Range,
			Text:            draft.Question,
			HighlightedCode: req.HighlightedCode,
			Answer:          draft.Answer,
		})
		if err := h.questions.Persist(); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if draft.Answer != "" {
			entry := model.AnswerEntry{
				QuestionID:      h.questions.Len() - 1,
				QuestionText:    draft.Question,
				Answer:          draft.Answer,
				StudentName:     identity.Extract(req.FilePath, h.cfg.SubmissionRoot, h.cfg.StudentNameMapping),
				FilePath:        req.FilePath,
				Timestamp:       time.Now().UTC().Format(time.RFC3339),
				HighlightedCode: req.HighlightedCode,
			}
			if err := store.AppendAnswer(h.workspace, entry); err != nil {
				slog.Warn("answers side file update failed", "error", err)
			}
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"question": draft.Question,
		"answer":   draft.Answer,
		"saved":    req.Save,
	})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings)
}

func (h *Handler) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var s model.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.ViewMode == "" {
		s.ViewMode = "normal"
	}
	if s.ContrastMode == "" {
		s.ContrastMode = "normal"
	}
	if err := store.SaveSettings(h.workspace, s); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.settings = s
	respondMessage(w, i18n.T(r.Context(), "SettingsSaved"))
}
