package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gvqlc/qlc/internal/export"
	"github.com/gvqlc/qlc/internal/handler"
	appI18n "github.com/gvqlc/qlc/internal/i18n"
	"github.com/gvqlc/qlc/internal/identity"
	"github.com/gvqlc/qlc/internal/llm"
	"github.com/gvqlc/qlc/internal/llm/prompts"
	"github.com/gvqlc/qlc/internal/model"
	"github.com/gvqlc/qlc/internal/pltree"
	"github.com/gvqlc/qlc/internal/store"
	"github.com/gvqlc/qlc/internal/view"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "qlc",
		Short: "Personalized quiz questions for student code submissions",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), pltreeCmd(), addCmd(), draftCmd(), configCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("workspace", "w", ".", "Workspace directory holding the data files")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-provider", "gemini", "LLM provider (openai, azure, anthropic, ollama, gemini)")
	f.String("llm-key", "", "API key for the LLM provider (or set QLC_LLM_KEY)")
	f.String("llm-url", "", "Override the provider base URL")
	f.String("llm-model", "", "Override the provider default model")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the question-management web UI",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	addCommonFlags(cmd)
	addLLMFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export study-quiz documents (HTML/Markdown/PDF per config flags)",
		RunE:  runExport,
	}
	addCommonFlags(cmd)
	return cmd
}

func pltreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pltree",
		Short: "Generate the PrairieLearn question and assessment tree",
		RunE:  runPLTree,
	}
	addCommonFlags(cmd)
	return cmd
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a manually written quiz question for a code snippet",
		RunE:  runAdd,
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "Submission file holding the snippet (required)")
	f.Int("start-line", 1, "First line of the snippet (1-based)")
	f.Int("end-line", 0, "Last line of the snippet (0 = end of file)")
	f.StringP("question", "q", "", "Question text (required)")
	f.String("answer", "", "Model answer, recorded in the answers side file")
	addCommonFlags(cmd)
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft a quiz question for a code snippet with an LLM",
		RunE:  runDraft,
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "Submission file holding the snippet (required)")
	f.Int("start-line", 1, "First line of the snippet (1-based)")
	f.Int("end-line", 0, "Last line of the snippet (0 = end of file)")
	f.String("question", "", "Existing question text to rephrase instead of drafting")
	f.String("guidance", "", "Extra instructions for the drafting prompt")
	f.Bool("save", false, "Append the drafted question to the store")
	addCommonFlags(cmd)
	addLLMFlags(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the workspace config file",
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample config file to the workspace",
		RunE:  runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	addCommonFlags(initCmd)
	cmd.AddCommand(initCmd)
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QLC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// openWorkspace loads the question store and config for the flagged
// workspace. A missing config falls back to defaults with a warning; only
// the tree generator insists on a customized config.
func openWorkspace(v *viper.Viper) (string, *store.Questions, model.Config, error) {
	workspace, err := filepath.Abs(v.GetString("workspace"))
	if err != nil {
		return "", nil, model.Config{}, fmt.Errorf("resolve workspace: %w", err)
	}

	questions, err := store.OpenQuestions(workspace)
	if err != nil {
		return "", nil, model.Config{}, err
	}

	cfg, err := store.LoadConfig(workspace)
	if err != nil {
		if !errors.Is(err, store.ErrConfigNotFound) {
			return "", nil, model.Config{}, err
		}
		slog.Warn("no config file found, using defaults", "file", store.ConfigFileName)
		cfg = model.DefaultConfig()
	}
	return workspace, questions, cfg, nil
}

// llmConfig resolves the flagged backend, defaults included, so audit
// entries record the provider and model that actually ran.
func llmConfig(v *viper.Viper) llm.Config {
	return llm.Resolve(llm.Config{
		Provider: v.GetString("llm-provider"),
		APIKey:   v.GetString("llm-key"),
		BaseURL:  v.GetString("llm-url"),
		Model:    v.GetString("llm-model"),
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	workspace, questions, cfg, err := openWorkspace(v)
	if err != nil {
		return err
	}

	settings, err := store.LoadSettings(workspace)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmCfg := llmConfig(v)
	provider, err := llm.New(llmCfg)
	if err != nil {
		// The UI works without an LLM; only the draft endpoint needs it.
		slog.Warn("LLM provider unavailable", "error", err)
		provider = nil
	}

	drafts, err := store.OpenDraftLog(filepath.Join(workspace, store.DraftLogFileName))
	if err != nil {
		return fmt.Errorf("open draft log: %w", err)
	}
	defer drafts.Close()

	h := handler.New(workspace, questions, cfg, settings, provider, llmCfg, drafts)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"workspace", workspace,
		"questions", questions.Len(),
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	workspace, questions, cfg, err := openWorkspace(v)
	if err != nil {
		return err
	}

	runner := export.NewRunner(workspace, view.Render)
	written, err := runner.Run(questions.Records(), cfg)
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			fmt.Println("No personalized questions added yet!")
			return nil
		}
		return err
	}
	for _, path := range written {
		fmt.Println(path)
	}
	return nil
}

func runPLTree(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	workspace, questions, cfg, err := openWorkspace(v)
	if err != nil {
		return err
	}

	generator := pltree.New(workspace)
	if err := generator.Generate(questions.Records(), cfg); err != nil {
		if errors.Is(err, pltree.ErrNoQuestions) {
			fmt.Println("No personalized questions available to generate the quiz!")
			return nil
		}
		return err
	}
	fmt.Println("Successfully generated PrairieLearn Quiz.")
	return nil
}

func runAdd(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	workspace, questions, cfg, err := openWorkspace(v)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(v.GetString("question"))
	if text == "" {
		return fmt.Errorf("question text must not be blank")
	}

	file := v.GetString("file")
	snippet, startLine, endLine, err := readSnippet(workspace, file, v.GetInt("start-line"), v.GetInt("end-line"))
	if err != nil {
		return err
	}

	answer := v.GetString("answer")
	questions.Append(model.QuestionRecord{
		FilePath: file,
		Range: model.Range{
			Start: model.Position{Line: startLine - 1},
			End:   model.Position{Line: endLine - 1},
		},
		Text:            text,
		HighlightedCode: snippet,
		Answer:          answer,
	})
	if err := questions.Persist(); err != nil {
		return err
	}
	if answer != "" {
		entry := model.AnswerEntry{
			QuestionID:      questions.Len() - 1,
			QuestionText:    text,
			Answer:          answer,
			StudentName:     identity.Extract(file, cfg.SubmissionRoot, cfg.StudentNameMapping),
			FilePath:        file,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			HighlightedCode: snippet,
		}
		if err := store.AppendAnswer(workspace, entry); err != nil {
			slog.Warn("answers side file update failed", "error", err)
		}
	}
	slog.Info("question added", "file", file, "index", questions.Len()-1)
	return nil
}

func runDraft(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	workspace, questions, cfg, err := openWorkspace(v)
	if err != nil {
		return err
	}

	llmCfg := llmConfig(v)
	provider, err := llm.New(llmCfg)
	if err != nil {
		return err
	}

	file := v.GetString("file")
	snippet, startLine, endLine, err := readSnippet(workspace, file, v.GetInt("start-line"), v.GetInt("end-line"))
	if err != nil {
		return err
	}

	existing := v.GetString("question")
	kind := "draft"
	var messages []llm.Message
	if existing != "" {
		kind = "rephrase"
		messages = []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.RephraseSystem()},
			{Role: llm.RoleUser, Content: prompts.RephraseUser(existing, snippet)},
		}
	} else {
		messages = []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.DraftSystem(cfg.Language)},
			{Role: llm.RoleUser, Content: prompts.DraftUser(snippet, v.GetString("guidance"))},
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	resp, err := provider.GenerateCompletion(ctx, messages)
	if err != nil {
		return err
	}

	drafts, err := store.OpenDraftLog(filepath.Join(workspace, store.DraftLogFileName))
	if err != nil {
		return fmt.Errorf("open draft log: %w", err)
	}
	defer drafts.Close()
	if _, err := drafts.Record(store.DraftEntry{
		Provider: llmCfg.Provider,
		Model:    llmCfg.Model,
		Kind:     kind,
		FilePath: file,
		Snippet:  snippet,
		Response: resp.Content,
	}); err != nil {
		slog.Warn("draft audit record failed", "error", err)
	}

	draft, err := llm.ParseDraft(resp.Content)
	if err != nil {
		return err
	}

	fmt.Println("Question:", draft.Question)
	if draft.Answer != "" {
		fmt.Println("Answer:", draft.Answer)
	}

	if !v.GetBool("save") {
		return nil
	}

	rec := model.QuestionRecord{
		FilePath: file,
		Range: model.Range{
			Start: model.Position{Line: startLine - 1},
			End:   model.Position{Line: endLine - 1},
		},
		Text:            draft.Question,
		HighlightedCode: snippet,
		Answer:          draft.Answer,
	}
	questions.Append(rec)
	if err := questions.Persist(); err != nil {
		return err
	}
	if draft.Answer != "" {
		entry := model.AnswerEntry{
			QuestionID:      questions.Len() - 1,
			QuestionText:    draft.Question,
			Answer:          draft.Answer,
			StudentName:     identity.Extract(file, cfg.SubmissionRoot, cfg.StudentNameMapping),
			FilePath:        file,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			HighlightedCode: snippet,
		}
		if err := store.AppendAnswer(workspace, entry); err != nil {
			slog.Warn("answers side file update failed", "error", err)
		}
	}
	slog.Info("question saved", "file", file, "index", questions.Len()-1)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	workspace, err := filepath.Abs(v.GetString("workspace"))
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}

	if _, err := store.CreateConfig(workspace, v.GetBool("force")); err != nil {
		if errors.Is(err, store.ErrConfigExists) {
			fmt.Printf("%s already exists; use --force to overwrite.\n", store.ConfigFileName)
			return nil
		}
		return err
	}
	fmt.Println("Wrote", filepath.Join(workspace, store.ConfigFileName))
	fmt.Println("Edit the file and set pl_ready to true once it is customized.")
	return nil
}

// readSnippet extracts the 1-based inclusive line range from a submission
// file, returning the snippet and the normalized range. Paths are tried as
// given, then relative to the workspace.
func readSnippet(workspace, file string, startLine, endLine int) (string, int, int, error) {
	path := file
	data, err := os.ReadFile(path)
	if err != nil && !filepath.IsAbs(file) {
		path = filepath.Join(workspace, file)
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", 0, 0, fmt.Errorf("read %s: %w", file, err)
	}
	if len(data) == 0 {
		return "", 0, 0, fmt.Errorf("%s is empty", file)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine <= 0 || endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > len(lines) {
		return "", 0, 0, fmt.Errorf("start line %d past end of %s (%d lines)", startLine, file, len(lines))
	}
	if endLine < startLine {
		endLine = startLine
	}
	return strings.Join(lines[startLine-1:endLine], "\n"), startLine, endLine, nil
}
