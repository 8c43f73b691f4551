package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DraftLogFileName is the sqlite database auditing LLM draft activity.
const DraftLogFileName = "qlc.drafts.db"

// DraftEntry is one recorded LLM interaction: a draft of a new question or
// a rephrase of an existing one.
type DraftEntry struct {
	ID        int64
	CreatedAt time.Time
	Provider  string
	Model     string
	Kind      string // "draft" or "rephrase"
	FilePath  string
	Snippet   string
	Response  string
}

// DraftLog records every LLM draft request/response so instructors can
// review AI involvement in their quizzes after the fact.
type DraftLog struct {
	db *sql.DB
}

// OpenDraftLog opens (and migrates) the draft log database.
func OpenDraftLog(dbPath string) (*DraftLog, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open draft log: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping draft log: %w", err)
	}
	l := &DraftLog{db: db}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("migrate draft log: %w", err)
	}
	return l, nil
}

func (l *DraftLog) Close() error {
	return l.db.Close()
}

func (l *DraftLog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS drafts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		file_path TEXT NOT NULL DEFAULT '',
		snippet TEXT NOT NULL DEFAULT '',
		response TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record inserts a draft entry.
func (l *DraftLog) Record(e DraftEntry) (int64, error) {
	res, err := l.db.Exec(
		`INSERT INTO drafts (created_at, provider, model, kind, file_path, snippet, response)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), e.Provider, e.Model, e.Kind, e.FilePath, e.Snippet, e.Response,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns all draft entries, newest first.
func (l *DraftLog) List() ([]DraftEntry, error) {
	rows, err := l.db.Query(
		`SELECT id, created_at, provider, model, kind, file_path, snippet, response
		 FROM drafts ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []DraftEntry
	for rows.Next() {
		var e DraftEntry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Provider, &e.Model, &e.Kind, &e.FilePath, &e.Snippet, &e.Response); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded drafts.
func (l *DraftLog) Count() (int, error) {
	var count int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM drafts`).Scan(&count)
	return count, err
}
