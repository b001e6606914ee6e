package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/rahul/taskbreak/internal/plan"
)

// HistoryStore archives completed runs in SQLite.
type HistoryStore struct {
	DB *sql.DB
}

// Run is an archived breakdown with its generated content.
type Run struct {
	ID        int64
	ChatID    string
	Task      string
	CreatedAt time.Time
	Steps     plan.Steps
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT,
			task TEXT,
			created_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS run_steps (
			run_id INTEGER,
			position INTEGER,
			step_id TEXT,
			title TEXT,
			description TEXT,
			content TEXT,
			PRIMARY KEY (run_id, position)
		);`,
	}
	for _, q := range queries {
		if _, err = db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

// SaveRun stores a task and its steps in order.
func (h *HistoryStore) SaveRun(chatID, task string, steps plan.Steps) error {
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO runs (chat_id, task, created_at) VALUES (?, ?, ?)`, chatID, task, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i, s := range steps {
		_, err := tx.Exec(`INSERT INTO run_steps (run_id, position, step_id, title, description, content) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, i, s.ID, s.Title, s.Description, s.GeneratedContent)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns a chat's latest runs, newest first, without their steps.
func (h *HistoryStore) RecentRuns(chatID string, limit int) ([]Run, error) {
	rows, err := h.DB.Query(`SELECT id, chat_id, task, created_at FROM runs WHERE chat_id = ? ORDER BY id DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.ChatID, &r.Task, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(created, 0)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads one run of a chat with its steps in their saved order.
func (h *HistoryStore) GetRun(chatID string, id int64) (*Run, error) {
	var r Run
	var created int64
	err := h.DB.QueryRow(`SELECT id, chat_id, task, created_at FROM runs WHERE id = ? AND chat_id = ?`, id, chatID).
		Scan(&r.ID, &r.ChatID, &r.Task, &created)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(created, 0)

	rows, err := h.DB.Query(`SELECT step_id, title, description, content FROM run_steps WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s plan.Step
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.GeneratedContent); err != nil {
			return nil, err
		}
		r.Steps = append(r.Steps, s)
	}
	return &r, rows.Err()
}

// ClearRuns deletes a chat's archive.
func (h *HistoryStore) ClearRuns(chatID string) error {
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM run_steps WHERE run_id IN (SELECT id FROM runs WHERE chat_id = ?)`, chatID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE chat_id = ?`, chatID); err != nil {
		return err
	}
	return tx.Commit()
}
