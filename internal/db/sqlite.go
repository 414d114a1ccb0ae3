package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/RichardoC/bithabit/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS threads (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

type SQLiteStore struct {
	db *sql.DB
}

var _ ThreadStore = (*SQLiteStore)(nil)

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveThread(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("thread id is empty")
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO threads (id, created_at)
        VALUES (?, CURRENT_TIMESTAMP)`, id)
	if err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListThreads(ctx context.Context) ([]string, error) {
	threads, err := s.GetThreads(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(threads))
	for _, t := range threads {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// GetThreads returns the stored threads in the order they were first saved.
func (s *SQLiteStore) GetThreads(ctx context.Context) ([]models.Thread, error) {
	query := `
        SELECT id, created_at
        FROM threads
        ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return []models.Thread{}, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	threads := make([]models.Thread, 0)
	for rows.Next() {
		var t models.Thread
		if err := rows.Scan(&t.ID, &t.CreatedAt); err != nil {
			return []models.Thread{}, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
