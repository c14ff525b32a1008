package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// ErrNotFound reports a missing report ID.
var ErrNotFound = errors.New("report not found")

// Store is the Postgres-backed archive of finished reports.
type Store struct {
	DB *sql.DB
}

// Report is one archived pipeline result.
type Report struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Prompt    string    `json:"prompt"`
	Headline  string    `json:"headline"`
	URL       string    `json:"url,omitempty"`
	Bias      string    `json:"bias"`
	Synthesis string    `json:"synthesis"`
	Critique  string    `json:"critique"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// SaveReport inserts a report and returns its generated ID.
func (s *Store) SaveReport(ctx context.Context, r Report) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO reports (id, run_id, prompt, headline, url, bias, synthesis, critique, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.RunID, r.Prompt, r.Headline, r.URL, r.Bias, r.Synthesis, r.Critique, r.Body, r.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return r.ID, nil
}

// GetReport fetches one report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (Report, error) {
	var r Report
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, run_id, prompt, headline, url, bias, synthesis, critique, body, created_at
		FROM reports WHERE id = $1`, id).
		Scan(&r.ID, &r.RunID, &r.Prompt, &r.Headline, &r.URL, &r.Bias, &r.Synthesis, &r.Critique, &r.Body, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("failed to get report: %w", err)
	}
	return r, nil
}

// ListReports returns the most recent reports, newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, run_id, prompt, headline, url, bias, synthesis, critique, body, created_at
		FROM reports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.RunID, &r.Prompt, &r.Headline, &r.URL, &r.Bias, &r.Synthesis, &r.Critique, &r.Body, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
