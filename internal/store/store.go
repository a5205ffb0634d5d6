package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"candlescan/pkg/model"
)

// ErrRunNotFound is returned when a run ID is not in the database
var ErrRunNotFound = errors.New("run not found")

// RunSummary is a stored scan run without its matches
type RunSummary struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	Rules         []string      `json:"rules"`
	TotalScanned  int           `json:"total_scanned"`
	MatchingCount int           `json:"matching_count"`
	ScanTime      time.Duration `json:"scan_time"`
}

// StoredMatch is a match row of a stored run
type StoredMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	model.MatchRecord
}

// Store persists scan runs in SQLite
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS runs (
			id             TEXT    PRIMARY KEY,
			started_at     INTEGER NOT NULL,
			rules          TEXT    NOT NULL,
			total_scanned  INTEGER NOT NULL,
			matching_count INTEGER NOT NULL,
			scan_ns        INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS matches (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT    NOT NULL REFERENCES runs(id),
			symbol       TEXT    NOT NULL,
			name         TEXT    NOT NULL DEFAULT '',
			rule         TEXT    NOT NULL,
			kind         TEXT    NOT NULL,
			style        TEXT    NOT NULL,
			window_start INTEGER NOT NULL,
			window_len   INTEGER NOT NULL,
			date         INTEGER NOT NULL,
			close        REAL    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_matches_run ON matches (run_id);
	`)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a scan result with all its matches in one transaction.
// A result without a RunID gets a new one, which is also written back.
func (s *Store) SaveRun(ctx context.Context, result *model.ScanResult) (string, error) {
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}

	rules, err := json.Marshal(result.Rules)
	if err != nil {
		return "", fmt.Errorf("encoding rules: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, rules, total_scanned, matching_count, scan_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.RunID, result.StartedAt.UnixNano(), string(rules), result.TotalScanned, result.MatchingCount, int64(result.ScanTime))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches (run_id, symbol, name, rule, kind, style, window_start, window_len, date, close)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range result.Results {
		for _, m := range r.Matches {
			_, err := stmt.ExecContext(ctx, result.RunID, r.Stock.Symbol, r.Stock.Name,
				m.Rule, m.Kind, m.Style, m.WindowStart, m.WindowLen, m.Date.Unix(), m.Close)
			if err != nil {
				return "", fmt.Errorf("insert match %s/%s: %w", r.Stock.Symbol, m.Rule, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return result.RunID, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, rules, total_scanned, matching_count, scan_ns
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			r         RunSummary
			startedNs int64
			rules     string
			scanNs    int64
		)
		if err := rows.Scan(&r.ID, &startedNs, &rules, &r.TotalScanned, &r.MatchingCount, &scanNs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(rules), &r.Rules); err != nil {
			return nil, fmt.Errorf("decoding rules of run %s: %w", r.ID, err)
		}
		r.StartedAt = time.Unix(0, startedNs).UTC()
		r.ScanTime = time.Duration(scanNs)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunMatches returns the matches of a run in the order they were saved
func (s *Store) RunMatches(ctx context.Context, runID string) ([]StoredMatch, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, name, rule, kind, style, window_start, window_len, date, close
		FROM matches
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	matches := []StoredMatch{}
	for rows.Next() {
		var (
			m    StoredMatch
			date int64
		)
		if err := rows.Scan(&m.Symbol, &m.Name, &m.Rule, &m.Kind, &m.Style, &m.WindowStart, &m.WindowLen, &date, &m.Close); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Date = time.Unix(date, 0).UTC()
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
