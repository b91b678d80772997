package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// MatchRow is a live match as mirrored in the directory.
type MatchRow struct {
	ID        string
	Rules     string
	Status    string // "forming", "awaiting-placements", "playing", "finished"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id         TEXT PRIMARY KEY,
			rules      TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'forming',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS matches_status ON matches(status);
	`)
	return err
}

// CreateMatch inserts a new match in the forming state.
func (s *Store) CreateMatch(id, rules string) error {
	_, err := s.db.Exec(
		"INSERT INTO matches (id, rules, status) VALUES (?, ?, 'forming')",
		id, rules,
	)
	return err
}

// GetMatch retrieves a match by id.
func (s *Store) GetMatch(id string) (*MatchRow, error) {
	row := s.db.QueryRow("SELECT id, rules, status, created_at, updated_at FROM matches WHERE id = ?", id)
	var mr MatchRow
	if err := row.Scan(&mr.ID, &mr.Rules, &mr.Status, &mr.CreatedAt, &mr.UpdatedAt); err != nil {
		return nil, err
	}
	return &mr, nil
}

// UpdateMatchStatus changes a match's status. Unknown ids are ignored.
func (s *Store) UpdateMatchStatus(id, status string) error {
	_, err := s.db.Exec("UPDATE matches SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", status, id)
	return err
}

// ListMatches returns all matches with the given status (or all if status is empty).
func (s *Store) ListMatches(status string) ([]MatchRow, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.Query("SELECT id, rules, status, created_at, updated_at FROM matches ORDER BY created_at DESC, id")
	} else {
		rows, err = s.db.Query("SELECT id, rules, status, created_at, updated_at FROM matches WHERE status = ? ORDER BY created_at DESC, id", status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []MatchRow
	for rows.Next() {
		var mr MatchRow
		if err := rows.Scan(&mr.ID, &mr.Rules, &mr.Status, &mr.CreatedAt, &mr.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, mr)
	}
	return result, rows.Err()
}

// DeleteMatch removes a match.
func (s *Store) DeleteMatch(id string) error {
	_, err := s.db.Exec("DELETE FROM matches WHERE id = ?", id)
	return err
}

// Purge removes every row and reports how many were deleted.
func (s *Store) Purge() (int64, error) {
	res, err := s.db.Exec("DELETE FROM matches")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
