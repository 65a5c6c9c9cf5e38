// Package eventstore persists the append-only mint/burn record log and
// fans new records out to live subscribers. The log is observability
// surface only; issuance state never depends on it.
package eventstore

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veridian-labs/veridian-issuance/internal/types"
)

// Sink receives each completed issuance record exactly once, in order.
type Sink interface {
	Append(rec types.IssuanceRecord) error
}

// Store keeps records in a SQLite database.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	const schema = `CREATE TABLE IF NOT EXISTS issuance_events (
		seq     INTEGER PRIMARY KEY AUTOINCREMENT,
		kind    TEXT NOT NULL,
		account TEXT NOT NULL,
		amount  TEXT NOT NULL,
		price   TEXT NOT NULL,
		at      TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Append(rec types.IssuanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO issuance_events (kind, account, amount, price, at) VALUES (?, ?, ?, ?, ?)`,
		rec.Kind, rec.Account, rec.Amount, rec.Price, rec.Time.UTC(),
	)
	return err
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]types.IssuanceRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT seq, kind, account, amount, price, at FROM issuance_events ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.IssuanceRecord
	for rows.Next() {
		var rec types.IssuanceRecord
		var at time.Time
		if err := rows.Scan(&rec.Seq, &rec.Kind, &rec.Account, &rec.Amount, &rec.Price, &at); err != nil {
			return nil, err
		}
		rec.Time = at.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
