package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

type sqliteRow struct {
	Record string `db:"record"`
}

func sqliteDSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		incident_id INTEGER NOT NULL,
		closed_at INTEGER NOT NULL,
		kind TEXT NOT NULL,
		state TEXT NOT NULL,
		ambulance TEXT,
		hospital TEXT,
		record TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_incidents_closed ON incidents(closed_at);`
	_, err := s.db.Exec(schema)
	return err
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO incidents (incident_id, closed_at, kind, state, ambulance, hospital, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.IncidentID, rec.ClosedAt.UnixNano(), rec.Kind.String(), rec.State.String(),
		rec.Ambulance, rec.Hospital, string(b))
	return err
}

// Query returns records matching q. Time, kind and state are filtered in SQL,
// provider involvement on the decoded record.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT record FROM incidents WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND closed_at >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND closed_at <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Kind != nil {
		query += ` AND kind = ?`
		args = append(args, q.Kind.String())
	}
	if q.State != nil {
		query += ` AND state = ?`
		args = append(args, q.State.String())
	}
	query += ` ORDER BY closed_at, id`

	var rows []sqliteRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	res := make([]Record, 0, len(rows))
	for _, row := range rows {
		var r Record
		if err := json.Unmarshal([]byte(row.Record), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		if q.ProviderID != "" && !r.Involves(q.ProviderID) {
			continue
		}
		res = append(res, r)
	}
	return limit(res, q.Limit), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
