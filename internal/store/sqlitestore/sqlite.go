// Package sqlitestore keeps records in a single SQLite table.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dkeye/dicetable/internal/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open prepares a SQLite database at path and ensures the schema exists.
// ":memory:" gives a throwaway database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS records (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			room_id TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (kind, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_room ON records(kind, room_id);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind store.Kind, id string) (store.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT kind, id, room_id, data, updated_at FROM records WHERE kind = ? AND id = ?`,
		string(kind), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, store.ErrNotFound
	}
	return rec, err
}

func (s *Store) Put(ctx context.Context, rec store.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (kind, id, room_id, data, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(kind, id) DO UPDATE SET
			room_id = excluded.room_id,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		string(rec.Kind), rec.ID, rec.RoomID, string(rec.Data), unixNano(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, kind store.Kind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListByRoom(ctx context.Context, kind store.Kind, roomID string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, id, room_id, data, updated_at FROM records WHERE kind = ? AND room_id = ? ORDER BY id`,
		string(kind), roomID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []store.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (store.Record, error) {
	var (
		rec     store.Record
		kind    string
		data    string
		updated int64
	)
	if err := sc.Scan(&kind, &rec.ID, &rec.RoomID, &data, &updated); err != nil {
		return store.Record{}, err
	}
	rec.Kind = store.Kind(kind)
	rec.Data = []byte(data)
	if updated != 0 {
		rec.UpdatedAt = time.Unix(0, updated).UTC()
	}
	return rec, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
