// Package archive stores rendered reports as snapshots in SQLite or
// PostgreSQL.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when no snapshot matches
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one rendered report file
type Snapshot struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	ReportID    string    `json:"report_id"`
	Format      string    `json:"format"`
	GeneratedAt time.Time `json:"generated_at"`
	Size        int       `json:"size"`
	Payload     []byte    `json:"-"`
}

// Store persists snapshots
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the schema
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported archive driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive ping failed: %w", err)
	}
	s, err := New(ctx, db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and creates the schema.
// Safe to call multiple times.
func New(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	s := &Store{db: db, driver: driver}
	for _, stmt := range schema(driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return s, nil
}

func schema(driver string) []string {
	blob := "BLOB"
	if driver == DriverPostgres {
		blob = "BYTEA"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS report_snapshot (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    report_id TEXT NOT NULL,
    format TEXT NOT NULL,
    generated_at BIGINT NOT NULL,
    size INTEGER NOT NULL,
    payload ` + blob + ` NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_report_snapshot_lookup ON report_snapshot(kind, report_id, format, generated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_report_snapshot_generated ON report_snapshot(generated_at)`,
	}
}

// rebind turns ? placeholders into $n for postgres
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save stores a snapshot, filling in ID, time and size when unset
func (s *Store) Save(ctx context.Context, snap Snapshot) (Snapshot, error) {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	if snap.GeneratedAt.IsZero() {
		snap.GeneratedAt = time.Now()
	}
	snap.GeneratedAt = snap.GeneratedAt.UTC().Truncate(time.Millisecond)
	snap.Size = len(snap.Payload)
	if snap.Payload == nil {
		snap.Payload = []byte{}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO report_snapshot
		(id, kind, report_id, format, generated_at, size, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		snap.ID.String(), snap.Kind, snap.ReportID, snap.Format, snap.GeneratedAt.UnixMilli(), snap.Size, snap.Payload)
	if err != nil {
		return snap, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return snap, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner, withPayload bool) (Snapshot, error) {
	var (
		snap  Snapshot
		id    string
		milli int64
	)
	dest := []any{&id, &snap.Kind, &snap.ReportID, &snap.Format, &milli, &snap.Size}
	if withPayload {
		dest = append(dest, &snap.Payload)
	}
	if err := row.Scan(dest...); err != nil {
		return snap, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return snap, fmt.Errorf("invalid snapshot id %q: %w", id, err)
	}
	snap.ID = parsed
	snap.GeneratedAt = time.UnixMilli(milli).UTC()
	return snap, nil
}

// Latest returns the newest snapshot of a report in one format
func (s *Store) Latest(ctx context.Context, kind, reportID, format string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, kind, report_id, format, generated_at, size, payload
		FROM report_snapshot
		WHERE kind = ? AND report_id = ? AND format = ?
		ORDER BY generated_at DESC
		LIMIT 1`), kind, reportID, format)

	snap, err := scanSnapshot(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

// List returns the most recent snapshots without their payloads
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, kind, report_id, format, generated_at, size
		FROM report_snapshot
		ORDER BY generated_at DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	snaps := make([]Snapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snaps, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
