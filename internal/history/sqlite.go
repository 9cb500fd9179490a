package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ascvd-risk-mcp-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	opts   Options
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string, opts Options) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		opts:   opts,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// inTx runs fn in a transaction, committing only if fn succeeds
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// scanRecord scans a row into a Record.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var input []byte
	var tier string

	err := s.Scan(&rec.ID, &rec.OwnerID, &input, &tier, &rec.Result.Reason, &rec.CreatedAt, &rec.Synced)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(input, &rec.Input); err != nil {
		return nil, fmt.Errorf("failed to decode input of record %s: %w", rec.ID, err)
	}
	rec.Result.Tier = domain.RiskTier(tier)
	return rec, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		owner_id TEXT NOT NULL DEFAULT '',
		input TEXT NOT NULL,
		tier TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_synced ON assessments(synced);
	CREATE INDEX IF NOT EXISTS idx_assessments_owner ON assessments(owner_id);
	CREATE INDEX IF NOT EXISTS idx_assessments_created ON assessments(created_at DESC, seq DESC);
	`

	_, err := db.Exec(schema)
	return err
}

const recordColumns = "id, owner_id, input, tier, reason, created_at, synced"

// newestFirst orders records by creation time; seq breaks ties between equal timestamps
const newestFirst = "ORDER BY created_at DESC, seq DESC"

// Save stores a new record and applies retention in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	if err := s.opts.stamp(ctx, record, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to resolve owner: %w", err)
	}

	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.insert(ctx, tx, record); err != nil {
			return err
		}
		return s.prune(ctx, tx)
	})
}

func (s *SQLiteStore) insert(ctx context.Context, db execer, record *Record) error {
	input, err := json.Marshal(record.Input)
	if err != nil {
		return fmt.Errorf("failed to encode input: %w", err)
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO assessments ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		record.ID,
		record.OwnerID,
		string(input),
		string(record.Result.Tier),
		record.Result.Reason,
		record.CreatedAt.UTC(),
		record.Synced,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// prune keeps only the newest records within the retention limit
func (s *SQLiteStore) prune(ctx context.Context, db execer) error {
	limit := s.opts.retention()
	if limit < 0 {
		return nil
	}

	_, err := db.ExecContext(ctx, `
		DELETE FROM assessments
		WHERE seq NOT IN (SELECT seq FROM assessments `+newestFirst+` LIMIT ?)
	`, limit)
	if err != nil {
		return fmt.Errorf("failed to apply retention: %w", err)
	}
	return nil
}

// History returns the most recent records first.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM assessments "+newestFirst+" LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return collect(rows)
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM assessments WHERE id = ?", id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// Clear removes every record.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM assessments"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count)
	return count, err
}

// Pending returns unsynced records, oldest first.
func (s *SQLiteStore) Pending(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM assessments WHERE synced = 0 ORDER BY seq ASC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending: %w", err)
	}
	return collect(rows)
}

// MarkSynced flags records as synced.
func (s *SQLiteStore) MarkSynced(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE assessments SET synced = 1 WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("failed to mark synced: %w", err)
	}
	return nil
}

// ExportJSON exports every record to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.History(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	return writeExport(writer, all)
}

// ImportJSON imports records from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	export, err := readExport(reader)
	if err != nil {
		return 0, 0, err
	}

	// exports are newest first; insert oldest first to keep the order
	for i := len(export.Records) - 1; i >= 0; i-- {
		rec := export.Records[i]

		if rec.ID != "" {
			if _, err := s.Get(ctx, rec.ID); err == nil {
				skipped++
				continue
			} else if !errors.Is(err, domain.ErrNotFound) {
				return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
			}
		}

		if err := prepareImported(ctx, s.opts, rec); err != nil {
			return imported, skipped, err
		}
		if err := s.insert(ctx, s.db, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, s.prune(ctx, s.db)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func collect(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()

	result := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func writeExport(writer io.Writer, records []*Record) error {
	export := &Export{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(records),
		Records:    records,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func readExport(reader io.Reader) (*Export, error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return &export, nil
}

// prepareImported keeps the exported identity of a record and fills in whatever is missing
func prepareImported(ctx context.Context, opts Options, rec *Record) error {
	created, synced := rec.CreatedAt, rec.Synced
	if err := opts.stamp(ctx, rec, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to resolve owner: %w", err)
	}
	if !created.IsZero() {
		rec.CreatedAt = created.UTC()
	}
	rec.Synced = synced
	return nil
}
