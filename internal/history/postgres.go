package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lib/pq"

	"github.com/ascvd-risk-mcp-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db   *sql.DB
	opts Options
}

// NewPostgresStore creates a new PostgreSQL history store.
// It expects the assessment_history table to already exist (created via migrations).
func NewPostgresStore(db *sql.DB, opts Options) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, opts: opts}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string, cfg *domain.DatabaseConfig, opts Options) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen, maxIdle, lifetime := 25, 5, 5*time.Minute
	if cfg != nil {
		if cfg.MaxOpenConns > 0 {
			maxOpen = cfg.MaxOpenConns
		}
		if cfg.MaxIdleConns > 0 {
			maxIdle = cfg.MaxIdleConns
		}
		if cfg.ConnMaxLifetime > 0 {
			lifetime = cfg.ConnMaxLifetime
		}
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	store, err := NewPostgresStore(db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

const pgRecordColumns = "id, owner_id, input, tier, reason, created_at, synced"

// Save stores a new record and applies retention in one transaction.
func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
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

func (s *PostgresStore) insert(ctx context.Context, db execer, record *Record) error {
	input, err := json.Marshal(record.Input)
	if err != nil {
		return fmt.Errorf("failed to encode input: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO assessment_history (`+pgRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		record.ID,
		record.OwnerID,
		input,
		string(record.Result.Tier),
		record.Result.Reason,
		record.CreatedAt,
		record.Synced,
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) prune(ctx context.Context, db execer) error {
	limit := s.opts.retention()
	if limit < 0 {
		return nil
	}

	_, err := db.ExecContext(ctx, `
		DELETE FROM assessment_history
		WHERE seq NOT IN (SELECT seq FROM assessment_history `+newestFirst+` LIMIT $1)
	`, limit)
	if err != nil {
		return fmt.Errorf("failed to apply retention: %w", err)
	}
	return nil
}

// History returns the most recent records first.
func (s *PostgresStore) History(ctx context.Context, limit int) ([]*Record, error) {
	// LIMIT NULL is no limit in PostgreSQL
	var arg interface{}
	if limit > 0 {
		arg = limit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+pgRecordColumns+" FROM assessment_history "+newestFirst+" LIMIT $1", arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return collect(rows)
}

// Get retrieves a record by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+pgRecordColumns+" FROM assessment_history WHERE id = $1", id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return rec, nil
}

// Clear removes every record.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM assessment_history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Count returns the total number of records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessment_history").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assessments: %w", err)
	}
	return count, nil
}

// Pending returns unsynced records, oldest first.
func (s *PostgresStore) Pending(ctx context.Context, limit int) ([]*Record, error) {
	var arg interface{}
	if limit > 0 {
		arg = limit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+pgRecordColumns+" FROM assessment_history WHERE NOT synced ORDER BY seq ASC LIMIT $1", arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending: %w", err)
	}
	return collect(rows)
}

// MarkSynced flags records as synced.
func (s *PostgresStore) MarkSynced(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE assessment_history SET synced = TRUE WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark synced: %w", err)
	}
	return nil
}

// ExportJSON exports every record to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.History(ctx, 0)
	if err != nil {
		return err
	}
	return writeExport(writer, all)
}

// ImportJSON imports records from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	export, err := readExport(reader)
	if err != nil {
		return 0, 0, err
	}

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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
