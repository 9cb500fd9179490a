package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ascvd-risk-mcp-server/internal/domain"
)

// AssessmentRepository persists synced assessments in the remote PostgreSQL database
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

const upsertAssessment = `
	INSERT INTO assessments (id, owner_id, input, tier, reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		owner_id = EXCLUDED.owner_id,
		input = EXCLUDED.input,
		tier = EXCLUDED.tier,
		reason = EXCLUDED.reason,
		synced_at = NOW()`

// Upsert inserts an assessment or refreshes an already synced one
func (r *AssessmentRepository) Upsert(ctx context.Context, record *domain.AssessmentRecord) error {
	_, err := r.db.Exec(ctx, upsertAssessment, upsertArgs(record)...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": record.ID,
			"error":         err,
		}).Error("Failed to upsert assessment")
		return fmt.Errorf("upserting assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id": record.ID,
		"owner_id":      record.OwnerID,
		"tier":          record.Result.Tier,
	}).Debug("Assessment upserted")

	return nil
}

// UpsertBatch upserts records in a single round trip
func (r *AssessmentRepository) UpsertBatch(ctx context.Context, records []*domain.AssessmentRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(upsertAssessment, upsertArgs(record)...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, record := range records {
		if _, err := results.Exec(); err != nil {
			r.log.WithFields(logrus.Fields{
				"assessment_id": record.ID,
				"error":         err,
			}).Error("Failed to upsert assessment in batch")
			return fmt.Errorf("upserting assessment %s: %w", record.ID, err)
		}
	}

	r.log.WithField("count", len(records)).Info("Assessment batch upserted")
	return nil
}

func upsertArgs(record *domain.AssessmentRecord) []any {
	return []any{
		record.ID,
		record.OwnerID,
		record.Input,
		string(record.Result.Tier),
		record.Result.Reason,
		record.CreatedAt,
	}
}

// GetByID retrieves an assessment by its ID
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	query := `
		SELECT id, owner_id, input, tier, reason, created_at
		FROM assessments
		WHERE id = $1`

	record, err := scanAssessment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assessment not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": id,
			"error":         err,
		}).Error("Failed to get assessment by ID")
		return nil, fmt.Errorf("getting assessment by ID: %w", err)
	}

	return record, nil
}

// ListByOwner returns an owner's assessments, most recent first
func (r *AssessmentRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.AssessmentRecord, error) {
	query := `
		SELECT id, owner_id, input, tier, reason, created_at
		FROM assessments
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.AssessmentRecord, 0)
	for rows.Next() {
		record, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessments: %w", err)
	}

	return records, nil
}

// CountByTier returns how many synced assessments fall in each tier
func (r *AssessmentRepository) CountByTier(ctx context.Context) (map[domain.RiskTier]int64, error) {
	rows, err := r.db.Query(ctx, "SELECT tier, COUNT(*) FROM assessments GROUP BY tier")
	if err != nil {
		return nil, fmt.Errorf("counting assessments: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RiskTier]int64)
	for rows.Next() {
		var tier string
		var count int64
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("scanning tier count: %w", err)
		}
		counts[domain.RiskTier(tier)] = count
	}

	return counts, rows.Err()
}

func scanAssessment(row pgx.Row) (*domain.AssessmentRecord, error) {
	var record domain.AssessmentRecord
	var tier string

	err := row.Scan(
		&record.ID,
		&record.OwnerID,
		&record.Input,
		&tier,
		&record.Result.Reason,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Result.Tier = domain.RiskTier(tier)
	record.Synced = true
	return &record, nil
}
