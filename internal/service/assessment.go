package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ascvd-risk-mcp-server/internal/cache"
	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/history"
)

const evaluationCacheNamespace = "evaluation"

// AssessmentService evaluates clinical inputs and keeps the assessment history
type AssessmentService struct {
	logger   *logrus.Logger
	store    history.Store
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewAssessmentService creates a new assessment service. resultCache may be nil.
func NewAssessmentService(logger *logrus.Logger, store history.Store, resultCache cache.Cache, cacheTTL time.Duration) *AssessmentService {
	return &AssessmentService{
		logger:   logger,
		store:    store,
		cache:    resultCache,
		cacheTTL: cacheTTL,
	}
}

// Evaluate classifies the input and derives the recommendation and intervention projections.
// Nothing is persisted.
func (s *AssessmentService) Evaluate(ctx context.Context, input domain.ClinicalInput) *domain.Evaluation {
	key, err := cache.Fingerprint(evaluationCacheNamespace, input)
	if err != nil {
		s.logger.WithError(err).Debug("Evaluation cache key unavailable")
	}

	if key != "" && s.cache != nil {
		if cached := s.cachedEvaluation(ctx, key); cached != nil {
			return cached
		}
	}

	eval := BuildEvaluation(input)

	s.logger.WithFields(logrus.Fields{
		"tier":        eval.Classification.Tier,
		"reason":      eval.Classification.Reason,
		"projections": len(eval.Projections),
	}).Debug("Risk evaluated")

	if key != "" && s.cache != nil {
		payload, err := json.Marshal(eval)
		if err == nil {
			err = s.cache.Set(ctx, key, payload, s.cacheTTL)
		}
		if err != nil {
			s.logger.WithError(err).Warn("Failed to cache evaluation")
		}
	}

	return eval
}

// BuildEvaluation runs the classifier, recommender and simulator on one input
func BuildEvaluation(input domain.ClinicalInput) *domain.Evaluation {
	classification := Classify(input)
	info := classification.Info()

	return &domain.Evaluation{
		Input:          input,
		Classification: classification,
		TierInfo:       info,
		Recommendation: Recommend(info, input.LDL),
		Projections:    Simulate(input),
	}
}

func (s *AssessmentService) cachedEvaluation(ctx context.Context, key string) *domain.Evaluation {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("Evaluation cache lookup failed")
		return nil
	}
	if !ok {
		return nil
	}

	var eval domain.Evaluation
	if err := json.Unmarshal(payload, &eval); err != nil {
		s.logger.WithError(err).Warn("Discarding corrupt cached evaluation")
		_ = s.cache.Delete(ctx, key)
		return nil
	}
	if eval.Projections == nil {
		eval.Projections = []domain.InterventionProjection{}
	}
	return &eval
}

// Assess evaluates the input and saves it to the history.
// A save failure never discards the evaluation: the assessment is returned with
// Saved=false together with an error wrapping domain.ErrPersistence.
func (s *AssessmentService) Assess(ctx context.Context, input domain.ClinicalInput) (*domain.Assessment, error) {
	eval := s.Evaluate(ctx, input)
	assessment := &domain.Assessment{Evaluation: *eval}

	record := &history.Record{
		Input:  input,
		Result: eval.Classification,
	}
	if err := s.store.Save(ctx, record); err != nil {
		s.logger.WithError(err).WithField("tier", eval.Classification.Tier).Error("Failed to save assessment")
		return assessment, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	assessment.RecordID = record.ID
	assessment.Saved = true

	s.logger.WithFields(logrus.Fields{
		"record_id": record.ID,
		"tier":      eval.Classification.Tier,
	}).Info("Assessment saved")

	return assessment, nil
}

// History returns saved assessments, most recent first
func (s *AssessmentService) History(ctx context.Context, limit int) ([]*history.Record, error) {
	records, err := s.store.History(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

// Get returns one saved assessment record
func (s *AssessmentService) Get(ctx context.Context, id string) (*history.Record, error) {
	return s.store.Get(ctx, id)
}

// ClearHistory removes every saved assessment
func (s *AssessmentService) ClearHistory(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Info("Assessment history cleared")
	return nil
}

// Replay re-evaluates a saved record with the current rules
func (s *AssessmentService) Replay(ctx context.Context, id string) (*domain.Assessment, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	eval := s.Evaluate(ctx, record.Input)
	if eval.Classification.Tier != record.Result.Tier {
		s.logger.WithFields(logrus.Fields{
			"record_id":  id,
			"saved_tier": record.Result.Tier,
			"new_tier":   eval.Classification.Tier,
		}).Warn("Replayed assessment classifies differently than when it was saved")
	}

	return &domain.Assessment{
		Evaluation: *eval,
		RecordID:   record.ID,
		Saved:      true,
	}, nil
}

// ExportHistory writes the history as JSON
func (s *AssessmentService) ExportHistory(ctx context.Context, w io.Writer) error {
	return s.store.ExportJSON(ctx, w)
}

// ImportHistory reads a JSON export into the history
func (s *AssessmentService) ImportHistory(ctx context.Context, r io.Reader) (imported int, skipped int, err error) {
	imported, skipped, err = s.store.ImportJSON(ctx, r)
	s.logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("History import finished")
	return imported, skipped, err
}
