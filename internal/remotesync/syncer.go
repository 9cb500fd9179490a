// Package remotesync pushes locally saved assessments to the remote PostgreSQL store.
package remotesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/history"
)

// Defaults
const (
	DefaultBatchSize = 50
	DefaultSchedule  = "0 */5 * * * *" // every five minutes, with seconds field
	defaultRunLimit  = 2 * time.Minute
)

// Remote receives synced assessments
type Remote interface {
	UpsertBatch(ctx context.Context, records []*domain.AssessmentRecord) error
}

// Report summarizes one sync run
type Report struct {
	Pushed   int           `json:"pushed"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}

// Status describes the sync state of the local history
type Status struct {
	Enabled      bool       `json:"enabled"`
	Synced       bool       `json:"synced"`
	Pending      int        `json:"pending"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastPushed   int        `json:"last_pushed"`
	LastError    string     `json:"last_error,omitempty"`
	BreakerState string     `json:"breaker_state"`
}

// Options configures a Syncer
type Options struct {
	BatchSize      int
	BreakerTimeout time.Duration // how long the breaker stays open
}

// Syncer copies unsynced history records to the remote store through a circuit breaker.
type Syncer struct {
	store     history.Store
	remote    Remote
	breaker   *gobreaker.CircuitBreaker
	batchSize int
	logger    *logrus.Logger

	run sync.Mutex // one sync at a time

	mu         sync.RWMutex
	lastRun    time.Time
	lastPushed int
	lastErr    error

	cron *cron.Cron
}

// NewSyncer creates a syncer. remote may be nil, in which case every run reports
// domain.ErrSyncUnavailable.
func NewSyncer(store history.Store, remote Remote, opts Options, logger *logrus.Logger) *Syncer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 60 * time.Second
	}

	s := &Syncer{
		store:     store,
		remote:    remote,
		batchSize: opts.BatchSize,
		logger:    logger,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-sync",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return s
}

// Enabled reports whether a remote store is configured
func (s *Syncer) Enabled() bool {
	return s.remote != nil
}

// SyncOnce pushes every pending record in batches and marks them synced.
func (s *Syncer) SyncOnce(ctx context.Context) (Report, error) {
	if s.remote == nil {
		return Report{}, domain.ErrSyncUnavailable
	}

	s.run.Lock()
	defer s.run.Unlock()

	start := time.Now()
	report, err := s.push(ctx)
	report.Duration = time.Since(start)

	s.mu.Lock()
	s.lastRun = start
	s.lastPushed = report.Pushed
	s.lastErr = err
	s.mu.Unlock()

	fields := logrus.Fields{
		"pushed":   report.Pushed,
		"batches":  report.Batches,
		"duration": report.Duration,
	}
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Warn("Remote sync failed")
		return report, err
	}
	if report.Pushed > 0 {
		s.logger.WithFields(fields).Info("Remote sync completed")
	} else {
		s.logger.WithFields(fields).Debug("Remote sync found nothing to push")
	}
	return report, nil
}

func (s *Syncer) push(ctx context.Context) (Report, error) {
	var report Report

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		pending, err := s.store.Pending(ctx, s.batchSize)
		if err != nil {
			return report, fmt.Errorf("loading pending assessments: %w", err)
		}
		if len(pending) == 0 {
			return report, nil
		}

		_, err = s.breaker.Execute(func() (interface{}, error) {
			return nil, s.remote.UpsertBatch(ctx, pending)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return report, fmt.Errorf("%w: %v", domain.ErrSyncUnavailable, err)
			}
			return report, fmt.Errorf("pushing assessments: %w", err)
		}

		ids := make([]string, len(pending))
		for i, rec := range pending {
			ids[i] = rec.ID
		}
		if err := s.store.MarkSynced(ctx, ids...); err != nil {
			return report, fmt.Errorf("marking assessments synced: %w", err)
		}

		report.Pushed += len(pending)
		report.Batches++

		if len(pending) < s.batchSize {
			return report, nil
		}
	}
}

// Status reports whether every local record has been synced
func (s *Syncer) Status(ctx context.Context) (Status, error) {
	status := Status{
		Enabled:      s.Enabled(),
		BreakerState: s.breaker.State().String(),
	}

	pending, err := s.store.Pending(ctx, 0)
	if err != nil {
		return status, fmt.Errorf("loading pending assessments: %w", err)
	}
	status.Pending = len(pending)
	status.Synced = status.Pending == 0

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.lastRun.IsZero() {
		last := s.lastRun
		status.LastRun = &last
	}
	status.LastPushed = s.lastPushed
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}

	return status, nil
}

// Schedule registers a periodic sync. spec uses the six-field cron format (with seconds).
func (s *Syncer) Schedule(spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithSeconds())
	}

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
		defer cancel()
		_, _ = s.SyncOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("register sync task: %w", err)
	}

	s.logger.WithField("schedule", spec).Info("Remote sync scheduled")
	return nil
}

// Start starts the scheduler
func (s *Syncer) Start() {
	if s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("Sync scheduler started")
}

// Stop stops the scheduler and waits for a running sync to finish
func (s *Syncer) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("Sync scheduler stopped")
}
