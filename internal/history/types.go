// Package history provides the local assessment history: every saved classification
// together with the input it was computed from, newest first.
package history

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/identity"
)

// DefaultRetention is the number of records kept when no retention is configured
const DefaultRetention = 50

// Record is a saved assessment
type Record = domain.AssessmentRecord

// Store defines the interface for assessment history storage operations.
type Store interface {
	// Save assigns the record's ID (if empty), owner, creation time and unsynced state,
	// persists it, then drops records beyond the retention limit.
	Save(ctx context.Context, record *Record) error

	// History returns at most limit records, most recent first. A limit <= 0 returns all.
	History(ctx context.Context, limit int) ([]*Record, error)

	// Get retrieves a record by ID. Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Record, error)

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Pending returns at most limit unsynced records, oldest first.
	Pending(ctx context.Context, limit int) ([]*Record, error)

	// MarkSynced flags the given records as pushed to the remote store.
	MarkSynced(ctx context.Context, ids ...string) error

	// ExportJSON writes every record to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads an export, skipping records whose ID already exists.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}

// ExportVersion is written into every export
const ExportVersion = "1.0"

// Options configures a store
type Options struct {
	// Retention is the maximum number of records kept. Zero means DefaultRetention,
	// a negative value disables pruning.
	Retention int

	// Identity supplies the owner ID of saved records. May be nil.
	Identity identity.Provider
}

func (o Options) retention() int {
	if o.Retention == 0 {
		return DefaultRetention
	}
	return o.Retention
}

// stamp fills in the fields a store assigns at save time
func (o Options) stamp(ctx context.Context, record *Record, now time.Time) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.OwnerID == "" && o.Identity != nil {
		owner, err := o.Identity.DeviceID(ctx)
		if err != nil {
			return err
		}
		record.OwnerID = owner
	}
	record.CreatedAt = now
	record.Synced = false
	return nil
}
