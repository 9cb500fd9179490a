// Package identity provides the stable per-device owner identifier attached to saved assessments.
package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultFileName is the file the FileProvider keeps the identifier in
const DefaultFileName = "device_id"

// Provider supplies an opaque identifier that is stable for the lifetime of a device installation.
type Provider interface {
	DeviceID(ctx context.Context) (string, error)
}

// FileProvider persists a random UUID in a file. The identifier is created on first use
// and read back on every later start.
type FileProvider struct {
	path string

	mu sync.Mutex
	id string
}

// NewFileProvider creates a provider that keeps its identifier under dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{path: filepath.Join(dir, DefaultFileName)}
}

// Path returns the location of the identifier file
func (p *FileProvider) Path() string {
	return p.path
}

// DeviceID returns the stored identifier, generating and persisting one if none exists yet.
func (p *FileProvider) DeviceID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.id != "" {
		return p.id, nil
	}

	data, err := os.ReadFile(p.path)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if _, perr := uuid.Parse(id); perr == nil {
			p.id = id
			return p.id, nil
		}
		// unreadable content is replaced with a fresh identifier
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("failed to read device id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write device id: %w", err)
	}

	p.id = id
	return p.id, nil
}

// Static is a Provider that always returns the same identifier.
type Static string

// DeviceID returns the fixed identifier
func (s Static) DeviceID(context.Context) (string, error) {
	return string(s), nil
}
