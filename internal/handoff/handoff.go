// Package handoff encodes an assessment into a single URL-safe text blob so a result
// screen can be reached by link and re-render the classification from it.
package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ascvd-risk-mcp-server/internal/domain"
)

// ErrMalformed is returned for blobs that do not decode to an envelope
var ErrMalformed = errors.New("malformed hand-off payload")

// Envelope is what travels between the input and result screens
type Envelope struct {
	ID        string                      `json:"id,omitempty"`
	Input     domain.ClinicalInput        `json:"input"`
	Result    domain.ClassificationResult `json:"result"`
	CreatedAt time.Time                   `json:"created_at"`
}

// FromRecord builds an envelope for a saved assessment
func FromRecord(rec *domain.AssessmentRecord) Envelope {
	return Envelope{
		ID:        rec.ID,
		Input:     rec.Input,
		Result:    rec.Result,
		CreatedAt: rec.CreatedAt,
	}
}

// Encode serializes the envelope to JSON and escapes it for use in a query string.
func Encode(env Envelope) (string, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode hand-off: %w", err)
	}
	return url.QueryEscape(string(payload)), nil
}

// Decode reverses Encode. The tier must be one of the known tiers.
func Decode(blob string) (*Envelope, error) {
	raw, err := url.QueryUnescape(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &env, nil
}
