package domain

import (
	"context"
	"time"
)

// Classifier assigns a risk level to a set of case features.
// The trained model is an external collaborator; Kestrel ships a
// rule-based implementation and treats the result as authoritative.
type Classifier interface {
	Classify(ctx context.Context, features *CaseFeatures) (RiskLevel, error)
}

// Generator is the narrative-text collaborator: free-text prompt in,
// free-text narrative out. Content is treated as opaque and
// non-deterministic; only prompt construction is deterministic.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NarrativeConfig holds configuration for the narrative collaborator.
type NarrativeConfig struct {
	// BaseURL of the Ollama-compatible chat endpoint.
	BaseURL string

	// Model name to request, e.g. "llama3".
	Model string

	// Timeout per generation call.
	Timeout time.Duration

	// Retries is the number of additional attempts after a failed call.
	// Kept at 1: a single bounded retry before giving up.
	Retries int
}

// ReportConfig holds configuration for document assembly.
type ReportConfig struct {
	// OutputDir is where rendered artifacts are written.
	OutputDir string

	// MinArtifactSize is the corruption-warning threshold in bytes.
	// An artifact below it is logged as suspect but still returned.
	MinArtifactSize int64

	// TimeZone is the IANA name of the reporting time zone.
	TimeZone string
}
