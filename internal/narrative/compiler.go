package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Compiler invokes the narrative collaborator with a per-call timeout and
// a single bounded retry. A request that still fails surfaces
// NarrativeUnavailableError and the whole report or summary fails; no
// partial document is returned.
type Compiler struct {
	gen domain.Generator
	cfg domain.NarrativeConfig
}

// NewCompiler creates a compiler around a generator.
func NewCompiler(gen domain.Generator, cfg domain.NarrativeConfig) *Compiler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Compiler{gen: gen, cfg: cfg}
}

// Narrate sends the prompt to the generator and returns the normalized
// narrative text.
func (c *Compiler) Narrate(ctx context.Context, prompt string) (string, error) {
	if c.gen == nil {
		return "", &domain.NarrativeUnavailableError{Err: fmt.Errorf("no generator configured")}
	}

	var lastErr error
	attempts := c.cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		text, err := c.gen.Generate(callCtx, prompt)
		cancel()

		if err == nil {
			return NormalizeEmphasis(text), nil
		}
		lastErr = err
		slog.Warn("narrative generation attempt failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		if ctx.Err() != nil {
			break
		}
	}

	return "", &domain.NarrativeUnavailableError{Err: lastErr}
}

var emphasisPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)

// NormalizeEmphasis rewrites markdown-style **bold** markers into the
// document format's inline bold tags. It is the only transformation
// applied to generated text.
func NormalizeEmphasis(text string) string {
	return emphasisPattern.ReplaceAllString(text, "<b>$1</b>")
}
