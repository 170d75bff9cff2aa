package tables

import (
	"context"
	"fmt"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// FirstOf runs extractors in order and returns the first non-empty result.
type FirstOf struct {
	steps []Extractor
	log   *logging.Logger
}

// NewFirstOf creates a fallback chain of extractors.
func NewFirstOf(log *logging.Logger, steps ...Extractor) *FirstOf {
	if log == nil {
		log = logging.Nop()
	}
	return &FirstOf{steps: steps, log: log}
}

// Extract implements Extractor.
func (c *FirstOf) Extract(ctx context.Context, path string) ([]Fragment, error) {
	var lastErr error
	for i, step := range c.steps {
		frags, err := step.Extract(ctx, path)
		if err == nil && len(frags) > 0 {
			return frags, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			c.log.Warn("Table extractor failed, trying next", "step", i, "error", err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	if len(c.steps) == 0 {
		return nil, fmt.Errorf("no table extractor configured")
	}
	return nil, nil
}
