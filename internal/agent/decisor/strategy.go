// Package decisor turns free-form user input into a model.Classification by
// trying an ordered list of strategies: LLM decision, LLM analysis and the
// deterministic fallback.
package decisor

import (
	"context"
	"errors"

	"github.com/cepclima/server/internal/agent/model"
)

var (
	// ErrInvalidShape marks a strategy result that breaks the output contract.
	// The next strategy is tried.
	ErrInvalidShape = errors.New("decisor: result does not match the action contract")

	// ErrUntrustedExtraction marks an LLM result whose city looks like a
	// phrase fragment. The deterministic fallback is used directly.
	ErrUntrustedExtraction = errors.New("decisor: untrusted city extraction")
)

// Strategy is one classification attempt.
type Strategy interface {
	Name() string
	Classify(ctx context.Context, input string) (model.Classification, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc struct {
	ID string
	Fn func(ctx context.Context, input string) (model.Classification, error)
}

func (s StrategyFunc) Name() string {
	return s.ID
}

func (s StrategyFunc) Classify(ctx context.Context, input string) (model.Classification, error) {
	return s.Fn(ctx, input)
}
