package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/nasum/pkg/recipe"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned to an evaluation that finished after a
	// newer one was started on the same engine.
	ErrSuperseded = errors.New("engine: evaluation superseded by a newer request")
)

// outcome carries one evaluation's results back from its goroutine.
type outcome struct {
	recipe *recipe.Recipe
	errors []EvalError
	err    error
}

// begin starts a new generation and returns its number.
func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

// latest reports whether gen is still the newest generation.
func (e *Engine) latest(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// await waits for the outcome of generation gen. A script that outlives
// the timeout or the context keeps running in its goroutine; its outcome
// is dropped into the buffered channel and never read.
func (e *Engine) await(ctx context.Context, ch <-chan outcome, gen uint64) (*recipe.Recipe, []EvalError, error) {
	timer := time.NewTimer(e.opts.Timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if !e.latest(gen) {
			return nil, nil, ErrSuperseded
		}
		return out.recipe, out.errors, out.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.opts.Timeout)
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("engine: %w", ctx.Err())
	}
}
