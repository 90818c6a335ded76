// Package engine provides the Lisp evaluation engine for nasum.
// It wraps zygomys in a sandboxed environment and produces a sculpture
// Recipe from user source code.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/point"
	"github.com/chazu/nasum/pkg/recipe"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// CloudDefaults are used by the cloud builtin for omitted arguments.
type CloudDefaults struct {
	PointsPerBatch int
	Batches        int
	Extent         float64
	MaxStep        float64
	Weight         float64
	Axis           point.Axis
}

// DistortDefaults are used by the distort builtin for omitted arguments.
type DistortDefaults struct {
	Intensity     float64
	Scale         float64
	GroupSize     int
	TierIncrement int
	MaxTiers      int
	LatticeSize   int
}

// Options configure an Engine.
type Options struct {
	Seed    int64         // initial seed of every evaluation
	Shading mesh.Shading  // shading of parts that do not name one
	Timeout time.Duration // hard limit for a single evaluation
	Cloud   CloudDefaults
	Distort DistortDefaults
}

// DefaultOptions returns the options used by NewEngine.
func DefaultOptions() Options {
	return Options{
		Seed:    7,
		Shading: mesh.Smooth,
		Timeout: EvalTimeout,
		Cloud: CloudDefaults{
			PointsPerBatch: 5,
			Batches:        1,
			Extent:         100,
			MaxStep:        5,
			Weight:         1,
			Axis:           point.AxisYZ,
		},
		Distort: DistortDefaults{
			Intensity:     10,
			Scale:         0.0001,
			GroupSize:     4,
			TierIncrement: -1,
			MaxTiers:      5,
			LatticeSize:   8,
		},
	}
}

// Engine wraps the zygomys interpreter for sculpture evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh random source, so the same source and
// seed always produce the same recipe.
type Engine struct {
	opts       Options
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine with DefaultOptions.
func NewEngine() *Engine {
	return NewEngineWithOptions(DefaultOptions())
}

// NewEngineWithOptions creates a new Engine. A zero timeout means
// EvalTimeout.
func NewEngineWithOptions(opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = EvalTimeout
	}
	return &Engine{opts: opts}
}

// Options returns the engine's options.
func (e *Engine) Options() Options {
	return e.opts
}

// Evaluate takes Lisp source code and produces a new Recipe.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns recipe + nil errors + nil error
//   - On parse/eval failure: returns nil recipe + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*recipe.Recipe, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate, giving up early when ctx is done.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*recipe.Recipe, []EvalError, error) {
	gen := e.begin()
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		r, evalErrs, err := e.evaluate(source, gen)
		ch <- outcome{recipe: r, errors: evalErrs, err: err}
	}()

	return e.await(ctx, ch, gen)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string, gen uint64) (*recipe.Recipe, []EvalError, error) {
	s := newSession(e.opts)
	s.recipe.Version = gen

	// Empty source is a valid program that produces an empty recipe.
	if strings.TrimSpace(source) == "" {
		return s.recipe, nil, nil
	}

	src, perr := preprocessSource(source)
	if perr != nil {
		return nil, []EvalError{*perr}, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, s)

	err := env.LoadString(src)
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	return s.recipe, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
