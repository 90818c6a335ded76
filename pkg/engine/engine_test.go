package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEvaluateScripts(t *testing.T) {
	tests := []struct {
		name   string
		source string
		parts  []string
		shards []int // per part
		points []int // per part, over all shards
	}{
		{name: "empty", source: ""},
		{name: "whitespace", source: "  \n\t \n"},
		{name: "comments only", source: ";; nothing yet\n; (part \"x\" (sphere 4))\n"},
		{name: "arithmetic only", source: "(def r 4) (* r r)"},
		{
			name:   "sphere",
			source: `(part "ball" (sphere 10))`,
			parts:  []string{"ball"},
			shards: []int{1},
			points: []int{10},
		},
		{
			name:   "defs feed builtins",
			source: "(def n 6)\n(part \"a\" (cloud :points n))\n(part \"b\" (sphere (* n 2)))",
			parts:  []string{"a", "b"},
			shards: []int{1, 1},
			points: []int{6, 12},
		},
		{
			name:   "kebab-case names",
			source: "(def left-half (cloud :points 5))\n(part \"left\" left-half)",
			parts:  []string{"left"},
			shards: []int{1},
			points: []int{5},
		},
		{
			name:   "mixed-case keywords",
			source: `(part "wing" (cloud :Points 5 :AXIS :XZ))`,
			parts:  []string{"wing"},
			shards: []int{1},
			points: []int{5},
		},
		{
			name:   "mirror pairs the cloud with its reflection",
			source: `(part "m" (mirror (cloud :points 5)))`,
			parts:  []string{"m"},
			shards: []int{2},
			points: []int{10},
		},
		{
			// Two groups of four, each grown by tiers of 3, 2 and 1.
			name:   "distort keeps its groups",
			source: `(part "d" (distort (cloud :points 8 :extent 10)))`,
			parts:  []string{"d"},
			shards: []int{2},
			points: []int{20},
		},
		{
			name:   "mirrored distortion",
			source: `(part "d" (mirror (distort (cloud :points 8 :extent 10))))`,
			parts:  []string{"d"},
			shards: []int{4},
			points: []int{40},
		},
		{
			name:   "shards collects hulls",
			source: `(part "s" (shards (sphere 5) (mirror (sphere 6))))`,
			parts:  []string{"s"},
			shards: []int{3},
			points: []int{17},
		},
		{
			name:   "merge fuses shards",
			source: `(part "f" (merge (mirror (cloud :points 5)) (sphere 4)))`,
			parts:  []string{"f"},
			shards: []int{1},
			points: []int{14},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustEvaluate(t, NewEngine(), tt.source)
			if r.PartCount() != len(tt.parts) {
				t.Fatalf("got %d parts, want %d", r.PartCount(), len(tt.parts))
			}
			for i, p := range r.Parts {
				if p.Name != tt.parts[i] {
					t.Errorf("part %d: name %q, want %q", i, p.Name, tt.parts[i])
				}
				if len(p.Shards) != tt.shards[i] {
					t.Errorf("part %q: %d shards, want %d", p.Name, len(p.Shards), tt.shards[i])
				}
				if p.PointCount() != tt.points[i] {
					t.Errorf("part %q: %d points, want %d", p.Name, p.PointCount(), tt.points[i])
				}
			}
		})
	}
}

func TestEvaluateKeywordErrorsHavePosition(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		line    int
		col     int
		message string
	}{
		{
			name:    "detached colon",
			source:  "(part \"a\"\n  (sphere 4) : flat)",
			line:    2,
			col:     14,
			message: "must start with a letter",
		},
		{
			name:    "digit after colon",
			source:  "(cloud :5)",
			line:    1,
			col:     8,
			message: "must start with a letter",
		},
		{
			name:    "keyword runs into a comment",
			source:  "(cloud :points 4\n       :axis :yz;half\n)",
			line:    2,
			col:     14,
			message: "keyword :yz runs into ';'",
		},
		{
			name:    "keyword runs into a string",
			source:  `(part "a" (sphere 4) :shading"flat")`,
			line:    1,
			col:     22,
			message: "keyword :shading runs into",
		},
		{
			name:    "colon at end of input",
			source:  "(sphere 4)\n:",
			line:    2,
			col:     1,
			message: "end of input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected an eval error, got fatal: %v", err)
			}
			if r != nil {
				t.Error("expected nil recipe")
			}
			if len(evalErrs) != 1 {
				t.Fatalf("expected one eval error, got %v", evalErrs)
			}
			e := evalErrs[0]
			if e.Line != tt.line || e.Col != tt.col {
				t.Errorf("position %d:%d, want %d:%d", e.Line, e.Col, tt.line, tt.col)
			}
			if !strings.Contains(e.Message, tt.message) {
				t.Errorf("message %q, want it to contain %q", e.Message, tt.message)
			}
		})
	}
}

func TestEvaluateReaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unclosed part", "(part \"a\" (sphere 4)\n(part \"b\""},
		{"unknown builtin", `(part "a" (cube 4))`},
		{"undefined name", `(part "a" body)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected an eval error, got fatal: %v", err)
			}
			if r != nil {
				t.Error("expected nil recipe")
			}
			if len(evalErrs) == 0 || evalErrs[0].Message == "" {
				t.Fatalf("expected an eval error with a message, got %v", evalErrs)
			}
		})
	}
}

func TestEvaluateRecoversAfterError(t *testing.T) {
	eng := NewEngine()
	if _, evalErrs, _ := eng.Evaluate(`(part "a"`); len(evalErrs) == 0 {
		t.Fatal("expected an eval error")
	}
	r := mustEvaluate(t, eng, `(part "a" (sphere 6))`)
	if r.PartCount() != 1 {
		t.Errorf("expected one part after recovering, got %d", r.PartCount())
	}
}

func TestEvaluateReseedRestartsSequence(t *testing.T) {
	r := mustEvaluate(t, NewEngine(), `
(seed 3) (part "a" (cloud :points 5))
(seed 3) (part "b" (cloud :points 5))
(part "c" (cloud :points 5))
`)
	a, b, c := r.MustLookup("a").Points(), r.MustLookup("b").Points(), r.MustLookup("c").Points()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("point %d: %v after reseeding, want %v", i, b[i], a[i])
		}
	}
	if a[0] == c[0] {
		t.Error("expected the sequence to move on without a reseed")
	}
	if r.Seed != 3 {
		t.Errorf("recipe seed %d, want 3", r.Seed)
	}
}

func TestEvaluateVersionIncreases(t *testing.T) {
	eng := NewEngine()
	var last uint64
	for i := 0; i < 3; i++ {
		r := mustEvaluate(t, eng, `(part "a" (sphere 4))`)
		if r.Version <= last {
			t.Errorf("evaluation %d: version %d not after %d", i, r.Version, last)
		}
		last = r.Version
	}
}

func TestEvaluateSeedFromOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Seed = 99
	r := mustEvaluate(t, NewEngineWithOptions(opts), "")
	if r.Seed != 99 {
		t.Errorf("recipe seed = %d, want 99", r.Seed)
	}
}

func TestNewEngineWithOptionsDefaultsTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 0
	if got := NewEngineWithOptions(opts).Options().Timeout; got != EvalTimeout {
		t.Errorf("timeout = %s, want %s", got, EvalTimeout)
	}
}

func TestAwait(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 50 * time.Millisecond

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		ready bool // an outcome is waiting
		stale bool // a newer evaluation has begun
		want  error
	}{
		{name: "runaway script", ctx: context.Background(), want: ErrTimeout},
		{name: "superseded", ctx: context.Background(), ready: true, stale: true, want: ErrSuperseded},
		{name: "cancelled", ctx: cancelled, want: context.Canceled},
		{name: "delivered", ctx: context.Background(), ready: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewEngineWithOptions(opts)
			gen := eng.begin()
			if tt.stale {
				eng.begin()
			}
			ch := make(chan outcome, 1)
			if tt.ready {
				ch <- outcome{errors: []EvalError{{Message: "kept"}}}
			}

			_, evalErrs, err := eng.await(tt.ctx, ch, gen)
			if tt.want == nil {
				if err != nil || len(evalErrs) != 1 {
					t.Fatalf("expected the outcome to be delivered, got %v %v", evalErrs, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvalErrorString(t *testing.T) {
	if got := (EvalError{Line: 5, Message: "bad axis"}).Error(); got != "line 5: bad axis" {
		t.Errorf("Error() = %q", got)
	}
	if got := (EvalError{Message: "bad axis"}).Error(); got != "bad axis" {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short form", "line 3: part \"a\": expected points", 3, "expected points"},
		{"no line", "distort requires exactly one point cloud", 0, "distort requires"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %v", errs)
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}
