package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/recipe"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func mustEvaluate(t *testing.T, eng *Engine, source string) *recipe.Recipe {
	t.Helper()
	r, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if r == nil {
		t.Fatal("expected non-nil recipe")
	}
	return r
}

func mustPart(t *testing.T, r *recipe.Recipe, name string) *recipe.Part {
	t.Helper()
	p := r.Lookup(name)
	if p == nil {
		t.Fatalf("expected part named %q", name)
	}
	return p
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func TestExplicitPoints(t *testing.T) {
	eng := NewEngine()

	source := `
(sculpture "block")
(part "tetra"
  (points (vec3 0 0 0) (vec3 1 0 0) (point 0 1 0 0.5) (point (vec3 0 0 1) :weight 0.25)))
`
	r := mustEvaluate(t, eng, source)
	if r.Name != "block" {
		t.Errorf("expected sculpture name 'block', got %q", r.Name)
	}
	p := mustPart(t, r, "tetra")
	pts := p.Points()
	if len(p.Shards) != 1 || len(pts) != 4 {
		t.Fatalf("expected 4 points in one shard, got %d in %d", len(pts), len(p.Shards))
	}
	if pts[1].Position.X != 1 {
		t.Errorf("expected second point at x=1, got %v", pts[1])
	}
	if pts[0].Weight != 1 {
		t.Errorf("expected default weight 1, got %g", pts[0].Weight)
	}
	if pts[2].Weight != 0.5 {
		t.Errorf("expected weight 0.5, got %g", pts[2].Weight)
	}
	if pts[3].Weight != 0.25 {
		t.Errorf("expected weight 0.25, got %g", pts[3].Weight)
	}
	if p.Shading != mesh.Smooth {
		t.Errorf("expected default smooth shading, got %s", p.Shading)
	}
}

func TestVariableReference(t *testing.T) {
	eng := NewEngine()

	source := `
(def n 7)
(def body (cloud :points n :extent 10))
(part "body" body)
`
	r := mustEvaluate(t, eng, source)
	if got := mustPart(t, r, "body").PointCount(); got != 7 {
		t.Errorf("expected 7 points (from variable), got %d", got)
	}
}

func TestCloudStaysOnPositiveSide(t *testing.T) {
	eng := NewEngine()

	source := `(part "wing" (cloud :points 20 :batches 3 :extent 10 :step 2 :axis :xz))`
	r := mustEvaluate(t, eng, source)
	pts := mustPart(t, r, "wing").Points()
	if len(pts) != 60 {
		t.Fatalf("expected 60 points, got %d", len(pts))
	}
	for i, pt := range pts {
		if pt.Position.Y < 0 || pt.Position.Y > 10 {
			t.Errorf("point %d: y=%g outside [0, 10]", i, pt.Position.Y)
		}
		if math.Abs(pt.Position.X) > 10 || math.Abs(pt.Position.Z) > 10 {
			t.Errorf("point %d: %v outside extent", i, pt)
		}
	}
}

func TestMirrorKeepsSidesApart(t *testing.T) {
	eng := NewEngine()

	source := `
(def half (cloud :points 5 :extent 10))
(part "whole" (mirror half :yz))
`
	r := mustEvaluate(t, eng, source)
	p := mustPart(t, r, "whole")
	if len(p.Shards) != 2 {
		t.Fatalf("expected the cloud and its reflection as 2 shards, got %d", len(p.Shards))
	}
	orig, refl := p.Shards[0], p.Shards[1]
	if len(orig) != 5 || len(refl) != 5 {
		t.Fatalf("expected 5 points per side, got %d and %d", len(orig), len(refl))
	}
	for i := range orig {
		a, b := orig[i].Position, refl[i].Position
		if a.X != -b.X || a.Y != b.Y || a.Z != b.Z {
			t.Errorf("point %d: %v is not the reflection of %v", i, b, a)
		}
		if a.X < 0 || b.X > 0 {
			t.Errorf("point %d: sides cross the plane: %v and %v", i, a, b)
		}
	}
}

func TestMirroredDistortionOneShardPerGroupAndSide(t *testing.T) {
	eng := NewEngine()

	source := `(part "p" (distort (mirror (cloud :points 8 :batches 2 :extent 20 :step 5 :axis :yz) :yz)))`
	r := mustEvaluate(t, eng, source)
	p := mustPart(t, r, "p")

	// 16 points and their 16 reflections make 8 groups of 4. Each group is
	// hulled on its own, and its undistorted first 4 points stay on one
	// side of the plane.
	if len(p.Shards) != 8 {
		t.Fatalf("expected 32 points in 8 groups, got %d shards", len(p.Shards))
	}
	for i, sh := range p.Shards {
		pos, neg := 0, 0
		for _, pt := range sh[:4] {
			if pt.Position.X > 0 {
				pos++
			} else if pt.Position.X < 0 {
				neg++
			}
		}
		if pos > 0 && neg > 0 {
			t.Errorf("group %d spans the plane: %v", i, sh[:4])
		}
	}

	// Five points per side: each side is one group, never four from one
	// side and six straddling the plane.
	r = mustEvaluate(t, eng, `(part "p" (distort (mirror (cloud :points 5 :extent 10 :axis :yz) :yz)))`)
	p = mustPart(t, r, "p")
	if len(p.Shards) != 2 {
		t.Fatalf("expected one group per side, got %d shards", len(p.Shards))
	}
	for i, sh := range p.Shards {
		for _, pt := range sh[:5] {
			if (i == 0 && pt.Position.X < 0) || (i == 1 && pt.Position.X > 0) {
				t.Errorf("side %d holds %v", i, pt)
			}
		}
	}

	r = mustEvaluate(t, eng, `(part "p" (mirror (distort (cloud :points 8 :batches 2 :extent 20 :step 5 :axis :yz) :intensity 1) :yz))`)
	p = mustPart(t, r, "p")
	if len(p.Shards) != 8 {
		t.Fatalf("expected 4 groups on each side, got %d shards", len(p.Shards))
	}
	for i := 0; i < len(p.Shards); i += 2 {
		orig, refl := p.Shards[i], p.Shards[i+1]
		if len(orig) != 10 || len(refl) != 10 {
			t.Fatalf("group %d: %d and %d points, want a group of 4 grown to 10 on both sides", i/2, len(orig), len(refl))
		}
		for j := range orig {
			if orig[j].Position.X != -refl[j].Position.X {
				t.Errorf("group %d point %d: %v does not mirror %v", i/2, j, refl[j], orig[j])
			}
		}
	}
}

func TestDistortTiers(t *testing.T) {
	eng := NewEngine()

	// Two groups of four grow tiers of 3, 2 and 1 points each.
	source := `(part "blob" (distort (cloud :points 8 :extent 10) :intensity 1 :scale 0.1))`
	r := mustEvaluate(t, eng, source)
	p := mustPart(t, r, "blob")
	if len(p.Shards) != 2 {
		t.Errorf("expected one shard per group, got %d", len(p.Shards))
	}
	if got := p.PointCount(); got != 20 {
		t.Errorf("expected 20 points, got %d", got)
	}
}

func TestDistortWithDrift(t *testing.T) {
	eng := NewEngine()

	source := `(part "blob" (distort (cloud :points 4 :extent 10) :group 4 :tiers 2 :drift (vec3 0 1 0)))`
	r := mustEvaluate(t, eng, source)
	if got := mustPart(t, r, "blob").PointCount(); got != 7 {
		t.Errorf("expected 7 points, got %d", got)
	}
}

func TestSphereTranslateMerge(t *testing.T) {
	eng := NewEngine()

	source := `
(def ball (sphere 12 :radius 2))
(part "pair" (merge ball (translate ball (vec3 0 10 0))))
`
	r := mustEvaluate(t, eng, source)
	pts := mustPart(t, r, "pair").Points()
	if len(pts) != 24 {
		t.Fatalf("expected 24 points, got %d", len(pts))
	}
	for i := 0; i < 12; i++ {
		if d := pts[i].Position.Length(); math.Abs(d-2) > 1e-9 {
			t.Errorf("point %d: distance %g from origin, want 2", i, d)
		}
		dy := pts[i+12].Position.Y - pts[i].Position.Y
		if math.Abs(dy-10) > 1e-9 {
			t.Errorf("point %d: translated by %g, want 10", i+12, dy)
		}
	}
}

func TestTranslateMovesEveryShard(t *testing.T) {
	eng := NewEngine()

	source := `(part "pair" (translate (mirror (sphere 6 :center (vec3 5 0 0))) (vec3 0 10 0)))`
	p := mustPart(t, mustEvaluate(t, eng, source), "pair")
	if len(p.Shards) != 2 {
		t.Fatalf("expected translate to keep 2 shards, got %d", len(p.Shards))
	}
	for i, sh := range p.Shards {
		for _, pt := range sh {
			if math.Abs(math.Abs(pt.Position.X)-5) > 1+1e-9 || math.Abs(pt.Position.Y-10) > 1+1e-9 {
				t.Errorf("shard %d: %v is not on a unit sphere around (±5, 10, 0)", i, pt)
			}
		}
	}
}

func TestPartShading(t *testing.T) {
	eng := NewEngine()

	source := `(part "facets" (sphere 8) :shading :flat)`
	r := mustEvaluate(t, eng, source)
	if p := mustPart(t, r, "facets"); p.Shading != mesh.Flat {
		t.Errorf("expected flat shading, got %s", p.Shading)
	}
}

func TestDefaultShadingFromOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Shading = mesh.Flat
	eng := NewEngineWithOptions(opts)

	r := mustEvaluate(t, eng, `(part "facets" (sphere 8))`)
	if p := mustPart(t, r, "facets"); p.Shading != mesh.Flat {
		t.Errorf("expected flat shading, got %s", p.Shading)
	}
}

func TestPartsKeepDeclarationOrder(t *testing.T) {
	eng := NewEngine()

	source := `
(part "c" (sphere 4))
(part "a" (sphere 4))
(part "b" (sphere 4))
`
	r := mustEvaluate(t, eng, source)
	var names []string
	for _, p := range r.Parts {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, ","); got != "c,a,b" {
		t.Errorf("expected parts in order c,a,b, got %s", got)
	}
}

// ---------------------------------------------------------------------------
// Seeding
// ---------------------------------------------------------------------------

func TestSameSourceSamePoints(t *testing.T) {
	eng := NewEngine()
	source := `(part "body" (distort (cloud :points 8 :extent 20)))`

	a := mustPart(t, mustEvaluate(t, eng, source), "body").Points()
	b := mustPart(t, mustEvaluate(t, eng, source), "body").Points()
	if len(a) != len(b) {
		t.Fatalf("point counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("point %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSeedChangesPoints(t *testing.T) {
	eng := NewEngine()

	a := mustEvaluate(t, eng, `(seed "moss") (part "body" (cloud :points 6))`)
	b := mustEvaluate(t, eng, `(seed "stone") (part "body" (cloud :points 6))`)
	if a.Seed == b.Seed {
		t.Fatalf("expected different seeds, both %d", a.Seed)
	}
	if mustPart(t, a, "body").Points()[0] == mustPart(t, b, "body").Points()[0] {
		t.Error("expected different seeds to produce different points")
	}
}

func TestSeedInteger(t *testing.T) {
	eng := NewEngine()

	r := mustEvaluate(t, eng, `(seed 1234)`)
	if r.Seed != 1234 {
		t.Errorf("expected seed 1234, got %d", r.Seed)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"duplicate part", `(part "a" (sphere 4)) (part "a" (sphere 4))`},
		{"part without points", `(part "a")`},
		{"part name not a string", `(part 12 (sphere 4))`},
		{"vec3 arity", `(vec3 1 2)`},
		{"bad axis", `(cloud :axis :ab)`},
		{"bad shading", `(part "a" (sphere 4) :shading :glossy)`},
		{"fractional count", `(sphere 2.5)`},
		{"negative extent", `(cloud :extent -1)`},
		{"translate without offset", `(translate (sphere 4))`},
		{"seed of wrong type", `(seed 1.5)`},
		{"shards of a number", `(shards 12)`},
		{"mirror of a string", `(mirror "pts")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewEngine()
			r, evalErrs, err := eng.Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if r != nil {
				t.Error("expected nil recipe on error")
			}
			if len(evalErrs) == 0 {
				t.Error("expected at least one eval error")
			}
		})
	}
}
