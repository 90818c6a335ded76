package engine

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/nasum/pkg/cloud"
	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/point"
	"github.com/chazu/nasum/pkg/recipe"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPoints wraps a point cloud so it can be passed between builtins.
// Builtins never modify the slice of an existing value.
type sexpPoints struct {
	pts []point.Point
}

func (p *sexpPoints) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(points %d)", len(p.pts))
}
func (p *sexpPoints) Type() *zygo.RegisteredType { return nil }

// sexpShards wraps point clouds that are hulled separately. distort and
// mirror produce them so that each group and each side of the symmetry
// plane becomes its own hull.
type sexpShards struct {
	shards [][]point.Point
}

func (s *sexpShards) SexpString(ps *zygo.PrintState) string {
	n := 0
	for _, sh := range s.shards {
		n += len(sh)
	}
	return fmt.Sprintf("(shards %d %d)", len(s.shards), n)
}
func (s *sexpShards) Type() *zygo.RegisteredType { return nil }

// sexpPartRef names a part added to the recipe.
type sexpPartRef struct {
	name string
}

func (r *sexpPartRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(part %q)", r.name)
}
func (r *sexpPartRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A keyword followed by another keyword, or at the end of the list, is a
// flag whose value is the keyword itself.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next || keywordValued[name] {
				result.kw[name] = args[i+1]
				i++
				continue
			}
		}
		result.kw[name] = args[i]
	}
	return result
}

// keywordValued lists keyword arguments whose value is itself a keyword.
var keywordValued = map[string]bool{
	"axis":    true,
	"shading": true,
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number from a Sexp.
func toInt(s zygo.Sexp) (int, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("expected whole number, got %g", f)
	}
	return int(f), nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_yz) and plain strings ("yz").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toAxis converts a keyword or string to a plane of symmetry.
func toAxis(s zygo.Sexp) (point.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:xy, :xz, :yz): %w", err)
	}
	return point.ParseAxis(name)
}

// toShading converts a keyword or string to a mesh shading mode.
func toShading(s zygo.Sexp) (mesh.Shading, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected shading keyword (:smooth, :flat): %w", err)
	}
	return mesh.ParseShading(name)
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toPoints extracts points from a points value, a vec3 (weighted by
// weight), or a list of either. Shards are flattened into one cloud.
func toPoints(s zygo.Sexp, weight float64) ([]point.Point, error) {
	switch v := s.(type) {
	case *sexpPoints:
		return v.pts, nil
	case *sexpShards:
		var pts []point.Point
		for _, sh := range v.shards {
			pts = append(pts, sh...)
		}
		return pts, nil
	case *sexpVec3:
		return []point.Point{point.New(v.vec, weight)}, nil
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(s)
		if err != nil {
			return nil, err
		}
		var pts []point.Point
		for _, item := range items {
			p, err := toPoints(item, weight)
			if err != nil {
				return nil, err
			}
			pts = append(pts, p...)
		}
		return pts, nil
	}
	return nil, fmt.Errorf("expected points or vec3, got %T (%s)", s, s.SexpString(nil))
}

// toShards extracts separately hulled clouds. Anything that is not already
// a shards value is a single shard.
func toShards(s zygo.Sexp, weight float64) ([][]point.Point, error) {
	if v, ok := s.(*sexpShards); ok {
		return v.shards, nil
	}
	pts, err := toPoints(s, weight)
	if err != nil {
		return nil, err
	}
	return [][]point.Point{pts}, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// floatKW sets *dst from keyword key when present.
func (pa kwArgs) floatKW(key string, dst *float64) error {
	if v, ok := pa.kw[key]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
	}
	return nil
}

// intKW sets *dst from keyword key when present.
func (pa kwArgs) intKW(key string, dst *int) error {
	if v, ok := pa.kw[key]; ok {
		n, err := toInt(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// axisKW sets *dst from keyword key when present.
func (pa kwArgs) axisKW(key string, dst *point.Axis) error {
	if v, ok := pa.kw[key]; ok {
		a, err := toAxis(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = a
	}
	return nil
}

// ---------------------------------------------------------------------------
// Evaluation session
// ---------------------------------------------------------------------------

// session is the state shared by the builtins of one evaluation.
type session struct {
	opts   Options
	rng    *rand.Rand
	recipe *recipe.Recipe
}

func newSession(opts Options) *session {
	r := recipe.New()
	r.Seed = opts.Seed
	return &session{
		opts:   opts,
		rng:    cloud.NewRand(opts.Seed),
		recipe: r,
	}
}

// reseed restarts the random sequence.
func (s *session) reseed(seed int64) {
	s.rng = cloud.NewRand(seed)
	s.recipe.Seed = seed
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all sculpture DSL builtins into a zygomys
// environment. The builtins populate the session's recipe during
// evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *session) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (point 1 2 3 0.5) or (point (vec3 1 2 3) :weight 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		weight := s.opts.Cloud.Weight
		var pos v3.Vec

		switch n := len(pa.positional); {
		case n == 1 || n == 2:
			v, err := toVec3(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("point: %w", err)
			}
			pos = v
			if n == 2 {
				if weight, err = toFloat64(pa.positional[1]); err != nil {
					return zygo.SexpNull, fmt.Errorf("point: weight: %w", err)
				}
			}
		case n == 3 || n == 4:
			var c [4]float64
			c[3] = weight
			for i, arg := range pa.positional {
				f, err := toFloat64(arg)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("point: argument %d: %w", i+1, err)
				}
				c[i] = f
			}
			pos, weight = v3.Vec{X: c[0], Y: c[1], Z: c[2]}, c[3]
		default:
			return zygo.SexpNull, fmt.Errorf("point requires a vec3 or 3 coordinates, got %d arguments", n)
		}
		if err := pa.floatKW("weight", &weight); err != nil {
			return zygo.SexpNull, fmt.Errorf("point: %w", err)
		}
		return &sexpPoints{pts: []point.Point{point.New(pos, weight)}}, nil
	})

	// -----------------------------------------------------------------------
	// (points (vec3 0 0 0) (vec3 1 0 0) ... :weight 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("points", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		weight := s.opts.Cloud.Weight
		if err := pa.floatKW("weight", &weight); err != nil {
			return zygo.SexpNull, fmt.Errorf("points: %w", err)
		}
		var pts []point.Point
		for i, arg := range pa.positional {
			p, err := toPoints(arg, weight)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("points: argument %d: %w", i+1, err)
			}
			pts = append(pts, p...)
		}
		return &sexpPoints{pts: pts}, nil
	})

	// -----------------------------------------------------------------------
	// (seed "some words") or (seed 42)
	// -----------------------------------------------------------------------
	env.AddFunction("seed", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("seed requires exactly 1 argument, got %d", len(args))
		}
		var seed int64
		switch v := args[0].(type) {
		case *zygo.SexpStr:
			seed = cloud.SeedFromString(v.S)
		case *zygo.SexpInt:
			seed = v.Val
		default:
			return zygo.SexpNull, fmt.Errorf("seed: expected string or integer, got %T (%s)", args[0], args[0].SexpString(nil))
		}
		s.reseed(seed)
		return &zygo.SexpInt{Val: seed}, nil
	})

	// -----------------------------------------------------------------------
	// (cloud :points 12 :batches 2 :extent 10 :step 3 :axis :yz :weight 1)
	// -----------------------------------------------------------------------
	env.AddFunction("cloud", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		d := s.opts.Cloud
		g := &cloud.Generator{
			Rand:           s.rng,
			Axis:           d.Axis,
			PointsPerBatch: d.PointsPerBatch,
			Extent:         d.Extent,
			MaxStep:        d.MaxStep,
			Weight:         d.Weight,
		}
		batches := d.Batches
		for _, err := range []error{
			pa.intKW("points", &g.PointsPerBatch),
			pa.intKW("batches", &batches),
			pa.floatKW("extent", &g.Extent),
			pa.floatKW("step", &g.MaxStep),
			pa.floatKW("weight", &g.Weight),
			pa.axisKW("axis", &g.Axis),
		} {
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cloud: %w", err)
			}
		}

		walks, err := g.Batches(batches)
		if err != nil {
			return zygo.SexpNull, err
		}
		var pts []point.Point
		for _, w := range walks {
			pts = append(pts, w...)
		}
		return &sexpPoints{pts: pts}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere 40 :radius 3 :center (vec3 0 10 0) :weight 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("sphere requires a point count")
		}
		n, err := toInt(pa.positional[0])
		if err != nil || n < 0 {
			return zygo.SexpNull, fmt.Errorf("sphere: count: expected non-negative whole number, got %s", pa.positional[0].SexpString(nil))
		}
		radius, weight := 1.0, s.opts.Cloud.Weight
		if err := pa.floatKW("radius", &radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		if err := pa.floatKW("weight", &weight); err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		var center v3.Vec
		if v, ok := pa.kw["center"]; ok {
			if center, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: center: %w", err)
			}
		}
		return &sexpPoints{pts: cloud.Sphere(s.rng, n, center, radius, weight)}, nil
	})

	// -----------------------------------------------------------------------
	// (distort pts :intensity 2 :scale 0.1 :group 4 :increment -1 :tiers 5
	//              :lattice 8 :axis :yz :drift (vec3 0 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("distort", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("distort requires exactly one point cloud")
		}
		in, err := toShards(pa.positional[0], s.opts.Cloud.Weight)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distort: %w", err)
		}

		d := s.opts.Distort
		dist := &cloud.Distorter{
			Rand:          s.rng,
			Axis:          s.opts.Cloud.Axis,
			Intensity:     d.Intensity,
			Scale:         d.Scale,
			GroupSize:     d.GroupSize,
			TierIncrement: d.TierIncrement,
			MaxTiers:      d.MaxTiers,
		}
		lattice := d.LatticeSize
		for _, err := range []error{
			pa.floatKW("intensity", &dist.Intensity),
			pa.floatKW("scale", &dist.Scale),
			pa.intKW("group", &dist.GroupSize),
			pa.intKW("increment", &dist.TierIncrement),
			pa.intKW("tiers", &dist.MaxTiers),
			pa.intKW("lattice", &lattice),
			pa.axisKW("axis", &dist.Axis),
		} {
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("distort: %w", err)
			}
		}

		var field cloud.VectorField = cloud.NewRepeatedCubeField(s.rng, 1, lattice)
		if v, ok := pa.kw["drift"]; ok {
			drift, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("distort: drift: %w", err)
			}
			field = &cloud.CompositeField{Fields: []cloud.VectorField{field, cloud.ConstantField{Direction: drift}}}
		}
		dist.Field = field

		// Groups never span two shards, so both sides of a mirror keep
		// their own groups.
		var groups [][]point.Point
		for _, sh := range in {
			g, err := dist.DistortAll(sh)
			if err != nil {
				return zygo.SexpNull, err
			}
			groups = append(groups, g...)
		}
		return &sexpShards{shards: groups}, nil
	})

	// -----------------------------------------------------------------------
	// (mirror pts :yz) pairs every shard with its reflection, each hulled
	// on its own
	// -----------------------------------------------------------------------
	env.AddFunction("mirror", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 || len(args) > 2 {
			return zygo.SexpNull, fmt.Errorf("mirror requires a point cloud and an optional axis")
		}
		shards, err := toShards(args[0], s.opts.Cloud.Weight)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mirror: %w", err)
		}
		axis := s.opts.Cloud.Axis
		if len(args) == 2 {
			if axis, err = toAxis(args[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("mirror: %w", err)
			}
		}
		out := make([][]point.Point, 0, 2*len(shards))
		for _, sh := range shards {
			out = append(out, sh, point.Mirror(sh, axis))
		}
		return &sexpShards{shards: out}, nil
	})

	// -----------------------------------------------------------------------
	// (translate pts (vec3 0 10 0))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a point cloud and a vec3")
		}
		offset, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: offset: %w", err)
		}
		if sh, ok := args[0].(*sexpShards); ok {
			out := make([][]point.Point, len(sh.shards))
			for i, pts := range sh.shards {
				out[i] = point.Translate(pts, offset)
			}
			return &sexpShards{shards: out}, nil
		}
		pts, err := toPoints(args[0], s.opts.Cloud.Weight)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		return &sexpPoints{pts: point.Translate(pts, offset)}, nil
	})

	// -----------------------------------------------------------------------
	// (merge a b c) fuses everything into one cloud
	// -----------------------------------------------------------------------
	env.AddFunction("merge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var out []point.Point
		for i, arg := range args {
			pts, err := toPoints(arg, s.opts.Cloud.Weight)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("merge: argument %d: %w", i+1, err)
			}
			out = append(out, pts...)
		}
		return &sexpPoints{pts: out}, nil
	})

	// -----------------------------------------------------------------------
	// (shards a b c) keeps every argument a separate hull
	// -----------------------------------------------------------------------
	env.AddFunction("shards", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var out [][]point.Point
		for i, arg := range args {
			sh, err := toShards(arg, s.opts.Cloud.Weight)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("shards: argument %d: %w", i+1, err)
			}
			out = append(out, sh...)
		}
		return &sexpShards{shards: out}, nil
	})

	// -----------------------------------------------------------------------
	// (part "name" pts :shading :flat)
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("part requires a name and a point cloud")
		}
		partName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}
		if s.recipe.Lookup(partName) != nil {
			return zygo.SexpNull, fmt.Errorf("part: duplicate part name %q", partName)
		}
		shards, err := toShards(pa.positional[1], s.opts.Cloud.Weight)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part %q: %w", partName, err)
		}
		shading := s.opts.Shading
		if v, ok := pa.kw["shading"]; ok {
			if shading, err = toShading(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("part %q: shading: %w", partName, err)
			}
		}

		owned := make([][]point.Point, len(shards))
		for i, sh := range shards {
			owned[i] = append([]point.Point(nil), sh...)
		}
		s.recipe.AddPart(&recipe.Part{
			Name:    partName,
			Shards:  owned,
			Shading: shading,
		})
		return &sexpPartRef{name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (sculpture "name")
	// -----------------------------------------------------------------------
	env.AddFunction("sculpture", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("sculpture requires a name argument")
		}
		sculptureName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sculpture: name: %w", err)
		}
		s.recipe.Name = sculptureName
		return &zygo.SexpStr{S: sculptureName}, nil
	})
}
