package recipe

import (
	"fmt"

	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/point"
)

// ValidationSeverity indicates whether a validation finding blocks hulling
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks hulling
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Part     string             // which part has the problem (empty if recipe-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Part == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] part %s: %s", e.Severity, e.Part, e.Message)
}

// MinPartPoints is the fewest points a part can be hulled from.
const MinPartPoints = 4

// Validate runs all checks on the recipe and returns the findings. An empty
// slice means the recipe can be hulled. It never mutates the recipe.
func Validate(r *Recipe) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRecipe(r)...)
	errs = append(errs, validateNames(r)...)
	for _, p := range r.Parts {
		errs = append(errs, validatePart(p)...)
	}
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateRecipe(r *Recipe) []ValidationError {
	if len(r.Parts) == 0 {
		return []ValidationError{{
			Message:  "recipe has no parts",
			Severity: SeverityWarning,
		}}
	}
	return nil
}

// validateNames checks that every part has a unique non-empty name.
func validateNames(r *Recipe) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, p := range r.Parts {
		if p.Name == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("part %d has no name", i),
				Severity: SeverityError,
			})
			continue
		}
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Part:     p.Name,
				Message:  "duplicate part name",
				Severity: SeverityError,
			})
		}
		seen[p.Name] = true
	}
	return errs
}

// validatePart checks every shard of the part for what the hull builder
// cannot accept, and warns about what it will quietly discard.
func validatePart(p *Part) []ValidationError {
	if len(p.Shards) == 0 {
		return []ValidationError{{
			Part:     p.Name,
			Message:  fmt.Sprintf("no points, need at least %d", MinPartPoints),
			Severity: SeverityError,
		}}
	}
	var errs []ValidationError
	for i, sh := range p.Shards {
		prefix := ""
		if len(p.Shards) > 1 {
			prefix = fmt.Sprintf("shard %d: ", i)
		}
		errs = append(errs, validateShard(p.Name, prefix, sh, p.Shading)...)
	}
	return errs
}

func validateShard(part, prefix string, pts []point.Point, shading mesh.Shading) []ValidationError {
	var errs []ValidationError
	add := func(sev ValidationSeverity, format string, args ...interface{}) {
		errs = append(errs, ValidationError{
			Part:     part,
			Message:  prefix + fmt.Sprintf(format, args...),
			Severity: sev,
		})
	}

	if len(pts) < MinPartPoints {
		add(SeverityError, "%d points, need at least %d", len(pts), MinPartPoints)
	}

	distinct := make(map[[3]float64]bool)
	duplicates := 0
	for i, pt := range pts {
		if !pt.IsFinite() {
			add(SeverityError, "point %d has a non-finite coordinate %v", i, pt)
			continue
		}
		key := [3]float64{pt.Position.X, pt.Position.Y, pt.Position.Z}
		if distinct[key] {
			duplicates++
		}
		distinct[key] = true
	}
	if len(pts) >= MinPartPoints && len(distinct) < MinPartPoints {
		add(SeverityError, "only %d distinct positions, need at least %d", len(distinct), MinPartPoints)
	}
	if duplicates > 0 {
		add(SeverityWarning, "%d coincident points will be discarded", duplicates)
	}
	if shading == mesh.Flat && 3*2*len(pts) > mesh.MaxChunkVertices {
		// A hull over n points has at most 2n-4 faces, three flat vertices each.
		add(SeverityWarning, "flat shaded hull of %d points may exceed %d vertices and will be split", len(pts), mesh.MaxChunkVertices)
	}
	return errs
}
