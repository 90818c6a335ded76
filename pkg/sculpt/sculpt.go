// Package sculpt turns a sculpture recipe into triangle meshes, one per
// shard of every part, by hulling each shard's point cloud. The recipe is
// never mutated.
package sculpt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"

	"github.com/samber/lo"

	"github.com/chazu/nasum/pkg/hull"
	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/recipe"
)

// InvalidRecipeError reports the validation findings that stopped a recipe
// from being sculpted.
type InvalidRecipeError struct {
	Findings []recipe.ValidationError
}

func (e *InvalidRecipeError) Error() string {
	errs := lo.FilterMap(e.Findings, func(f recipe.ValidationError, _ int) (error, bool) {
		return f, f.Severity == recipe.SeverityError
	})
	return fmt.Sprintf("sculpt: invalid recipe: %v", errors.Join(errs...))
}

// PartError wraps a hull failure with the part and shard it happened in.
type PartError struct {
	Part  string
	Shard int
	Err   error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("sculpt: part %s shard %d: %v", e.Part, e.Shard, e.Err)
}

func (e *PartError) Unwrap() error { return e.Err }

// job names one shard of one part.
type job struct {
	part  *recipe.Part
	shard int
	slot  int // position in the output
}

// Sculpt validates r and hulls every shard of every part concurrently with
// b. Meshes are returned in part order, shards in order within a part, each
// named after its part and shaded as the part asks. The first failure
// cancels the remaining shards. A nil builder uses the defaults.
func Sculpt(ctx context.Context, r *recipe.Recipe, b *hull.Builder) ([]*mesh.Mesh, error) {
	if r == nil {
		return nil, nil
	}
	if b == nil {
		b = &hull.Builder{}
	}
	logger := b.Logger
	if logger == nil {
		logger = log.Default()
	}

	findings := recipe.Validate(r)
	if recipe.HasErrors(findings) {
		return nil, &InvalidRecipeError{Findings: findings}
	}
	for _, f := range findings {
		logger.Printf("sculpt: %s", f)
	}

	var jobs []job
	for _, p := range r.Parts {
		for i := range p.Shards {
			jobs = append(jobs, job{part: p, shard: i, slot: len(jobs)})
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		slot int
		mesh *mesh.Mesh
		err  error
	}

	queue := make(chan job)
	results := make(chan result, len(jobs))
	workers := min(runtime.GOMAXPROCS(0), len(jobs))
	for w := 0; w < workers; w++ {
		go func() {
			for j := range queue {
				m, err := sculptShard(ctx, j, b)
				results <- result{slot: j.slot, mesh: m, err: err}
			}
		}()
	}
	go func() {
		defer close(queue)
		for _, j := range jobs {
			select {
			case queue <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	meshes := make([]*mesh.Mesh, len(jobs))
	var firstErr error
	for pending := len(jobs); pending > 0; pending-- {
		select {
		case res := <-results:
			if res.err != nil && firstErr == nil {
				firstErr = res.err
				cancel()
			}
			meshes[res.slot] = res.mesh
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			return nil, firstErr
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return meshes, nil
}

// sculptShard hulls one shard into a mesh labelled with its part.
func sculptShard(ctx context.Context, j job, b *hull.Builder) (*mesh.Mesh, error) {
	h, err := b.Compute(ctx, j.part.Shards[j.shard])
	if err != nil {
		return nil, &PartError{Part: j.part.Name, Shard: j.shard, Err: err}
	}
	m := h.Mesh(j.part.Shading)
	m.PartName = j.part.Name
	m.Shard = j.shard
	return m, nil
}
