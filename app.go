package main

import (
	"context"
	"errors"
	"log"

	"github.com/chazu/nasum/pkg/config"
	"github.com/chazu/nasum/pkg/engine"
	"github.com/chazu/nasum/pkg/hull"
	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/recipe"
	"github.com/chazu/nasum/pkg/sculpt"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs sculpture scripts through the engine and the hull builder.
type App struct {
	ctx        context.Context
	engine     *engine.Engine
	builder    *hull.Builder
	chunkLimit int
}

// MeshData is the JSON-serializable mesh format handed to renderers.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Colors   []float32 `json:"colors"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Shard    int       `json:"shard"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
	Part    string `json:"part,omitempty"`
}

// EvalResult is the full result of evaluating a script.
type EvalResult struct {
	Name     string          `json:"name"`
	Seed     int64           `json:"seed"`
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates a new App with the default configuration.
func NewApp() *App {
	return NewAppWithConfig(config.Default())
}

// NewAppWithConfig creates an App from a validated configuration.
func NewAppWithConfig(cfg *config.Config) *App {
	shading, _ := mesh.ParseShading(cfg.Shading)
	return &App{
		ctx:        context.Background(),
		engine:     engine.NewEngineWithOptions(cfg.EngineOptions()),
		builder:    &hull.Builder{Shading: shading},
		chunkLimit: cfg.ChunkVertices,
	}
}

// startup replaces the context used to cancel hulling.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// Build evaluates source and hulls every part. The recipe and meshes are
// nil whenever result carries errors.
func (a *App) Build(source string) (*recipe.Recipe, []*mesh.Mesh, EvalResult) {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a recipe.
	r, evalErrs, err := a.engine.EvaluateContext(a.ctx, source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return nil, nil, result
	}

	// Step 2: Convert eval errors to the result format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return nil, nil, result
	}
	result.Name = r.Name
	result.Seed = r.Seed

	// Step 3: Report validation findings; errors stop the build.
	findings := recipe.Validate(r)
	for _, f := range findings {
		data := EvalErrorData{Message: f.Message, Part: f.Part}
		if f.Severity == recipe.SeverityError {
			result.Errors = append(result.Errors, data)
		} else {
			result.Warnings = append(result.Warnings, data)
		}
	}
	if recipe.HasErrors(findings) {
		return nil, nil, result
	}

	// Step 4: Hull every shard of every part.
	meshes, err := sculpt.Sculpt(a.ctx, r, a.builder)
	if err != nil {
		log.Printf("Sculpt error: %v", err)
		data := EvalErrorData{Message: "hull failed: " + err.Error()}
		var pe *sculpt.PartError
		if errors.As(err, &pe) {
			data.Part = pe.Part
		}
		result.Errors = append(result.Errors, data)
		return nil, nil, result
	}

	// Step 5: Convert meshes to MeshData, splitting any too large for one
	// index buffer. Shards of a part share its color.
	for _, m := range meshes {
		color := colorPalette[r.NameIndex[m.PartName]%len(colorPalette)]
		pieces, err := mesh.Split(m, a.chunkLimit)
		if err != nil {
			result.Errors = append(result.Errors, EvalErrorData{Message: err.Error(), Part: m.PartName})
			return nil, nil, result
		}
		for _, p := range pieces {
			result.Meshes = append(result.Meshes, MeshData{
				Vertices: p.Vertices,
				Normals:  p.Normals,
				Colors:   p.Colors,
				Indices:  p.Indices,
				PartName: m.PartName,
				Shard:    m.Shard,
				Color:    color,
			})
		}
	}

	return r, meshes, result
}

// Evaluate takes Lisp source and returns mesh data + errors.
func (a *App) Evaluate(source string) EvalResult {
	_, _, result := a.Build(source)
	return result
}

// Pack concatenates meshes into chunks that each fit one index buffer.
func (a *App) Pack(meshes []*mesh.Mesh) ([]*mesh.Mesh, error) {
	p := mesh.NewPacker(a.chunkLimit)
	if err := p.PackAll(meshes...); err != nil {
		return nil, err
	}
	return p.Build(), nil
}
