package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/logrusorgru/aurora"
	imgcat "github.com/martinlindhe/imgcat/lib"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/chazu/nasum/pkg/config"
	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/preview"
	"github.com/chazu/nasum/pkg/stl"
)

var (
	cli = kingpin.New("nasum", "Grow convex hull sculptures from point cloud scripts.")

	configPath  = cli.Flag("config", "YAML configuration file.").Short('c').ExistingFile()
	outPath     = cli.Flag("out", "STL output file. Defaults to the sculpture name.").Short('o').String()
	previewPath = cli.Flag("preview", "PNG preview output file.").Short('p').String()
	previewSize = cli.Flag("size", "Preview edge length in pixels.").Int()
	flat        = cli.Flag("flat", "Flat shade parts that do not choose a shading.").Bool()
	seed        = cli.Flag("seed", "Seed: an integer or any phrase.").String()
	show        = cli.Flag("show", "Print the preview inline (iTerm2 only).").Bool()
	script      = cli.Arg("script", "Sculpture script to evaluate.").Required().ExistingFile()
)

func main() {
	kingpin.MustParse(cli.Parse(os.Args[1:]))

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, aurora.Red("error:"), err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source, err := os.ReadFile(*script)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := NewAppWithConfig(cfg)
	app.startup(ctx)

	r, meshes, result := app.Build(string(source))
	for _, w := range result.Warnings {
		fmt.Println(aurora.Yellow("warning:"), describe(w))
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			fmt.Println(aurora.Red("error:"), describe(e))
		}
		return fmt.Errorf("%s: %d errors", *script, len(result.Errors))
	}

	name := r.Name
	if name == "" {
		petname.NonDeterministicMode()
		name = petname.Generate(2, "-")
	}
	fmt.Printf("%s %s (seed %d)\n", aurora.Green("sculpted"), aurora.Bold(name), r.Seed)
	stats := make([]struct{ hulls, verts, tris int }, len(r.Parts))
	for _, m := range meshes {
		st := &stats[r.NameIndex[m.PartName]]
		st.hulls++
		st.verts += m.VertexCount()
		st.tris += m.TriangleCount()
	}
	for i, p := range r.Parts {
		st := stats[i]
		fmt.Printf("  %-16s %3d hulls %6d vertices %6d triangles\n", p.Name, st.hulls, st.verts, st.tris)
	}

	chunks, err := app.Pack(meshes)
	if err != nil {
		return err
	}
	fmt.Printf("  %d render chunks of at most %d vertices\n", len(chunks), cfg.ChunkVertices)

	stlPath := cfg.Output.STL
	if stlPath == "" {
		stlPath = filepath.Join(filepath.Dir(*script), name+".stl")
	}
	if err := stl.Save(stlPath, meshes...); err != nil {
		return err
	}
	fmt.Println(aurora.Cyan("wrote"), stlPath)

	if cfg.Output.Preview != "" {
		if err := writePreview(cfg.Output.Preview, meshes, cfg.Output.PreviewSize); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig reads the configuration file, if any, and applies flags on top.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}
	if *seed != "" {
		cfg.Seed = *seed
	}
	if *flat {
		cfg.Shading = mesh.Flat.String()
	}
	if *outPath != "" {
		cfg.Output.STL = *outPath
	}
	if *previewPath != "" {
		cfg.Output.Preview = *previewPath
	}
	if *previewSize > 0 {
		cfg.Output.PreviewSize = *previewSize
	}
	if *show && cfg.Output.Preview == "" {
		cfg.Output.Preview = filepath.Join(os.TempDir(), "nasum-preview.png")
	}
	return cfg, cfg.Validate()
}

func writePreview(path string, meshes []*mesh.Mesh, size int) error {
	if err := preview.SavePNG(path, meshes, size); err != nil {
		return err
	}
	fmt.Println(aurora.Cyan("wrote"), path)
	if *show {
		imgcat.CatFile(path, os.Stdout)
	}
	return nil
}

// describe formats an error or warning with its location.
func describe(e EvalErrorData) string {
	var where []string
	if e.Line > 0 {
		where = append(where, fmt.Sprintf("line %d", e.Line))
	}
	if e.Part != "" {
		where = append(where, "part "+e.Part)
	}
	if len(where) == 0 {
		return e.Message
	}
	return strings.Join(where, ", ") + ": " + e.Message
}
