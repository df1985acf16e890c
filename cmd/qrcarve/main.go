// Command qrcarve carves a flat plate so that its photograph under two
// spotlights reads as the QR code given in a JSON config file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	qrcarve "github.com/swannyPeng/3DQR"
	"github.com/swannyPeng/3DQR/render"
	"github.com/swannyPeng/3DQR/surface"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file (required)")
	outDir := flag.String("out", ".", "Output directory")
	dump := flag.Bool("dump", false, "Write the mesh and gray map of every iteration")
	gz := flag.Bool("gzip", false, "Gzip iteration dumps")
	preview := flag.Bool("preview", false, "Render preview.png of the final mesh")
	verbose := flag.Bool("v", false, "Debug logging")
	iters := flag.Int("iters", 0, "Iteration cap (default: 64)")
	samples := flag.Int("samples", 0, "Hemisphere samples per white cell (default: 500)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	seed := flag.Int64("seed", 0, "Ambient occlusion seed (default: 1)")
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		flag.Usage()
		os.Exit(2)
	}
	cfg, err := qrcarve.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// CLI flags override config file
	cfg.Resolve(qrcarve.Flags{
		MaxIterations: *iters,
		AOSamples:     *samples,
		Workers:       *workers,
		Seed:          *seed,
	})
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	res, err := run(cfg, *outDir, *dump, *gz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var derr *qrcarve.DivergenceError
		if errors.As(err, &derr) && len(derr.Gray) > 0 {
			writeGray(filepath.Join(*outDir, "diverged.png"), derr.Gray, cfg.Layout().Q())
		}
		os.Exit(1)
	}
	cfg.Logger.Info("carved", "iterations", res.Iterations, "faces", len(res.Faces), "elapsed", time.Since(start))

	stlPath := filepath.Join(*outDir, "final.stl")
	if err := render.CreateSTL(stlPath, render.NewMeshRenderer(res.Vertices, res.Faces)); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", stlPath, err)
		os.Exit(1)
	}
	objPath := filepath.Join(*outDir, "final.obj")
	if err := render.CreateOBJ(objPath, res.Vertices, res.Faces); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", objPath, err)
		os.Exit(1)
	}
	writeGray(filepath.Join(*outDir, "final.png"), res.Gray, cfg.Layout().Q())
	if *preview {
		fp, err := os.Create(filepath.Join(*outDir, "preview.png"))
		if err == nil {
			err = render.WritePreview(fp, res.Vertices, res.Faces, render.DefaultView)
			fp.Close()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing preview: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("wrote %s and %s (%d vertices, %d faces)\n", stlPath, objPath, len(res.Vertices), len(res.Faces))
}

func run(cfg qrcarve.Config, outDir string, dump, gz bool) (*qrcarve.Result, error) {
	base, err := surface.HeightField{Cell: cfg.Cell}.Build(cfg.Layout())
	if err != nil {
		return nil, err
	}
	in, err := qrcarve.NewInput(cfg, base)
	if err != nil {
		return nil, err
	}
	var obs qrcarve.Observer
	if dump {
		obs = render.DirObserver{Dir: filepath.Join(outDir, "iterations"), Compress: gz, Upscale: 4}
	}
	return qrcarve.Optimize(cfg, in, obs)
}

func writeGray(path string, gray []int, q int) {
	fp, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	defer fp.Close()
	if err := render.WriteGrayPNG(fp, gray, q, 4); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
	}
}
