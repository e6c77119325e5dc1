// Command limbfit analyzes a stellar disk image, fits one or more
// limb-darkening models to the extracted radial profile and writes the
// results as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"time"

	"limb-analyzer/internal/analyze"
	"limb-analyzer/internal/compare"
	"limb-analyzer/internal/config"
	"limb-analyzer/internal/disk"
	"limb-analyzer/internal/fit"
	"limb-analyzer/internal/frame"
	"limb-analyzer/internal/preprocess"
	"limb-analyzer/internal/profile"
	"limb-analyzer/internal/report"

	_ "golang.org/x/image/tiff"
)

func main() {
	imagePath := flag.String("image", "", "Path to stellar disk image (TIFF, PNG, or JPEG)")
	model := flag.String("model", "compare", "Model to fit: linear, quadratic, square-root, logarithmic, claret4, or compare")
	mode := flag.String("mode", "drift", "Extraction mode: drift (1D drift scan) or radial (2D disk)")
	axis := flag.String("axis", "horizontal", "Drift scan axis: horizontal or vertical")
	configPath := flag.String("config", "", "Optional analyzer config YAML")
	outPath := flag.String("out", "", "Output file (default stdout)")
	timeout := flag.Duration("timeout", 0, "Analysis timeout (0 uses the configured default)")
	smooth := flag.Int("smooth", 0, "Pure-Go box blur radius applied before drift extraction (0 = off)")
	pretty := flag.Bool("pretty", false, "Indent the JSON output")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *imagePath == "" {
		fmt.Println("Usage: limbfit -image <path> [-model compare] [-mode drift|radial] [-axis horizontal|vertical]")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Config: %v", err)
		}
	}
	if *timeout <= 0 {
		*timeout = time.Duration(cfg.Runtime.TimeoutSeconds) * time.Second
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		log.Fatalf("Open image: %v", err)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		log.Fatalf("Decode image: %v", err)
	}
	bounds := img.Bounds()
	log.Printf("Loaded %s image: %dx%d pixels", format, bounds.Dx(), bounds.Dy())

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	analyzer := analyze.New(cfg.AnalyzerOptions())

	var analysis *report.Analysis
	switch *mode {
	case "drift":
		scanAxis, err := frame.ParseAxis(*axis)
		if err != nil {
			log.Fatalf("Axis: %v", err)
		}
		grid := frame.FromImage(img)
		grid = preprocess.BoxBlur(grid, *smooth)
		analysis, err = analyzer.AnalyzeDriftScan(ctx, grid, scanAxis, *model)
		if err != nil {
			fail(err)
		}
	case "radial":
		mat := preprocess.MatFromImage(img)
		cleaned := preprocess.Pipeline(mat)
		mat.Close()
		d, err := disk.Detect(cleaned, disk.DefaultParams())
		if err != nil {
			cleaned.Close()
			fail(err)
		}
		log.Printf("Disk: center (%.1f, %.1f) radius %.1f px via %s", d.CX, d.CY, d.Radius, d.Method)
		grid := preprocess.GridFromMat(cleaned)
		cleaned.Close()
		analysis, err = analyzer.AnalyzeRadial(ctx, grid, d.CX, d.CY, d.Radius, *model)
		if err != nil {
			fail(err)
		}
	default:
		log.Fatalf("Unknown mode %q (want drift or radial)", *mode)
	}

	best := analysis.Results[0]
	log.Printf("Profile: %d samples, mu %.3f..%.3f", len(analysis.MuArray),
		analysis.MuArray[0], analysis.MuArray[len(analysis.MuArray)-1])
	log.Printf("Best fit: %s (chi2_red %.3e, R2 %.4f, converged %v)",
		best.ModelType, best.Chi2Reduced, best.RSquared, best.Converged)

	var data []byte
	if *pretty {
		data, err = json.MarshalIndent(analysis, "", "  ")
	} else {
		data, err = json.Marshal(analysis)
	}
	if err != nil {
		log.Fatalf("Encode results: %v", err)
	}
	data = append(data, '\n')

	if *outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatalf("Write %s: %v", *outPath, err)
	}
	log.Printf("Wrote %s", *outPath)
}

// fail reports an analysis error with its place in the taxonomy, so the exit
// message says which stage rejected the request.
func fail(err error) {
	var extraction *profile.ExtractionError
	var dof *fit.DegreesOfFreedomError
	var cancelled *fit.CancelledError
	var insufficient *compare.InsufficientDataError
	switch {
	case errors.As(err, &extraction):
		log.Fatalf("Extraction failed: %v", err)
	case errors.As(err, &dof):
		log.Fatalf("Not enough samples: %v", err)
	case errors.As(err, &insufficient):
		log.Fatalf("Not enough samples for any model: %v", err)
	case errors.As(err, &cancelled):
		log.Fatalf("Analysis timed out or was cancelled: %v", err)
	default:
		log.Fatalf("Analysis failed: %v", err)
	}
}
