// Command disktest runs disk detection and profile extraction on a stellar
// image and prints the results, including a per-model fit summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"limb-analyzer/internal/compare"
	"limb-analyzer/internal/disk"
	"limb-analyzer/internal/fit"
	"limb-analyzer/internal/frame"
	"limb-analyzer/internal/limb"
	"limb-analyzer/internal/preprocess"
	"limb-analyzer/internal/profile"

	_ "golang.org/x/image/tiff"
)

func main() {
	imagePath := flag.String("image", "", "Path to stellar disk image (TIFF, PNG, or JPEG)")
	mode := flag.String("mode", "radial", "Extraction mode: drift or radial")
	axis := flag.String("axis", "horizontal", "Drift scan axis: horizontal or vertical")
	edge := flag.Float64("edge", 0.5, "Edge threshold as a fraction of peak intensity")
	buckets := flag.Int("buckets", 200, "Number of mu buckets")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: disktest -image <path> [-mode drift|radial] [-axis horizontal|vertical]")
		os.Exit(1)
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		os.Exit(1)
	}
	bounds := img.Bounds()
	fmt.Printf("Loaded %s image: %dx%d pixels\n", format, bounds.Dx(), bounds.Dy())

	params := profile.DefaultParams()
	params.EdgeFraction = *edge
	params.Buckets = *buckets
	fmt.Printf("\nExtraction parameters:\n")
	fmt.Printf("  Edge fraction:  %.2f\n", params.EdgeFraction)
	fmt.Printf("  Mu buckets:     %d\n", params.Buckets)
	fmt.Printf("  Min radius:     %.0f px\n", params.MinRadiusPx)
	fmt.Printf("  Sigma clip:     %.1f\n", params.SigmaClip)

	var ds *profile.Dataset
	switch *mode {
	case "radial":
		mat := preprocess.MatFromImage(img)
		cleaned := preprocess.Pipeline(mat)
		mat.Close()
		defer cleaned.Close()

		d, err := disk.Detect(cleaned, disk.DefaultParams())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Disk detection failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nDisk: center (%.1f, %.1f) radius %.1f px via %s\n", d.CX, d.CY, d.Radius, d.Method)

		ds, err = profile.Extract2D(preprocess.GridFromMat(cleaned), d.CX, d.CY, d.Radius, params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
			os.Exit(1)
		}
	case "drift":
		scanAxis, err := frame.ParseAxis(*axis)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		ds, err = profile.ExtractDriftScan(frame.FromImage(img), scanAxis, params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q\n", *mode)
		os.Exit(1)
	}

	first := ds.Samples[0]
	last := ds.Samples[len(ds.Samples)-1]
	fmt.Printf("\nExtracted %d samples, mu %.3f..%.3f, I %.3f..%.3f\n",
		ds.Len(), first.Mu, last.Mu, first.Intensity, last.Intensity)

	fmt.Printf("\nFitting all models...\n")
	ranked, err := compare.FitAll(context.Background(), ds, limb.All(),
		compare.Options{Fit: fit.DefaultOptions()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Comparison failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%-4s %-12s %12s %10s %6s %6s  %s\n",
		"Rank", "Model", "Chi2_red", "R2", "Conv", "Iters", "Parameters")
	for i, r := range ranked {
		fmt.Printf("%-4d %-12s %12.4e %10.6f %6v %6d  %v\n",
			i+1, r.ModelID, r.Chi2Reduced, r.RSquared, r.Converged, r.Iterations, r.Parameters)
	}
}
