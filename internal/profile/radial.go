package profile

import (
	"fmt"
	"math"
	"time"

	"limb-analyzer/internal/frame"

	"gonum.org/v1/gonum/stat"
)

// Extract2D builds a radial profile from a full 2D disk image given the disk
// center and radius in pixel coordinates (see internal/disk for detection).
//
// Intensity is binned by integer pixel distance from the center with
// per-bin sigma clipping to suppress cosmic-ray spikes and dead pixels, then
// converted to μ buckets and normalized exactly like the drift-scan path.
func Extract2D(g *frame.Grid, cx, cy, radius float64, p Params) (*Dataset, error) {
	if g == nil || len(g.Pix) == 0 {
		return nil, &ExtractionError{Stage: "disk", Reason: "empty pixel grid"}
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("extraction params: %w", err)
	}
	if radius < p.MinRadiusPx {
		return nil, &ExtractionError{
			Stage:  "radius",
			Reason: fmt.Sprintf("disk radius %.1f px below minimum %.1f px", radius, p.MinRadiusPx),
		}
	}
	if cx < 0 || cy < 0 || cx >= float64(g.Width) || cy >= float64(g.Height) {
		return nil, &ExtractionError{Stage: "disk", Reason: "disk center outside the image"}
	}

	// Gather per-bin pixel values for integer radial distances 0..radius.
	maxBin := int(radius)
	bins := make([][]float64, maxBin+1)
	for y := 0; y < g.Height; y++ {
		dy := float64(y) - cy
		for x := 0; x < g.Width; x++ {
			dx := float64(x) - cx
			r := math.Sqrt(dx*dx + dy*dy)
			if r > radius {
				continue
			}
			b := int(r)
			if b > maxBin {
				b = maxBin
			}
			bins[b] = append(bins[b], g.At(x, y))
		}
	}

	raw := make([]rawSample, 0, maxBin+1)
	for b, vals := range bins {
		if len(vals) == 0 {
			continue
		}
		v, ok := clippedMean(vals, p.SigmaClip)
		if !ok {
			continue
		}
		rn := float64(b) / radius
		if rn > 1 {
			rn = 1
		}
		raw = append(raw, rawSample{mu: math.Sqrt(1 - rn*rn), intensity: v})
	}
	if len(raw) == 0 {
		return nil, &ExtractionError{Stage: "radius", Reason: "no radial bins inside the disk"}
	}

	samples, err := binByMu(raw, p.Buckets)
	if err != nil {
		return nil, err
	}
	if err := normalizeSamples(samples); err != nil {
		return nil, err
	}
	return &Dataset{
		Samples:   samples,
		SourceID:  g.Fingerprint(),
		Extracted: time.Now().UTC(),
	}, nil
}

// clippedMean averages vals after discarding samples further than clip·σ from
// the bin mean. A bin whose spread is effectively zero keeps every sample;
// otherwise a uniform bin would reject all of its own members.
func clippedMean(vals []float64, clip float64) (float64, bool) {
	if clip <= 0 || len(vals) < 3 {
		return stat.Mean(vals, nil), true
	}
	mean, std := stat.MeanStdDev(vals, nil)
	if std < 1e-12 {
		return mean, true
	}
	var sum float64
	var n int
	for _, v := range vals {
		if math.Abs(v-mean) < clip*std {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
