package profile

import (
	"fmt"
	"math"
	"time"

	"limb-analyzer/internal/frame"

	"gonum.org/v1/gonum/floats"
)

// ExtractDriftScan turns a drift-scan image into a normalized radial profile.
//
// The grid is collapsed along the scan axis into a 1D intensity trace, then:
//
//  1. The disk center is the brightness centroid of the trace; the disk
//     radius is the half-width at which intensity falls to EdgeFraction of
//     peak.
//  2. Every trace position maps to r = |pos-center|/radius (clipped to [0,1])
//     and μ = sqrt(1-r²), and samples are averaged into fixed-width μ
//     buckets. Empty buckets are dropped.
//  3. Intensities are normalized by the bucket nearest μ=1.
//
// The extraction is deterministic: the same grid and parameters always
// produce bit-identical buckets.
func ExtractDriftScan(g *frame.Grid, axis frame.Axis, p Params) (*Dataset, error) {
	if g == nil || len(g.Pix) == 0 {
		return nil, &ExtractionError{Stage: "peak", Reason: "empty pixel grid"}
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("extraction params: %w", err)
	}

	trace := collapse(g, axis)
	center, radius, err := locateDisk(trace, p)
	if err != nil {
		return nil, err
	}

	raw := make([]rawSample, len(trace))
	for i, v := range trace {
		r := math.Abs(float64(i)-center) / radius
		if r > 1 {
			r = 1
		}
		raw[i] = rawSample{mu: math.Sqrt(1 - r*r), intensity: v}
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

// collapse averages the grid across the direction perpendicular to the scan
// axis, producing one intensity value per scan position.
func collapse(g *frame.Grid, axis frame.Axis) []float64 {
	if axis == frame.AxisVertical {
		trace := make([]float64, g.Height)
		for y := 0; y < g.Height; y++ {
			var sum float64
			for x := 0; x < g.Width; x++ {
				sum += g.At(x, y)
			}
			trace[y] = sum / float64(g.Width)
		}
		return trace
	}
	trace := make([]float64, g.Width)
	for x := 0; x < g.Width; x++ {
		var sum float64
		for y := 0; y < g.Height; y++ {
			sum += g.At(x, y)
		}
		trace[x] = sum / float64(g.Height)
	}
	return trace
}

// locateDisk finds the brightness centroid of the trace and the half-width at
// which intensity drops to EdgeFraction of peak.
func locateDisk(trace []float64, p Params) (center, radius float64, err error) {
	peak := floats.Max(trace)
	base := floats.Min(trace)
	if peak <= 0 {
		return 0, 0, &ExtractionError{Stage: "peak", Reason: "image is all dark"}
	}
	level := p.EdgeFraction * peak
	if base >= level {
		// The trace never falls below the edge threshold, so there is no
		// measurable limb (uniform or near-uniform image).
		return 0, 0, &ExtractionError{Stage: "peak", Reason: "no clear peak above edge threshold"}
	}

	// Background-subtracted intensity centroid.
	var wsum, psum float64
	for i, v := range trace {
		w := v - base
		wsum += w
		psum += w * float64(i)
	}
	if wsum <= 0 {
		return 0, 0, &ExtractionError{Stage: "peak", Reason: "degenerate brightness centroid"}
	}
	center = psum / wsum

	var halfWidths []float64
	if d, ok := edgeCrossing(trace, center, +1, level); ok {
		halfWidths = append(halfWidths, d)
	}
	if d, ok := edgeCrossing(trace, center, -1, level); ok {
		halfWidths = append(halfWidths, d)
	}
	if len(halfWidths) == 0 {
		return 0, 0, &ExtractionError{Stage: "peak", Reason: "no edge crossing on either side of centroid"}
	}
	radius = floats.Sum(halfWidths) / float64(len(halfWidths))

	if radius < p.MinRadiusPx {
		return 0, 0, &ExtractionError{
			Stage:  "radius",
			Reason: fmt.Sprintf("disk radius %.1f px below minimum %.1f px", radius, p.MinRadiusPx),
		}
	}
	return center, radius, nil
}

// edgeCrossing walks from the centroid in the given direction until the trace
// falls below level, returning the sub-pixel distance from the centroid.
func edgeCrossing(trace []float64, center float64, dir int, level float64) (float64, bool) {
	start := int(center + 0.5)
	if start < 0 {
		start = 0
	}
	if start >= len(trace) {
		start = len(trace) - 1
	}
	prev := start
	for i := start + dir; i >= 0 && i < len(trace); i += dir {
		if trace[i] < level {
			// Linear interpolation between the last sample above the
			// threshold and the first below it.
			span := trace[prev] - trace[i]
			frac := 0.0
			if span > 0 {
				frac = (trace[prev] - level) / span
			}
			return math.Abs(float64(prev)-center) + frac, true
		}
		prev = i
	}
	return 0, false
}

type rawSample struct {
	mu        float64
	intensity float64
}

// binByMu deduplicates samples into fixed-width μ buckets, averaging both μ
// and intensity per bucket. The result is ascending in μ with empty buckets
// dropped.
func binByMu(raw []rawSample, buckets int) ([]RadialSample, error) {
	sumMu := make([]float64, buckets)
	sumI := make([]float64, buckets)
	count := make([]int, buckets)

	for _, s := range raw {
		b := int(s.mu * float64(buckets))
		if b >= buckets {
			b = buckets - 1 // μ = 1 lands in the last bucket
		}
		sumMu[b] += s.mu
		sumI[b] += s.intensity
		count[b]++
	}

	out := make([]RadialSample, 0, buckets)
	for b := 0; b < buckets; b++ {
		if count[b] == 0 {
			continue
		}
		n := float64(count[b])
		out = append(out, RadialSample{Mu: sumMu[b] / n, Intensity: sumI[b] / n})
	}
	if len(out) == 0 {
		return nil, &ExtractionError{Stage: "radius", Reason: "all mu buckets empty"}
	}
	return out, nil
}

// normalizeSamples divides every intensity by the bucket nearest μ=1 so that
// the disk-center sample is exactly 1.
func normalizeSamples(samples []RadialSample) error {
	center := samples[len(samples)-1]
	if center.Mu < 0.95 {
		return &ExtractionError{
			Stage:  "normalize",
			Reason: fmt.Sprintf("no sample near disk center (max mu %.3f)", center.Mu),
		}
	}
	if center.Intensity <= 0 {
		return &ExtractionError{Stage: "normalize", Reason: "disk-center intensity is not positive"}
	}
	for i := range samples {
		samples[i].Intensity /= center.Intensity
	}
	return nil
}
