// Package profile extracts ordered (μ, intensity) radial profiles from
// stellar disk images.
package profile

import (
	"fmt"
	"time"
)

// RadialSample is one binned point of the radial intensity profile.
// Mu is cos θ (1 at disk center, 0 at the limb); Intensity is normalized so
// the sample nearest μ=1 is exactly 1.
type RadialSample struct {
	Mu        float64
	Intensity float64
}

// Dataset is an extracted profile plus provenance. It is immutable once
// produced and owned by the pipeline invocation that created it; the analyze
// cache may share it across requests precisely because nothing mutates it.
type Dataset struct {
	Samples   []RadialSample
	SourceID  string    // fingerprint of the source grid
	Extracted time.Time // extraction timestamp (UTC)
}

// Len returns the number of binned samples.
func (d *Dataset) Len() int { return len(d.Samples) }

// MuValues returns a fresh slice of the μ coordinates, ascending.
func (d *Dataset) MuValues() []float64 {
	out := make([]float64, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Mu
	}
	return out
}

// Intensities returns a fresh slice of the normalized intensities, aligned
// with MuValues.
func (d *Dataset) Intensities() []float64 {
	out := make([]float64, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Intensity
	}
	return out
}

// Params holds the extraction tunables. The defaults materially affect fit
// quality, so they are configuration rather than constants; see
// internal/config.
type Params struct {
	// EdgeFraction is the fraction of peak intensity at which the limb is
	// considered reached when measuring the disk radius.
	EdgeFraction float64
	// Buckets is the number of fixed-width μ buckets over [0,1].
	Buckets int
	// MinRadiusPx is the smallest usable disk radius in pixels; anything
	// smaller has too little resolution to profile.
	MinRadiusPx float64
	// SigmaClip rejects samples further than SigmaClip·σ from their radial
	// bin mean during 2D extraction (cosmic rays, dead pixels). Zero
	// disables clipping.
	SigmaClip float64
}

// DefaultParams returns the documented extraction defaults.
func DefaultParams() Params {
	return Params{
		EdgeFraction: 0.5,
		Buckets:      200,
		MinRadiusPx:  10,
		SigmaClip:    3,
	}
}

func (p Params) validate() error {
	if p.EdgeFraction <= 0 || p.EdgeFraction >= 1 {
		return fmt.Errorf("edge fraction %v out of (0,1)", p.EdgeFraction)
	}
	if p.Buckets < 2 {
		return fmt.Errorf("need at least 2 mu buckets, got %d", p.Buckets)
	}
	if p.MinRadiusPx < 1 {
		return fmt.Errorf("minimum radius %v below 1 pixel", p.MinRadiusPx)
	}
	return nil
}
