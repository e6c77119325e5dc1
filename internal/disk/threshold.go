package disk

import (
	"fmt"
	"math"

	"limb-analyzer/internal/frame"
	"limb-analyzer/internal/profile"

	"gonum.org/v1/gonum/floats"
)

// DetectThreshold locates the disk without OpenCV: pixels at or above
// EdgeFraction of peak are taken as disk, the center is their centroid and
// the radius is the equivalent-area circle radius sqrt(area/π). Detection
// failures surface as ExtractionError, the same taxonomy the extractor uses
// for bad geometry.
func DetectThreshold(g *frame.Grid, p Params) (Disk, error) {
	if g == nil || len(g.Pix) == 0 {
		return Disk{}, &profile.ExtractionError{Stage: "disk", Reason: "empty pixel grid"}
	}

	peak := floats.Max(g.Pix)
	base := floats.Min(g.Pix)
	if peak <= 0 {
		return Disk{}, &profile.ExtractionError{Stage: "disk", Reason: "image is all dark"}
	}
	level := p.EdgeFraction * peak
	if base >= level {
		return Disk{}, &profile.ExtractionError{Stage: "disk", Reason: "no clear disk above edge threshold"}
	}

	var sx, sy float64
	var count int
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.At(x, y) >= level {
				sx += float64(x)
				sy += float64(y)
				count++
			}
		}
	}
	if count == 0 {
		return Disk{}, &profile.ExtractionError{Stage: "disk", Reason: "no pixels above edge threshold"}
	}

	d := Disk{
		CX:     sx / float64(count),
		CY:     sy / float64(count),
		Radius: math.Sqrt(float64(count) / math.Pi),
		Method: MethodThreshold,
	}
	if d.Radius < p.MinRadiusPx {
		return Disk{}, &profile.ExtractionError{
			Stage:  "disk",
			Reason: fmt.Sprintf("disk radius %.1f px below minimum %.1f px", d.Radius, p.MinRadiusPx),
		}
	}
	return d, nil
}
