package disk

import (
	"limb-analyzer/internal/frame"
	"limb-analyzer/internal/preprocess"

	"gocv.io/x/gocv"
)

// Detect locates the stellar disk on a grayscale Mat. It tries the Hough
// circle transform first and falls back to the pure-Go threshold detector
// when no circle is found, mirroring the layered approach used for round
// feature detection elsewhere in this codebase.
func Detect(gray gocv.Mat, p Params) (Disk, error) {
	if d, ok := detectHough(gray, p); ok {
		if d.Radius >= p.MinRadiusPx {
			return d, nil
		}
	}
	return DetectThreshold(preprocess.GridFromMat(gray), p)
}

// detectHough runs the Hough circle transform and returns the largest circle
// found, if any.
func detectHough(gray gocv.Mat, p Params) (Disk, bool) {
	h := gray.Rows()
	minDist := float64(h) / 2 // expect one dominant disk
	minR := int(float64(h) * p.MinRadiusFrac)
	maxR := int(float64(h) * p.MaxRadiusFrac)

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(gray, &circles, gocv.HoughGradient,
		p.HoughDP, minDist, p.HoughParam1, p.HoughParam2, minR, maxR)

	if circles.Empty() || circles.Cols() == 0 {
		return Disk{}, false
	}

	best := Disk{Method: MethodHough}
	for i := 0; i < circles.Cols(); i++ {
		r := float64(circles.GetFloatAt(0, i*3+2))
		if r > best.Radius {
			best.CX = float64(circles.GetFloatAt(0, i*3))
			best.CY = float64(circles.GetFloatAt(0, i*3+1))
			best.Radius = r
		}
	}
	return best, true
}

// DetectFromGrid is the gocv-free entry point for callers that only hold a
// pixel grid.
func DetectFromGrid(g *frame.Grid, p Params) (Disk, error) {
	return DetectThreshold(g, p)
}
