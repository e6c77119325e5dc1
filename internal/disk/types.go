// Package disk locates the stellar disk on a full 2D image ahead of radial
// profile extraction.
package disk

// Method indicates how a disk was located.
type Method int

const (
	// MethodHough indicates detection via Hough circle transform.
	MethodHough Method = iota
	// MethodThreshold indicates the pure-Go threshold/centroid fallback.
	MethodThreshold
)

func (m Method) String() string {
	switch m {
	case MethodHough:
		return "Hough"
	case MethodThreshold:
		return "Threshold"
	default:
		return "Unknown"
	}
}

// Disk is a located stellar disk in image pixel coordinates.
type Disk struct {
	CX     float64
	CY     float64
	Radius float64
	Method Method
}

// Params holds disk detection parameters.
type Params struct {
	// Hough circle tuning.
	HoughDP     float64 // inverse accumulator resolution ratio
	HoughParam1 float64 // Canny high threshold
	HoughParam2 float64 // accumulator threshold

	// Expected disk size as fractions of image height.
	MinRadiusFrac float64
	MaxRadiusFrac float64

	// Threshold fallback: fraction of peak intensity separating disk from
	// background.
	EdgeFraction float64

	// MinRadiusPx rejects detections too small to profile.
	MinRadiusPx float64
}

// DefaultParams returns detection defaults tuned for a single dominant disk
// occupying a substantial part of the frame.
func DefaultParams() Params {
	return Params{
		HoughDP:       1,
		HoughParam1:   50,
		HoughParam2:   30,
		MinRadiusFrac: 0.125,
		MaxRadiusFrac: 0.5,
		EdgeFraction:  0.5,
		MinRadiusPx:   10,
	}
}
