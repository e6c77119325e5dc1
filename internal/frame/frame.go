// Package frame holds the raw grayscale pixel data handed to the analysis
// engine by the image-decoding collaborator.
package frame

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"math"
)

// Axis indicates the orientation of the drift scan within a grid.
type Axis int

const (
	// AxisHorizontal means the disk drifts along image rows (x direction).
	AxisHorizontal Axis = iota
	// AxisVertical means the disk drifts along image columns (y direction).
	AxisVertical
)

func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "horizontal"
	case AxisVertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// ParseAxis maps a CLI or config string onto an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "horizontal", "h", "x":
		return AxisHorizontal, nil
	case "vertical", "v", "y":
		return AxisVertical, nil
	default:
		return AxisHorizontal, fmt.Errorf("unknown scan axis %q (want horizontal or vertical)", s)
	}
}

// Grid is a dense row-major grayscale pixel grid. Intensities are float64 so
// the engine never re-quantizes; decoded 8-bit images use the 0-255 range.
type Grid struct {
	Width  int
	Height int
	Pix    []float64 // len == Width*Height, row-major
}

// NewGrid allocates an all-zero grid of the given dimensions.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d", width, height)
	}
	return &Grid{Width: width, Height: height, Pix: make([]float64, width*height)}, nil
}

// At returns the intensity at (x, y). Callers are expected to stay in bounds.
func (g *Grid) At(x, y int) float64 { return g.Pix[y*g.Width+x] }

// Set stores an intensity at (x, y).
func (g *Grid) Set(x, y int, v float64) { g.Pix[y*g.Width+x] = v }

// FromImage converts a decoded image into a grayscale grid using the standard
// luma weights.
func FromImage(img image.Image) *Grid {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	g := &Grid{Width: w, Height: h, Pix: make([]float64, w*h)}

	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g.Pix[y*w+x] = float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return g
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gr, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			g.Pix[y*w+x] = float64(uint8((19595*r + 38470*gr + 7471*b + 1<<15) >> 24))
		}
	}
	return g
}

// Fingerprint returns a stable hex digest of the grid contents. It keys the
// profile cache so re-analyzing the same image skips extraction.
func (g *Grid) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(g.Width))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(g.Height))
	h.Write(buf[:])
	for _, v := range g.Pix {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
