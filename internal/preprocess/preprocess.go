// Package preprocess prepares raw stellar images for disk detection and
// profile extraction: grayscale conversion, adaptive histogram equalization
// and noise filtering.
package preprocess

import (
	"image"

	"limb-analyzer/internal/frame"

	"gocv.io/x/gocv"
)

// Pipeline converts an image to grayscale and applies CLAHE, Gaussian
// smoothing and median filtering, producing a Mat clean enough for disk
// detection. The caller owns the returned Mat.
func Pipeline(src gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if src.Channels() >= 3 {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	} else {
		gray = src.Clone()
	}

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()
	equalized := gocv.NewMat()
	clahe.Apply(gray, &equalized)
	gray.Close()

	smoothed := gocv.NewMat()
	gocv.GaussianBlur(equalized, &smoothed, image.Pt(5, 5), 0, 0, gocv.BorderDefault)
	equalized.Close()

	filtered := gocv.NewMat()
	gocv.MedianBlur(smoothed, &filtered, 5)
	smoothed.Close()

	return filtered
}

// MatFromImage converts a decoded Go image into an 8-bit BGR Mat.
func MatFromImage(src image.Image) gocv.Mat {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat
}

// GridFromMat converts a single-channel Mat into the engine's pixel grid.
func GridFromMat(m gocv.Mat) *frame.Grid {
	rows, cols := m.Rows(), m.Cols()
	g := &frame.Grid{Width: cols, Height: rows, Pix: make([]float64, cols*rows)}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			g.Pix[y*cols+x] = float64(m.GetUCharAt(y, x))
		}
	}
	return g
}

// BoxBlur is a small pure-Go smoothing pass for drift-scan grids when the
// OpenCV pipeline is not wanted. Radius is in pixels; radius <= 0 returns the
// input untouched.
func BoxBlur(g *frame.Grid, radius int) *frame.Grid {
	if radius <= 0 {
		return g
	}
	out := &frame.Grid{Width: g.Width, Height: g.Height, Pix: make([]float64, len(g.Pix))}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			var sum float64
			var n int
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					px, py := x+dx, y+dy
					if px < 0 || px >= g.Width || py < 0 || py >= g.Height {
						continue
					}
					sum += g.At(px, py)
					n++
				}
			}
			out.Set(x, y, sum/float64(n))
		}
	}
	return out
}
