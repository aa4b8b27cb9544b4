package geometry

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

const epsilon = 1e-9

// cosSin returns the cosine and sine of the angle, with values that are
// zero up to rounding snapped to zero.
func cosSin(degrees float64) (float64, float64) {
	c, s := math.Cos(gg.Radians(degrees)), math.Sin(gg.Radians(degrees))
	if math.Abs(c) < epsilon {
		c = 0
	}
	if math.Abs(s) < epsilon {
		s = 0
	}

	return c, s
}

// IsRightAngle reports whether the angle is a multiple of 90 degrees.
func IsRightAngle(degrees float64) bool {
	return math.Abs(math.Remainder(degrees, 90)) < epsilon
}

// RotatedSize returns the size of the canvas that contains a w×h image
// rotated by the angle: |w·cos|+|h·sin| by |w·sin|+|h·cos|.
func RotatedSize(w, h int, degrees float64) image.Point {
	c, s := cosSin(degrees)

	nw := math.Abs(float64(w)*c) + math.Abs(float64(h)*s)
	nh := math.Abs(float64(w)*s) + math.Abs(float64(h)*c)

	return image.Pt(int(math.Ceil(nw-1e-6)), int(math.Ceil(nh-1e-6)))
}

// Rotate applies the flips and then the rotation. Multiples of 90 degrees
// use the bounding-box variant so nothing is clipped; any other angle keeps
// the original canvas.
func Rotate(img image.Image, degrees float64, flipH, flipV bool) *image.NRGBA {
	if IsRightAngle(degrees) {
		return RotateBounding(img, degrees, flipH, flipV)
	}

	return RotateInPlace(img, degrees, flipH, flipV)
}

// RotateBounding rotates img onto a canvas large enough to hold all of the
// rotated content. Uncovered corners are transparent.
func RotateBounding(img image.Image, degrees float64, flipH, flipV bool) *image.NRGBA {
	src := flip(img, flipH, flipV)

	if IsRightAngle(degrees) {
		switch quarterTurns(degrees) {
		case 1:
			return imaging.Rotate270(src)
		case 2:
			return imaging.Rotate180(src)
		case 3:
			return imaging.Rotate90(src)
		default:
			return src
		}
	}

	b := src.Bounds()

	return drawRotated(src, RotatedSize(b.Dx(), b.Dy(), degrees), degrees)
}

// RotateInPlace rotates img around its center keeping the canvas size.
// Content outside the canvas is clipped.
func RotateInPlace(img image.Image, degrees float64, flipH, flipV bool) *image.NRGBA {
	src := flip(img, flipH, flipV)

	return drawRotated(src, src.Bounds().Size(), degrees)
}

func drawRotated(src image.Image, canvas image.Point, degrees float64) *image.NRGBA {
	dc := gg.NewContext(canvas.X, canvas.Y)
	dc.Translate(float64(canvas.X)/2, float64(canvas.Y)/2)
	dc.Rotate(gg.Radians(degrees))
	dc.DrawImageAnchored(src, 0, 0, 0.5, 0.5)

	return imaging.Clone(dc.Image())
}

// quarterTurns returns the number of clockwise quarter turns, 0 to 3.
func quarterTurns(degrees float64) int {
	n := int(math.Round(degrees/90)) % 4
	if n < 0 {
		n += 4
	}
	return n
}

func flip(img image.Image, flipH, flipV bool) *image.NRGBA {
	out := imaging.Clone(img)
	if flipH {
		out = imaging.FlipH(out)
	}
	if flipV {
		out = imaging.FlipV(out)
	}
	return out
}
