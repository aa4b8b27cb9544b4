// Package geometry implements the pure image transforms of the converter:
// resize, rotate and flip, crop, compress and watermark compositing, plus the
// arithmetic that keeps interactive overlays inside their container.
//
// Angles are given in degrees, clockwise on screen, and converted to radians
// only for trigonometry.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidSize is returned when a target dimension is not positive.
	ErrInvalidSize = errors.New("invalid target size")
	// ErrEmptyImage is returned when the source image has no pixels.
	ErrEmptyImage = errors.New("empty image")
)

// FitSize returns the size of src scaled to fit inside target with its
// aspect ratio preserved.
func FitSize(src, target image.Point) image.Point {
	scale := math.Min(float64(target.X)/float64(src.X), float64(target.Y)/float64(src.Y))

	return image.Pt(
		clamp(int(math.Round(float64(src.X)*scale)), 1, target.X),
		clamp(int(math.Round(float64(src.Y)*scale)), 1, target.Y),
	)
}

// Resize scales img to target. With aspectFit the content keeps its aspect
// ratio and is centered on a canvas of exactly target size, padded with fill
// (transparent when fill is nil). Without it the image is stretched.
func Resize(img image.Image, target image.Point, aspectFit bool, fill color.Color) (*image.NRGBA, error) {
	if target.X <= 0 || target.Y <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, target.X, target.Y)
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}

	if !aspectFit {
		return imaging.Resize(img, target.X, target.Y, imaging.Lanczos), nil
	}

	content := FitSize(b.Size(), target)
	scaled := imaging.Resize(img, content.X, content.Y, imaging.Lanczos)

	if fill == nil {
		fill = color.Transparent
	}
	canvas := imaging.New(target.X, target.Y, fill)
	offset := image.Pt((target.X-content.X)/2, (target.Y-content.Y)/2)

	return imaging.Overlay(canvas, scaled, offset, 1), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
