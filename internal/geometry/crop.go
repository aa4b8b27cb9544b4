package geometry

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ErrEmptyCrop is returned when the crop rectangle does not cover any pixel.
var ErrEmptyCrop = errors.New("crop rectangle is outside the image")

// MinCropSide is the smallest side an interactively resized crop rectangle can have.
const MinCropSide = 20

// Ratio is a pinned width:height aspect ratio.
type Ratio struct {
	W, H int
}

// Valid reports whether both terms are positive.
func (r Ratio) Valid() bool { return r.W > 0 && r.H > 0 }

// Handle is the corner of a crop rectangle being dragged.
type Handle int

const (
	HandleTopLeft Handle = iota
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
)

// Crop cuts rect out of img. rect is in the coordinates of img's bounds and
// is clipped to them.
func Crop(img image.Image, rect image.Rectangle) (*image.NRGBA, error) {
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyCrop
	}

	return imaging.Crop(img, r), nil
}

// CropAspect crops img to the largest rectangle of the given ratio that fits
// inside rect, centered on it.
func CropAspect(img image.Image, rect image.Rectangle, ratio Ratio) (*image.NRGBA, error) {
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyCrop
	}

	if ratio.Valid() {
		r = FitRatio(r, ratio)
	}

	return Crop(img, r)
}

// FitRatio returns the largest rectangle with the ratio that fits inside
// rect, sharing its center.
func FitRatio(rect image.Rectangle, ratio Ratio) image.Rectangle {
	if !ratio.Valid() || rect.Empty() {
		return rect
	}

	w, h := float64(rect.Dx()), float64(rect.Dy())
	want := float64(ratio.W) / float64(ratio.H)

	if w/h > want {
		w = h * want
	} else {
		h = w / want
	}

	nw := max(1, int(math.Round(w)))
	nh := max(1, int(math.Round(h)))
	cx := rect.Min.X + rect.Dx()/2
	cy := rect.Min.Y + rect.Dy()/2
	origin := image.Pt(cx-nw/2, cy-nh/2)

	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(nw, nh))}
}

// ResizeRect moves one corner of rect by (dx, dy) while the opposite corner
// stays put, as when the user drags a crop handle. The result stays inside
// bounds, is at least MinCropSide on each side and, when ratio is valid,
// keeps that aspect ratio.
func ResizeRect(rect image.Rectangle, handle Handle, dx, dy int, ratio Ratio, bounds image.Rectangle) image.Rectangle {
	left := handle == HandleTopLeft || handle == HandleBottomLeft
	top := handle == HandleTopLeft || handle == HandleTopRight

	anchor := image.Pt(rect.Min.X, rect.Min.Y)
	if left {
		anchor.X = rect.Max.X
	}
	if top {
		anchor.Y = rect.Max.Y
	}

	// Room available between the anchor and the bounds in the drag direction.
	maxW := float64(bounds.Max.X - anchor.X)
	if left {
		maxW = float64(anchor.X - bounds.Min.X)
	}
	maxH := float64(bounds.Max.Y - anchor.Y)
	if top {
		maxH = float64(anchor.Y - bounds.Min.Y)
	}

	sx, sy := 1.0, 1.0
	if left {
		sx = -1
	}
	if top {
		sy = -1
	}

	w := float64(rect.Dx()) + sx*float64(dx)
	h := float64(rect.Dy()) + sy*float64(dy)
	w, h = math.Max(1, w), math.Max(1, h)
	minSide := math.Min(float64(MinCropSide), math.Min(maxW, maxH))

	if ratio.Valid() {
		want := float64(ratio.W) / float64(ratio.H)
		if math.Abs(float64(dx)) >= math.Abs(float64(dy)) {
			h = w / want
		} else {
			w = h * want
		}

		// Shrink both sides together until the rectangle fits.
		scale := math.Min(1, math.Min(maxW/w, maxH/h))
		w, h = w*scale, h*scale

		// Grow both sides together up to the minimum.
		if s := math.Min(w, h); s < minSide {
			grow := minSide / s
			w, h = w*grow, h*grow
		}
	} else {
		w = math.Max(minSide, math.Min(w, maxW))
		h = math.Max(minSide, math.Min(h, maxH))
	}

	nw, nh := int(math.Round(w)), int(math.Round(h))

	out := image.Rectangle{Min: anchor, Max: anchor.Add(image.Pt(nw, nh))}
	if left {
		out.Min.X, out.Max.X = anchor.X-nw, anchor.X
	}
	if top {
		out.Min.Y, out.Max.Y = anchor.Y-nh, anchor.Y
	}

	return out
}
