package geometry

import (
	"math"

	"github.com/fogleman/gg"
)

// MinOverlaySide is the smallest side an overlay can be resized to.
const MinOverlaySide = 50

// Default text overlay box and font size.
const (
	DefaultTextOverlayWidth  = 148
	DefaultTextOverlayHeight = 106
	DefaultTextFontSize      = 40
)

// Size is a width and height in pixels.
type Size struct {
	W, H float64
}

// EffectiveSize returns the axis-aligned bounding box of a w×h box rotated
// by the angle.
func EffectiveSize(s Size, degrees float64) Size {
	c, sn := cosSin(degrees)
	c, sn = math.Abs(c), math.Abs(sn)

	return Size{
		W: s.W*c + s.H*sn,
		H: s.W*sn + s.H*c,
	}
}

// ClampCenter keeps a box with the effective size eff inside the container:
// each coordinate of the center is clamped to [eff/2, container-eff/2].
// A box larger than the container on an axis is centered on that axis.
func ClampCenter(center gg.Point, eff, container Size) gg.Point {
	return gg.Point{
		X: clampAxis(center.X, eff.W, container.W),
		Y: clampAxis(center.Y, eff.H, container.H),
	}
}

func clampAxis(v, eff, container float64) float64 {
	lo, hi := eff/2, container-eff/2
	if lo > hi {
		return container / 2
	}

	return math.Max(lo, math.Min(hi, v))
}

// MaxDimension returns the largest side a square box rotated by the angle
// can have while centered at c on an axis of the given length.
func MaxDimension(c, length, degrees float64) float64 {
	cs, sn := cosSin(degrees)

	return (length - 2*math.Abs(c-length/2)) / (math.Abs(cs) + math.Abs(sn))
}

// Overlay is the transform of a watermark element on its base image.
type Overlay struct {
	Center   gg.Point
	Size     Size
	Rotation float64
}

// NewTextOverlay returns the default text overlay centered in the container.
func NewTextOverlay(container Size) Overlay {
	o := Overlay{
		Center: gg.Point{X: container.W / 2, Y: container.H / 2},
		Size:   Size{W: DefaultTextOverlayWidth, H: DefaultTextOverlayHeight},
	}

	return o.Clamp(container)
}

// Effective returns the bounding box of the rotated overlay.
func (o Overlay) Effective() Size {
	return EffectiveSize(o.Size, o.Rotation)
}

// Clamp moves the overlay so its rotated bounding box is inside the container.
func (o Overlay) Clamp(container Size) Overlay {
	o.Center = ClampCenter(o.Center, o.Effective(), container)
	return o
}

// Drag moves the overlay by (dx, dy), clamped to the container.
func (o Overlay) Drag(dx, dy float64, container Size) Overlay {
	o.Center.X += dx
	o.Center.Y += dy

	return o.Clamp(container)
}

// RotateTo sets the rotation, clamped to the container.
func (o Overlay) RotateTo(degrees float64, container Size) Overlay {
	o.Rotation = degrees
	return o.Clamp(container)
}

// ResizeBy grows the overlay width by delta keeping its aspect ratio. The
// shorter side never drops below MinOverlaySide and the longer side never
// exceeds what fits in the container at the current center and rotation.
func (o Overlay) ResizeBy(delta float64, container Size) Overlay {
	if o.Size.W <= 0 || o.Size.H <= 0 {
		return o
	}

	aspect := o.Size.H / o.Size.W
	w := o.Size.W + delta
	h := w * aspect

	if short := math.Min(w, h); short < MinOverlaySide {
		scale := MinOverlaySide / short
		w, h = w*scale, h*scale
	}

	limit := math.Min(
		MaxDimension(o.Center.X, container.W, o.Rotation),
		MaxDimension(o.Center.Y, container.H, o.Rotation),
	)
	if long := math.Max(w, h); limit > 0 && long > limit && math.Min(w, h)*limit/long >= MinOverlaySide {
		scale := limit / long
		w, h = w*scale, h*scale
	}

	o.Size = Size{W: w, H: h}

	return o.Clamp(container)
}
