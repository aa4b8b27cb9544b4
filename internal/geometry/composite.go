package geometry

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// Layer is one watermark element: an image drawn at the overlay transform
// with the given opacity, 0 to 1.
type Layer struct {
	Image   image.Image
	Opacity float64
	Overlay Overlay
}

// Composite draws the layers on top of base in order, respecting alpha, and
// returns a new image of the size of base.
func Composite(base image.Image, layers ...Layer) *image.NRGBA {
	dc := gg.NewContextForImage(base)

	for _, l := range layers {
		if l.Image == nil || l.Opacity <= 0 {
			continue
		}

		w := max(1, int(math.Round(l.Overlay.Size.W)))
		h := max(1, int(math.Round(l.Overlay.Size.H)))

		img := imaging.Resize(l.Image, w, h, imaging.Lanczos)
		if l.Opacity < 1 {
			img = WithOpacity(img, l.Opacity)
		}

		dc.Push()
		dc.Translate(l.Overlay.Center.X, l.Overlay.Center.Y)
		dc.Rotate(gg.Radians(l.Overlay.Rotation))
		dc.DrawImageAnchored(img, 0, 0, 0.5, 0.5)
		dc.Pop()
	}

	return imaging.Clone(dc.Image())
}

// WithOpacity scales the alpha of every pixel by opacity.
func WithOpacity(img image.Image, opacity float64) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.Transparent)

	return imaging.Overlay(canvas, img, image.Pt(0, 0), opacity)
}

// TextLayer renders text centered in a transparent box of the given size.
func TextLayer(text string, face font.Face, col color.Color, box Size) image.Image {
	w := max(1, int(math.Round(box.W)))
	h := max(1, int(math.Round(box.H)))

	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)
	dc.SetColor(col)
	dc.DrawStringAnchored(text, float64(w)/2, float64(h)/2, 0.5, 0.5)

	return dc.Image()
}
