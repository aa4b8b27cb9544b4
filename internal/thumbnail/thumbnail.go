// Package thumbnail renders preview images of input files.
package thumbnail

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/gen2brain/go-fitz"

	"github.com/aliskhannn/image-converter/internal/codec"
	"github.com/aliskhannn/image-converter/internal/dispatch"
	"github.com/aliskhannn/image-converter/internal/geometry"
	"github.com/aliskhannn/image-converter/internal/model"
)

// ErrUnsupported is returned for files that are neither PDFs nor images.
var ErrUnsupported = errors.New("no preview for file type")

// Generator renders previews, falling back to a placeholder.
type Generator struct {
	dispatcher dispatch.Dispatcher
}

// New creates a Generator that delivers asynchronous previews through d.
func New(d dispatch.Dispatcher) *Generator {
	if d == nil {
		d = dispatch.Inline{}
	}

	return &Generator{dispatcher: d}
}

// Thumbnail renders the preview on a new goroutine and hands it to done
// through the dispatcher.
func (g *Generator) Thumbnail(path string, size image.Point, scale float64, done func(image.Image)) {
	go func() {
		img := g.Render(path, size, scale)
		g.dispatcher.Dispatch(func() { done(img) })
	}()
}

// Render returns the preview of the file, aspect-fit into size×scale
// pixels. Files that cannot be rendered get the placeholder.
func (g *Generator) Render(path string, size image.Point, scale float64) image.Image {
	px := Pixels(size, scale)

	img, err := Preview(path, px)
	if err != nil {
		return Placeholder(px)
	}

	return img
}

// Preview renders the first page of a PDF or the decoded image, aspect-fit
// and centered on a transparent canvas of exactly px.
func Preview(path string, px image.Point) (image.Image, error) {
	format, ok := model.FormatFromPath(path)

	var (
		src image.Image
		err error
	)

	switch {
	case ok && format == model.FormatPDF:
		src, err = firstPage(path)
	case ok && format.IsRaster():
		src, err = codec.Open(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	if err != nil {
		return nil, err
	}

	return geometry.Resize(src, px, true, nil)
}

func firstPage(path string) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("open pdf: no pages")
	}

	page, err := doc.ImageDPI(0, 72)
	if err != nil {
		return nil, fmt.Errorf("render pdf page: %w", err)
	}

	return codec.Flatten(page, color.White), nil
}

// Pixels converts a size in points to pixels, at least 1×1.
func Pixels(size image.Point, scale float64) image.Point {
	if scale <= 0 {
		scale = 1
	}

	return image.Pt(
		max(1, int(math.Round(float64(size.X)*scale))),
		max(1, int(math.Round(float64(size.Y)*scale))),
	)
}

var (
	placeholderBackground = color.NRGBA{R: 0xf2, G: 0xf2, B: 0xf7, A: 0xff}
	placeholderInk        = color.NRGBA{R: 0xae, G: 0xae, B: 0xb2, A: 0xff}
)

// Placeholder draws the generic document preview: a page with a folded
// corner on a light background.
func Placeholder(px image.Point) image.Image {
	w, h := float64(px.X), float64(px.Y)
	dc := gg.NewContext(px.X, px.Y)

	dc.SetColor(placeholderBackground)
	dc.Clear()

	side := math.Min(w, h) * 0.5
	pw, ph := side*0.75, side
	x, y := (w-pw)/2, (h-ph)/2
	fold := pw * 0.3

	dc.MoveTo(x, y)
	dc.LineTo(x+pw-fold, y)
	dc.LineTo(x+pw, y+fold)
	dc.LineTo(x+pw, y+ph)
	dc.LineTo(x, y+ph)
	dc.ClosePath()
	dc.SetColor(placeholderInk)
	dc.SetLineWidth(math.Max(1, side/24))
	dc.Stroke()

	dc.MoveTo(x+pw-fold, y)
	dc.LineTo(x+pw-fold, y+fold)
	dc.LineTo(x+pw, y+fold)
	dc.Stroke()

	return dc.Image()
}
