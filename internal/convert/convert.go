// Package convert changes the format of files: raster to raster, raster to
// a single PDF page, and PDF pages to a zip of rasters.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/jung-kurt/gofpdf"

	"github.com/aliskhannn/image-converter/internal/archive"
	"github.com/aliskhannn/image-converter/internal/cancel"
	"github.com/aliskhannn/image-converter/internal/codec"
	"github.com/aliskhannn/image-converter/internal/model"
)

// Size of the PDF page images are placed on, in points (US Letter).
const (
	PageWidth  = 612.0
	PageHeight = 792.0
)

// DefaultRenderDPI renders PDF pages at their media box size, one pixel per point.
const DefaultRenderDPI = 72.0

var (
	// ErrCancelled is returned when the token fires between pages.
	ErrCancelled = errors.New("conversion cancelled")
	// ErrInvalidPDF is returned when a PDF cannot be parsed or has no pages.
	ErrInvalidPDF = errors.New("invalid pdf")
	// ErrUnsupportedTool is returned for tools that are not format conversions.
	ErrUnsupportedTool = errors.New("tool is not a conversion")
)

// Options configures an Engine.
type Options struct {
	JPEGQuality int     // 1-100, defaults to 100
	RenderDPI   float64 // defaults to DefaultRenderDPI
	TempDir     string  // parent of per-run page directories, defaults to os.TempDir
}

// Engine performs format conversions. It holds no per-run state and is safe
// for concurrent use.
type Engine struct {
	opts Options
}

// New creates an Engine, filling zero options with defaults.
func New(opts Options) *Engine {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > codec.MaxQuality {
		opts.JPEGQuality = codec.MaxQuality
	}
	if opts.RenderDPI <= 0 {
		opts.RenderDPI = DefaultRenderDPI
	}

	return &Engine{opts: opts}
}

// OutputPath returns "<outDir>/<base>_converted.<ext>" for the source file.
func OutputPath(outDir, src, ext string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

	return filepath.Join(outDir, base+"_converted."+ext)
}

// Convert runs the conversion the tool's category selects and returns the
// output location.
func (e *Engine) Convert(src, outDir string, tool model.Tool, token *cancel.Token) (string, error) {
	switch tool.Category {
	case model.CategoryImageToImage:
		return e.ImageToImage(src, outDir, tool.To)
	case model.CategoryImageToPDF:
		return e.ImageToPDF(src, outDir)
	case model.CategoryPDFToImage:
		return e.PDFToImages(src, outDir, tool.To, token)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedTool, tool.ID)
	}
}

// ImageToImage decodes src and re-encodes it in the target format.
func (e *Engine) ImageToImage(src, outDir string, to model.Format) (string, error) {
	img, err := codec.Open(src)
	if err != nil {
		return "", err
	}

	dst := OutputPath(outDir, src, to.Extension())
	if err := codec.Save(img, dst, to, e.opts.JPEGQuality); err != nil {
		return "", err
	}

	return dst, nil
}

// ImageToPDF places src on a single Letter page, scaled to fit with its
// aspect ratio preserved and centered.
func (e *Engine) ImageToPDF(src, outDir string) (string, error) {
	img, err := codec.Open(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, imaging.Clone(img), model.FormatPNG, 0); err != nil {
		return "", err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("page", opts, &buf)

	x, y, w, h := FitOnPage(img.Bounds().Size())
	pdf.ImageOptions("page", x, y, w, h, false, opts, 0, "")

	dst := OutputPath(outDir, src, model.FormatPDF.Extension())
	if err := pdf.OutputFileAndClose(dst); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}

	return dst, nil
}

// FitOnPage returns the rectangle, in points, an image of the given pixel
// size occupies on the page.
func FitOnPage(size image.Point) (x, y, w, h float64) {
	scale := min(PageWidth/float64(size.X), PageHeight/float64(size.Y))
	w, h = float64(size.X)*scale, float64(size.Y)*scale

	return (PageWidth - w) / 2, (PageHeight - h) / 2, w, h
}

// PDFToImages renders every page of src on white, writes the pages as
// page_<n>.<ext> into a temporary directory and zips them to
// "<base>_converted.zip" in outDir, replacing an existing archive. The token
// is checked before each page.
func (e *Engine) PDFToImages(src, outDir string, to model.Format, token *cancel.Token) (string, error) {
	if !to.IsRaster() {
		return "", fmt.Errorf("%w: %s", codec.ErrUnsupportedFormat, to)
	}

	doc, err := fitz.New(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return "", fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}

	pagesDir, err := os.MkdirTemp(e.opts.TempDir, "pages-*")
	if err != nil {
		return "", fmt.Errorf("create pages dir: %w", err)
	}
	defer os.RemoveAll(pagesDir)

	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if token != nil && token.IsCancelled() {
			return "", ErrCancelled
		}

		img, err := e.renderPage(doc, i)
		if err != nil {
			return "", err
		}

		page := filepath.Join(pagesDir, fmt.Sprintf("page_%d.%s", i+1, to.Extension()))
		if err := codec.Save(img, page, to, e.opts.JPEGQuality); err != nil {
			return "", err
		}

		pages = append(pages, page)
	}

	dst := OutputPath(outDir, src, model.FormatZIP.Extension())
	if err := archive.WriteFile(dst, pages); err != nil {
		return "", err
	}

	return dst, nil
}

func (e *Engine) renderPage(doc *fitz.Document, n int) (image.Image, error) {
	page, err := doc.ImageDPI(n, e.opts.RenderDPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", n+1, err)
	}

	b := page.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)

	return imaging.Overlay(bg, page, image.Pt(0, 0), 1), nil
}
