// Package codec decodes every raster format the converter accepts and
// encodes the formats it writes.
package codec

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	_ "golang.org/x/image/webp" // register the WebP decoder

	"github.com/aliskhannn/image-converter/internal/model"
)

// MaxQuality is the JPEG quality matching a compression quality of 1.0.
const MaxQuality = 100

var (
	// ErrNoImage is returned when a file does not decode to an image.
	ErrNoImage = errors.New("no image decoded")
	// ErrUnsupportedFormat is returned when a format cannot be written.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Open decodes the image file at path, choosing the decoder by extension.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	format, _ := model.FormatFromPath(path)

	img, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return img, nil
}

// Decode reads an image of the given format. HEIC and HEIF go through the
// HEIF decoder; everything else is sniffed, with EXIF orientation applied.
func Decode(r io.Reader, format model.Format) (image.Image, error) {
	var (
		img image.Image
		err error
	)

	switch format {
	case model.FormatHEIC, model.FormatHEIF:
		img, err = goheif.Decode(r)
	default:
		img, err = imaging.Decode(r, imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoImage
	}

	return img, nil
}

// Encode writes img in the target format. JPEG output is flattened onto
// white and written at the given quality. WebP output is PNG data, since
// there is no WebP encoder; WebP readers are expected to sniff it.
func Encode(w io.Writer, img image.Image, to model.Format, quality int) error {
	var err error

	switch to {
	case model.FormatJPG, model.FormatIMG:
		if quality <= 0 || quality > MaxQuality {
			quality = MaxQuality
		}
		err = imaging.Encode(w, Flatten(img, color.White), imaging.JPEG, imaging.JPEGQuality(quality))
	case model.FormatPNG, model.FormatWEBP:
		err = imaging.Encode(w, img, imaging.PNG)
	case model.FormatGIF:
		err = imaging.Encode(w, img, imaging.GIF)
	case model.FormatTIFF:
		err = imaging.Encode(w, img, imaging.TIFF)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, to)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", to, err)
	}

	return nil
}

// Save encodes img into a new file at path.
func Save(img image.Image, path string, to model.Format, quality int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err = Encode(f, img, to, quality); err != nil {
		_ = os.Remove(path)
		return err
	}

	return nil
}

// Flatten composites img over a solid background, removing transparency.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)

	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1)
}
