package processor

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"

	"github.com/aliskhannn/image-converter/internal/catalog"
	"github.com/aliskhannn/image-converter/internal/codec"
	"github.com/aliskhannn/image-converter/internal/convert"
	"github.com/aliskhannn/image-converter/internal/geometry"
	"github.com/aliskhannn/image-converter/internal/model"
)

// ErrSettingsMismatch is returned when the settings do not belong to the tool's action.
var ErrSettingsMismatch = errors.New("settings do not match tool action")

// Options configures a Processor.
type Options struct {
	FontDir     string // directory holding <Font>.ttf files
	JPEGQuality int    // quality for every transform except compress
}

// Processor applies the geometric transforms of the image tools
// (resize, rotate, crop, watermark, compress) to single files.
type Processor struct {
	quality int
	fonts   *fontCache
}

// New creates a new Processor.
func New(opts Options) *Processor {
	q := opts.JPEGQuality
	if q <= 0 || q > codec.MaxQuality {
		q = codec.MaxQuality
	}

	return &Processor{
		quality: q,
		fonts:   newFontCache(opts.FontDir),
	}
}

// Apply decodes src, transforms it with the settings and writes the result
// to "<outDir>/<base>_converted.<ext>" in the tool's destination format.
func (p *Processor) Apply(src, outDir string, tool model.Tool, settings model.Settings) (string, error) {
	if want := model.ExpectedSettings(tool.Action); settings == nil || settings.Kind() != want {
		return "", fmt.Errorf("%w: %s needs %s settings", ErrSettingsMismatch, tool.Action, want)
	}

	img, err := codec.Open(src)
	if err != nil {
		return "", err
	}

	out, quality, err := p.Transform(img, settings)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", tool.Action, src, err)
	}

	dst := convert.OutputPath(outDir, src, tool.To.Extension())
	if err := codec.Save(out, dst, tool.To, quality); err != nil {
		return "", err
	}

	return dst, nil
}

// Transform runs the transform the settings variant selects and returns the
// image with the JPEG quality to encode it with.
func (p *Processor) Transform(img image.Image, settings model.Settings) (image.Image, int, error) {
	switch s := settings.(type) {
	case model.ResizeSettings:
		out, err := p.resize(img, s)
		return out, p.quality, err
	case model.RotateSettings:
		return geometry.Rotate(img, s.Angle, s.FlipHorizontal, s.FlipVertical), p.quality, nil
	case model.CropSettings:
		out, err := crop(img, s)
		return out, p.quality, err
	case model.WatermarkSettings:
		out, err := p.watermark(img, s)
		return out, p.quality, err
	case model.CompressionLevel:
		out, quality := geometry.Compress(img, float64(s.Slider))
		return out, quality, nil
	case model.NoSettings:
		return nil, 0, fmt.Errorf("%w: no transform for empty settings", model.ErrInvalidSettings)
	default:
		return nil, 0, fmt.Errorf("%w: %T", model.ErrInvalidSettings, settings)
	}
}

func (p *Processor) resize(img image.Image, s model.ResizeSettings) (image.Image, error) {
	if s.Preset != "" {
		if size, ok := catalog.FindPreset(s.Preset, s.PresetOption); ok {
			s.Mode, s.Width, s.Height = model.ResizeBySize, size.X, size.Y
		}
	}

	target, err := s.TargetSize(img.Bounds().Size())
	if err != nil {
		return nil, err
	}

	fill, err := parseColor(s.Background)
	if err != nil {
		return nil, err
	}

	return geometry.Resize(img, target, s.AspectFit, fill)
}

func crop(img image.Image, s model.CropSettings) (image.Image, error) {
	b := img.Bounds()
	rect := image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height).Add(b.Min)

	if a, ok := catalog.FindAspect(s.Aspect); ok && a.Pinned() {
		return geometry.CropAspect(img, rect, geometry.Ratio{W: a.W, H: a.H})
	}

	return geometry.Crop(img, rect)
}

func (p *Processor) watermark(img image.Image, s model.WatermarkSettings) (image.Image, error) {
	b := img.Bounds()
	container := geometry.Size{W: float64(b.Dx()), H: float64(b.Dy())}

	var layers []geometry.Layer

	if t := s.Image; t != nil {
		mark, err := codec.Open(t.Path)
		if err != nil {
			return nil, fmt.Errorf("watermark image: %w", err)
		}

		ms := mark.Bounds().Size()
		o := overlayFor(t.Transform, geometry.Size{W: float64(ms.X), H: float64(ms.Y)}, container)
		layers = append(layers, geometry.Layer{Image: mark, Opacity: opacity(t.Opacity), Overlay: o})
	}

	if t := s.Text; t != nil && t.Text != "" {
		o := overlayFor(t.Transform, geometry.Size{W: geometry.DefaultTextOverlayWidth, H: geometry.DefaultTextOverlayHeight}, container)

		col, err := parseColor(t.Color)
		if err != nil {
			return nil, err
		}
		if col == nil {
			col = defaultTextColor
		}

		face, err := p.fonts.fit(t.Font, t.FontSize, t.Text, o.Size)
		if err != nil {
			return nil, err
		}

		layers = append(layers, geometry.Layer{
			Image:   geometry.TextLayer(t.Text, face, col, o.Size),
			Opacity: opacity(t.Opacity),
			Overlay: o,
		})
	}

	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: watermark has no text or image", model.ErrInvalidSettings)
	}

	return geometry.Composite(img, layers...), nil
}

// overlayFor builds the overlay of a transform. A missing size falls back to
// def and a missing center to the middle of the container.
func overlayFor(t model.OverlayTransform, def, container geometry.Size) geometry.Overlay {
	o := geometry.Overlay{
		Center:   gg.Point{X: t.CenterX, Y: t.CenterY},
		Size:     geometry.Size{W: t.Width, H: t.Height},
		Rotation: t.Rotation,
	}

	if o.Size.W <= 0 || o.Size.H <= 0 {
		o.Size = def
	}
	if t.CenterX == 0 && t.CenterY == 0 {
		o.Center = gg.Point{X: container.W / 2, Y: container.H / 2}
	}

	return o.Clamp(container)
}

// opacity converts a percentage to [0, 1]. Zero means fully opaque.
func opacity(percent int) float64 {
	if percent <= 0 {
		return 1
	}

	return math.Min(1, float64(percent)/100)
}
