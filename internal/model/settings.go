package model

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// SettingsKind tags the concrete variant of Settings.
type SettingsKind string

const (
	SettingsNone        SettingsKind = "none"
	SettingsResize      SettingsKind = "resize"
	SettingsRotate      SettingsKind = "rotate"
	SettingsCrop        SettingsKind = "crop"
	SettingsWatermark   SettingsKind = "watermark"
	SettingsCompression SettingsKind = "compression"
)

// DefaultCompressionSlider is the slider position used when no level is chosen.
const DefaultCompressionSlider = 50

var (
	// ErrInvalidSettings is returned when a settings payload cannot be applied.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Settings holds the user-chosen parameters of one operation.
// It is implemented only by the variants declared in this package.
type Settings interface {
	Kind() SettingsKind
	isSettings()
}

// NoSettings is used by tools that take no parameters.
type NoSettings struct{}

// ResizeMode selects how the target size of a resize is given.
type ResizeMode string

const (
	ResizeBySize       ResizeMode = "size"
	ResizeByPercentage ResizeMode = "percentage"
)

// ResizeSettings describes a resize operation.
type ResizeSettings struct {
	Mode         ResizeMode `json:"mode"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	Percent      int        `json:"percent"`    // used in percentage mode
	AspectFit    bool       `json:"aspect_fit"` // pad instead of stretch
	Background   string     `json:"background"` // hex fill for padding, transparent when empty
	Preset       string     `json:"preset,omitempty"`
	PresetOption string     `json:"preset_option,omitempty"`
}

// RotateSettings describes a rotation with optional flips.
type RotateSettings struct {
	Angle          float64 `json:"angle"` // degrees, clockwise
	FlipHorizontal bool    `json:"flip_horizontal"`
	FlipVertical   bool    `json:"flip_vertical"`
}

// CropSettings describes a crop rectangle in source image pixels.
type CropSettings struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Aspect string `json:"aspect,omitempty"` // "1:1", "16:9", "Original", "Custom"
}

// OverlayTransform places an overlay on the base image. The center and size
// are in base image pixels and the rotation is in degrees.
type OverlayTransform struct {
	CenterX  float64 `json:"center_x"`
	CenterY  float64 `json:"center_y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// TextOverlay is a text watermark.
type TextOverlay struct {
	Text      string           `json:"text"`
	Font      string           `json:"font"`
	FontSize  float64          `json:"font_size"`
	Color     string           `json:"color"`   // hex, e.g. #FFFFFF
	Opacity   int              `json:"opacity"` // percent
	Transform OverlayTransform `json:"transform"`
}

// ImageOverlay is an image watermark read from Path. Batches submitted over
// HTTP carry the object stored under "<id>/watermark/" there.
type ImageOverlay struct {
	Path      string           `json:"path"`
	Opacity   int              `json:"opacity"` // percent
	Transform OverlayTransform `json:"transform"`
}

// WatermarkSettings holds the overlays drawn on every image of the batch.
type WatermarkSettings struct {
	Text  *TextOverlay  `json:"text,omitempty"`
	Image *ImageOverlay `json:"image,omitempty"`
}

// CompressionLevel is the position of the compression slider, 0 to 100.
type CompressionLevel struct {
	Slider int `json:"slider"`
}

func (NoSettings) Kind() SettingsKind        { return SettingsNone }
func (ResizeSettings) Kind() SettingsKind    { return SettingsResize }
func (RotateSettings) Kind() SettingsKind    { return SettingsRotate }
func (CropSettings) Kind() SettingsKind      { return SettingsCrop }
func (WatermarkSettings) Kind() SettingsKind { return SettingsWatermark }
func (CompressionLevel) Kind() SettingsKind  { return SettingsCompression }

func (NoSettings) isSettings()        {}
func (ResizeSettings) isSettings()    {}
func (RotateSettings) isSettings()    {}
func (CropSettings) isSettings()      {}
func (WatermarkSettings) isSettings() {}
func (CompressionLevel) isSettings()  {}

// TargetSize returns the output size of the resize for a source of the given size.
func (s ResizeSettings) TargetSize(src image.Point) (image.Point, error) {
	if s.Mode == ResizeByPercentage {
		if s.Percent <= 0 {
			return image.Point{}, fmt.Errorf("%w: percent must be positive", ErrInvalidSettings)
		}

		scale := float64(s.Percent) / 100
		return image.Pt(
			int(math.Max(1, math.Round(float64(src.X)*scale))),
			int(math.Max(1, math.Round(float64(src.Y)*scale))),
		), nil
	}

	if s.Width <= 0 || s.Height <= 0 {
		return image.Point{}, fmt.Errorf("%w: width and height must be positive", ErrInvalidSettings)
	}

	return image.Pt(s.Width, s.Height), nil
}

// SettingsEnvelope is the wire form of Settings.
type SettingsEnvelope struct {
	Kind        SettingsKind       `json:"kind"`
	Resize      *ResizeSettings    `json:"resize,omitempty"`
	Rotate      *RotateSettings    `json:"rotate,omitempty"`
	Crop        *CropSettings      `json:"crop,omitempty"`
	Watermark   *WatermarkSettings `json:"watermark,omitempty"`
	Compression *CompressionLevel  `json:"compression,omitempty"`
}

// Wrap puts settings into an envelope.
func Wrap(s Settings) SettingsEnvelope {
	switch v := s.(type) {
	case ResizeSettings:
		return SettingsEnvelope{Kind: SettingsResize, Resize: &v}
	case RotateSettings:
		return SettingsEnvelope{Kind: SettingsRotate, Rotate: &v}
	case CropSettings:
		return SettingsEnvelope{Kind: SettingsCrop, Crop: &v}
	case WatermarkSettings:
		return SettingsEnvelope{Kind: SettingsWatermark, Watermark: &v}
	case CompressionLevel:
		return SettingsEnvelope{Kind: SettingsCompression, Compression: &v}
	default:
		return SettingsEnvelope{Kind: SettingsNone}
	}
}

// Settings unwraps the envelope into its concrete variant.
func (e SettingsEnvelope) Settings() (Settings, error) {
	switch e.Kind {
	case SettingsNone, "":
		return NoSettings{}, nil
	case SettingsResize:
		if e.Resize != nil {
			return *e.Resize, nil
		}
	case SettingsRotate:
		if e.Rotate != nil {
			return *e.Rotate, nil
		}
	case SettingsCrop:
		if e.Crop != nil {
			return *e.Crop, nil
		}
	case SettingsWatermark:
		if e.Watermark != nil {
			return *e.Watermark, nil
		}
	case SettingsCompression:
		if e.Compression != nil {
			return *e.Compression, nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSettings, e.Kind)
	}

	return nil, fmt.Errorf("%w: missing %s payload", ErrInvalidSettings, e.Kind)
}

// ExpectedSettings returns the settings kind an action consumes.
func ExpectedSettings(a Action) SettingsKind {
	switch a {
	case ActionResize:
		return SettingsResize
	case ActionRotate:
		return SettingsRotate
	case ActionCrop:
		return SettingsCrop
	case ActionWatermark:
		return SettingsWatermark
	case ActionCompress:
		return SettingsCompression
	default:
		return SettingsNone
	}
}
