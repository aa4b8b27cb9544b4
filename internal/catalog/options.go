package catalog

import (
	"image"
	"slices"
	"strings"
)

// Preset is a named resize target. Presets with options group several
// targets for one platform.
type Preset struct {
	Name    string         `json:"name"`
	Size    *image.Point   `json:"size,omitempty"`
	Options []PresetOption `json:"options,omitempty"`
}

// PresetOption is one target of a grouped preset.
type PresetOption struct {
	Name string      `json:"name"`
	Size image.Point `json:"size"`
}

// Aspect is a crop aspect ratio. Original and Custom carry no ratio.
type Aspect struct {
	Title string `json:"title"`
	W     int    `json:"w,omitempty"`
	H     int    `json:"h,omitempty"`
}

// Pinned reports whether the aspect constrains the crop rectangle.
func (a Aspect) Pinned() bool { return a.W > 0 && a.H > 0 }

// Options is the set of choices offered by the settings of the tools.
type Options struct {
	Presets []Preset `json:"presets"`
	Aspects []Aspect `json:"aspects"`
	Fonts   []string `json:"fonts"`
	Colors  []string `json:"colors"`
}

// DefaultFont is the font of a new text watermark.
const DefaultFont = "Raleway"

func size(w, h int) *image.Point {
	p := image.Pt(w, h)
	return &p
}

func opt(name string, w, h int) PresetOption {
	return PresetOption{Name: name, Size: image.Pt(w, h)}
}

var presets = []Preset{
	{Name: "Custom", Size: size(1024, 1024)},
	{Name: "320 x 240 (pixels)", Size: size(320, 240)},
	{Name: "640 x 480 (pixels)", Size: size(640, 480)},
	{Name: "800 x 600 (pixels)", Size: size(800, 600)},
	{Name: "1280 x 1024 (pixels)", Size: size(1280, 1024)},
	{Name: "1280 x 720 (pixels) HD", Size: size(1280, 720)},
	{Name: "1920 x 1080 (pixels) Full HD", Size: size(1920, 1080)},
	{Name: "Facebook", Options: []PresetOption{
		opt("Page cover 820 × 312", 820, 312),
		opt("Story 1080 × 1920", 1080, 1920),
		opt("Profile image 180 × 180", 180, 180),
		opt("Group cover 1640 × 859", 1640, 859),
		opt("Post 1200 x 900", 1200, 900),
	}},
	{Name: "Instagram", Options: []PresetOption{
		opt("Story 1080 x 1920", 1080, 1920),
		opt("Square 1080 x 1080", 1080, 1080),
		opt("Portrait 1080 x 1350", 1080, 1350),
		opt("Landscape 1080 x 566", 1080, 566),
	}},
	{Name: "X (Twitter)", Options: []PresetOption{
		opt("Post 1200 x 670", 1200, 670),
		opt("Header 1500 × 500", 1500, 500),
		opt("Profile image 400 × 400", 400, 400),
		opt("Share image 1200 × 675", 1200, 675),
	}},
	{Name: "YouTube", Options: []PresetOption{
		opt("Thumbnail 1280 x 720", 1280, 720),
		opt("Channel art 2560 × 1440", 2560, 1440),
		opt("Channel icon 800 × 800", 800, 800),
	}},
	{Name: "Pinterest", Options: []PresetOption{
		opt("Pin 735 x 1102", 735, 1102),
		opt("Pin 800 × 1200", 800, 1200),
		opt("Board cover 222 × 150", 222, 150),
		opt("Small thumbnail 55 × 55", 55, 55),
		opt("Big Thumbnail 222 × 150", 222, 150),
	}},
	{Name: "Linkedin", Options: []PresetOption{
		opt("Personal background 1584 × 396", 1584, 396),
		opt("Company background 1536 × 768", 1536, 768),
		opt("Company hero 1128 × 376", 1128, 376),
		opt("Square image 1140 × 736", 1140, 736),
		opt("Company banner 646 × 220", 646, 220),
		opt("Profile image 400 × 400", 400, 400),
		opt("Company logo 300 × 300", 300, 300),
		opt("Square logo 60 × 60", 60, 60),
	}},
}

var aspects = []Aspect{
	{Title: "Original"},
	{Title: "Custom"},
	{Title: "1:1", W: 1, H: 1},
	{Title: "2:1", W: 2, H: 1},
	{Title: "3:4", W: 3, H: 4},
	{Title: "4:5", W: 4, H: 5},
	{Title: "9:16", W: 9, H: 16},
	{Title: "16:9", W: 16, H: 9},
}

var fonts = []string{
	DefaultFont, "Lato", "Merriweather", "Gill Sans", "Franklin Gothic Medium",
	"Georgia", "Book Antiqua", "Didot", "Century Gothic",
}

var colors = []string{"#000000", "#FFFFFF", "#007AFF", "#FF3B30", "#34C759"}

// SettingsOptions returns the presets, aspects, fonts and colours.
func SettingsOptions() Options {
	return Options{Presets: presets, Aspects: aspects, Fonts: fonts, Colors: colors}
}

// IsFont reports whether name is one of the watermark fonts.
func IsFont(name string) bool {
	return slices.Contains(fonts, name)
}

// FindPreset resolves a preset name and, for grouped presets, an option name
// to a target size.
func FindPreset(name, option string) (image.Point, bool) {
	for _, p := range presets {
		if p.Name != name {
			continue
		}
		if p.Size != nil {
			return *p.Size, true
		}
		for _, o := range p.Options {
			if o.Name == option {
				return o.Size, true
			}
		}
	}

	return image.Point{}, false
}

// FindAspect resolves an aspect title such as "16:9".
func FindAspect(title string) (Aspect, bool) {
	for _, a := range aspects {
		if strings.EqualFold(a.Title, title) {
			return a, true
		}
	}

	return Aspect{}, false
}
