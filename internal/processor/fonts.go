package processor

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/aliskhannn/image-converter/internal/catalog"
	"github.com/aliskhannn/image-converter/internal/geometry"
	"github.com/aliskhannn/image-converter/internal/model"
)

// minFontSize is the smallest size text is shrunk to when fitting its box.
const minFontSize = 6

var defaultTextColor = color.White

// fontCache parses each font file once. Fonts missing from the directory
// fall back to Go Regular.
type fontCache struct {
	dir string

	mu    sync.Mutex
	fonts map[string]*truetype.Font
}

func newFontCache(dir string) *fontCache {
	return &fontCache{dir: dir, fonts: make(map[string]*truetype.Font)}
}

func (c *fontCache) font(name string) (*truetype.Font, error) {
	if name == "" {
		name = catalog.DefaultFont
	}
	if !catalog.IsFont(name) {
		return nil, fmt.Errorf("%w: unknown font %q", model.ErrInvalidSettings, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.fonts[name]; ok {
		return f, nil
	}

	data, err := c.read(name)
	if err != nil {
		return nil, err
	}

	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}

	c.fonts[name] = f

	return f, nil
}

func (c *fontCache) read(name string) ([]byte, error) {
	if c.dir == "" {
		return goregular.TTF, nil
	}

	data, err := os.ReadFile(filepath.Join(c.dir, name+".ttf"))
	if errors.Is(err, fs.ErrNotExist) {
		return goregular.TTF, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", name, err)
	}

	return data, nil
}

// fit returns a face of the named font at size, shrunk until text fits
// inside box.
func (c *fontCache) fit(name string, size float64, text string, box geometry.Size) (font.Face, error) {
	f, err := c.font(name)
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		size = geometry.DefaultTextFontSize
	}

	dc := gg.NewContext(1, 1)
	for {
		face := truetype.NewFace(f, &truetype.Options{Size: size})
		dc.SetFontFace(face)

		w, h := dc.MeasureString(text)
		if (w <= box.W && h <= box.H) || size <= minFontSize {
			return face, nil
		}

		size = max(minFontSize, size*0.9)
	}
}

// parseColor parses "#RRGGBB" or "#RRGGBBAA". An empty string yields nil.
func parseColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return nil, nil
	}
	if len(s) != 6 && len(s) != 8 {
		return nil, fmt.Errorf("%w: color %q", model.ErrInvalidSettings, s)
	}
	if len(s) == 6 {
		s += "ff"
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: color %q", model.ErrInvalidSettings, s)
	}

	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
