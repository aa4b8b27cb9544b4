// Package tesseract recognizes text with the Tesseract engine.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/aliskhannn/image-converter/internal/codec"
	"github.com/aliskhannn/image-converter/internal/model"
)

// Recognizer runs one Tesseract client per request; clients are not safe
// for concurrent use.
type Recognizer struct {
	languages []string
}

// New creates a Recognizer for the given languages, "eng" when none are given.
func New(languages ...string) *Recognizer {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	return &Recognizer{languages: languages}
}

// Recognize decodes the image at path and returns its trimmed text.
// HEIC, WebP and the other formats Tesseract cannot read are decoded first
// and handed over as PNG.
func (r *Recognizer) Recognize(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := codec.Open(path)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, img, model.FormatPNG, 0); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.languages...); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize %s: %w", path, err)
	}

	return strings.TrimSpace(text), nil
}
