// Package catalog describes the tools the converter offers and the inputs
// each of them accepts.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aliskhannn/image-converter/internal/model"
)

// ErrToolNotFound is returned when no tool has the requested id.
var ErrToolNotFound = errors.New("tool not found")

// Section is a titled group of tools.
type Section struct {
	Name       string       `json:"name"`
	IconPrefix string       `json:"icon_prefix"`
	Tools      []model.Tool `json:"tools"`
}

var sections = buildSections()

func buildSections() []Section {
	imageSources := []model.Format{
		model.FormatHEIC, model.FormatHEIF, model.FormatTIFF, model.FormatGIF, model.FormatWEBP,
	}

	jpg := []model.Tool{convertTool(model.FormatPNG, model.FormatJPG)}
	png := []model.Tool{convertTool(model.FormatJPG, model.FormatPNG)}
	for _, from := range imageSources {
		jpg = append(jpg, convertTool(from, model.FormatJPG))
		png = append(png, convertTool(from, model.FormatPNG))
	}
	jpg = append(jpg, pdfToImageTool(model.FormatJPG))
	png = append(png, pdfToImageTool(model.FormatPNG))

	pdf := []model.Tool{newTool("Image to PDF", model.FormatIMG, model.FormatPDF, model.ActionConvert, model.CategoryImageToPDF)}
	for _, from := range []model.Format{
		model.FormatJPG, model.FormatPNG, model.FormatGIF, model.FormatTIFF,
		model.FormatWEBP, model.FormatHEIC, model.FormatHEIF,
	} {
		pdf = append(pdf, newTool(from.Title()+" to PDF", from, model.FormatPDF, model.ActionConvert, model.CategoryImageToPDF))
	}

	other := []model.Tool{
		newTool("Resize Image", model.FormatIMG, model.FormatJPG, model.ActionResize, model.CategoryImageToImage),
		newTool("Watermark", model.FormatIMG, model.FormatJPG, model.ActionWatermark, model.CategoryImageToImage),
		newTool("Rotate Image", model.FormatIMG, model.FormatJPG, model.ActionRotate, model.CategoryImageToImage),
		newTool("Compress", model.FormatIMG, model.FormatJPG, model.ActionCompress, model.CategoryImageToImage),
		newTool("Convert to Zip", model.FormatIMG, model.FormatZIP, model.ActionZip, model.CategoryImageToZip),
		newTool("Crop Image", model.FormatIMG, model.FormatJPG, model.ActionCrop, model.CategoryImageToImage),
		newTool("Extract Text", model.FormatIMG, model.FormatTXT, model.ActionExtractText, model.CategoryImageToText),
	}

	out := []Section{
		{Name: "JPG Conversions", IconPrefix: "Jpg", Tools: jpg},
		{Name: "PNG Conversions", IconPrefix: "Png", Tools: png},
		{Name: "PDF Tools", IconPrefix: "Pdf", Tools: pdf},
		{Name: "Other Tools", IconPrefix: "Other", Tools: other},
	}

	for i := range out {
		for j := range out[i].Tools {
			out[i].Tools[j].Icon = out[i].IconPrefix + "/" + out[i].Tools[j].ID
		}
	}

	return out
}

func convertTool(from, to model.Format) model.Tool {
	return newTool(from.Title()+" to "+to.Title(), from, to, model.ActionConvert, model.CategoryImageToImage)
}

func pdfToImageTool(to model.Format) model.Tool {
	return newTool("PDF to "+to.Title(), model.FormatPDF, to, model.ActionConvert, model.CategoryPDFToImage)
}

func newTool(title string, from, to model.Format, action model.Action, category model.Category) model.Tool {
	return model.Tool{
		ID:       slug(title),
		Title:    title,
		From:     from,
		To:       to,
		Action:   action,
		Category: category,
	}
}

func slug(s string) string {
	var b strings.Builder
	dash := false

	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// Sections returns the tool sections in display order.
func Sections() []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = Section{Name: s.Name, IconPrefix: s.IconPrefix, Tools: slices.Clone(s.Tools)}
	}

	return out
}

// Tools returns every tool of every section.
func Tools() []model.Tool {
	var out []model.Tool
	for _, s := range sections {
		out = append(out, s.Tools...)
	}

	return out
}

// Lookup finds a tool by id.
func Lookup(id string) (model.Tool, error) {
	for _, s := range sections {
		for _, t := range s.Tools {
			if t.ID == id {
				return t, nil
			}
		}
	}

	return model.Tool{}, fmt.Errorf("%w: %s", ErrToolNotFound, id)
}

// AllowedExtensions returns the file extensions, without dots, accepted as
// input for a tool reading the given format.
func AllowedExtensions(from model.Format) []string {
	switch from {
	case model.FormatIMG:
		return []string{"gif", "png", "jpg", "jpeg", "heic", "heif", "tiff", "tif", "webp"}
	case model.FormatJPG:
		return []string{"jpg", "jpeg"}
	case model.FormatTIFF:
		return []string{"tiff", "tif"}
	default:
		return []string{string(from)}
	}
}

// Accepts reports whether the file at path is a valid input for the tool.
func Accepts(tool model.Tool, path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	return slices.Contains(AllowedExtensions(tool.From), ext)
}
