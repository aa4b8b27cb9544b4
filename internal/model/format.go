package model

import (
	"path/filepath"
	"strings"
)

// Format is a file format known to the converter.
type Format string

const (
	FormatJPG  Format = "jpg"
	FormatPNG  Format = "png"
	FormatWEBP Format = "webp"
	FormatPDF  Format = "pdf"
	FormatHEIC Format = "heic"
	FormatHEIF Format = "heif"
	FormatTIFF Format = "tiff"
	FormatGIF  Format = "gif"
	FormatIMG  Format = "img" // any supported raster image
	FormatZIP  Format = "zip"
	FormatTXT  Format = "txt"
)

// Title returns the human readable name of the format.
func (f Format) Title() string {
	switch f {
	case FormatWEBP:
		return "WebP"
	case FormatIMG:
		return "IMG"
	default:
		return strings.ToUpper(string(f))
	}
}

// Extension returns the file extension, without the dot, used when writing
// files of this format.
func (f Format) Extension() string {
	if f == FormatIMG {
		return string(FormatJPG)
	}
	return string(f)
}

// IsRaster reports whether the format holds a single raster image.
func (f Format) IsRaster() bool {
	switch f {
	case FormatJPG, FormatPNG, FormatWEBP, FormatHEIC, FormatHEIF, FormatTIFF, FormatGIF, FormatIMG:
		return true
	}
	return false
}

// FormatFromPath detects the format of a file by its extension.
func FormatFromPath(path string) (Format, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	switch ext {
	case "jpg", "jpeg":
		return FormatJPG, true
	case "tif", "tiff":
		return FormatTIFF, true
	case "png", "webp", "pdf", "heic", "heif", "gif", "zip", "txt":
		return Format(ext), true
	}

	return "", false
}
