package geometry

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// MinCompressionFactor is the strongest reduction the slider can select.
const MinCompressionFactor = 0.1

// CompressionFactor maps the 0-100 slider to the scale and quality factor:
// 1 - slider/100 clamped to [0.1, 1].
func CompressionFactor(slider float64) float64 {
	return math.Max(MinCompressionFactor, math.Min(1, 1-slider/100))
}

// Compress downscales img by the compression factor on both axes and returns
// it with the JPEG quality, 1 to 100, to encode it with.
func Compress(img image.Image, slider float64) (*image.NRGBA, int) {
	factor := CompressionFactor(slider)
	quality := clamp(int(math.Round(factor*100)), 1, 100)

	b := img.Bounds()
	if factor >= 1 || b.Empty() {
		return imaging.Clone(img), quality
	}

	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))

	return imaging.Resize(img, w, h, imaging.Lanczos), quality
}
