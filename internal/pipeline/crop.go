package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const cropQuality = 95

// Crop rasterizes the selected region of img. The region arrives in
// display-space coordinates and is scaled back to the image's natural pixel
// dimensions. targetSize > 0 forces a square output raster of that edge
// (link icons); otherwise the output keeps the region's own aspect.
// Deterministic: the same region against the same bytes yields identical
// output.
func Crop(img NormalizedImage, region CropRegion, targetSize int) (NormalizedImage, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("decode for crop: %w", err)
	}

	b := decoded.Bounds()
	naturalW, naturalH := float64(b.Dx()), float64(b.Dy())

	scaleX, scaleY := 1.0, 1.0
	if region.DisplayWidth > 0 {
		scaleX = naturalW / region.DisplayWidth
	}
	if region.DisplayHeight > 0 {
		scaleY = naturalH / region.DisplayHeight
	}

	x0 := int(region.X * scaleX)
	y0 := int(region.Y * scaleY)
	x1 := int((region.X + region.Width) * scaleX)
	y1 := int((region.Y + region.Height) * scaleY)

	if region.Width <= 0 || region.Height <= 0 || x0 < 0 || y0 < 0 || x1 > b.Dx() || y1 > b.Dy() {
		return NormalizedImage{}, &ValidationError{Reason: "crop region outside image bounds"}
	}

	outW, outH := int(region.Width), int(region.Height)
	if targetSize > 0 {
		outW, outH = targetSize, targetSize
	}
	if outW <= 0 || outH <= 0 {
		return NormalizedImage{}, &ValidationError{Reason: "crop region too small"}
	}

	srcRect := image.Rect(b.Min.X+x0, b.Min.Y+y0, b.Min.X+x1, b.Min.Y+y1)
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), decoded, srcRect, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: cropQuality}); err != nil {
		return NormalizedImage{}, fmt.Errorf("encode crop: %w", err)
	}

	return NormalizedImage{
		Name: img.Name,
		MIME: canonicalMIME,
		Data: buf.Bytes(),
	}, nil
}
