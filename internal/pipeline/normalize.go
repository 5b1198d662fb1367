package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/gen2brain/heic"
	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"linkbio/internal/media/sniffer"
)

const (
	minJPEGQuality     = 40
	qualityStep        = 10
	maxShrinkPasses    = 4
	shrinkFactor       = 0.85
	defaultTimeout     = 30 * time.Second
	canonicalMIME      = "image/jpeg"
	canonicalRasterExt = ".jpg"
)

// Normalizer bounds an image's byte size and pixel dimensions, fixes EXIF
// orientation, and transcodes camera-native formats to JPEG. The pixel work
// runs off the calling goroutine under the slot's timeout.
type Normalizer struct {
	log zerolog.Logger

	// decode is swappable in tests; image.Decode otherwise, with PNG, GIF,
	// WebP and HEIC/HEIF decoders registered.
	decode func(data []byte) (image.Image, error)
}

func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log, decode: decodeImage}
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// Normalize produces a bounded JPEG from a validated source. Inputs already
// below the short-circuit threshold pass through unchanged. A timeout is a
// hard failure; any other compression failure falls back to the original
// bytes so the upload can still proceed.
func (n *Normalizer) Normalize(ctx context.Context, src SourceFile, opts Options) (NormalizedImage, error) {
	if int64(len(src.Data)) < opts.ShortCircuitBytes {
		return NormalizedImage(src), nil
	}

	limit := opts.Timeout
	if limit <= 0 {
		limit = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	type outcome struct {
		img NormalizedImage
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		img, err := n.compress(src, opts)
		done <- outcome{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return NormalizedImage{}, &TimeoutError{Timeout: limit}
		}
		return NormalizedImage{}, ctx.Err()
	case out := <-done:
		if out.err != nil {
			n.log.Warn().
				Err(&CompressionError{Err: out.err}).
				Str("file", src.Name).
				Int("size_bytes", len(src.Data)).
				Msg("compression failed, keeping original")
			return NormalizedImage(src), nil
		}
		return out.img, nil
	}
}

func (n *Normalizer) compress(src SourceFile, opts Options) (NormalizedImage, error) {
	img, err := n.decode(src.Data)
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("decode: %w", err)
	}

	img = normalizeOrientation(img, src.Data)
	img = shrinkToEdge(img, opts.MaxEdge)

	data, err := encodeBounded(img, opts.Quality, targetBytes(int64(len(src.Data)), opts))
	if err != nil {
		return NormalizedImage{}, err
	}

	return NormalizedImage{
		Name: canonicalName(src.Name, src.MIME),
		MIME: canonicalMIME,
		Data: data,
	}, nil
}

// targetBytes applies the size rule: larger inputs are compressed
// proportionally harder, smaller inputs are capped absolutely.
func targetBytes(srcSize int64, opts Options) int64 {
	if opts.MaxEncodedBytes <= 0 {
		return 0
	}
	return min(opts.MaxEncodedBytes, int64(float64(srcSize)*opts.RetentionFraction))
}

// canonicalName rewrites HEIC/HEIF extensions to the canonical raster
// extension; any other filename is preserved as-is.
func canonicalName(name, mime string) string {
	if !sniffer.IsHEICName(name, mime) {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + canonicalRasterExt
}

func shrinkToEdge(img image.Image, maxEdge int) image.Image {
	if maxEdge <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	edge := max(w, h)
	if edge <= maxEdge {
		return img
	}

	scale := float64(maxEdge) / float64(edge)
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// encodeBounded encodes to JPEG, stepping the quality down and then the
// dimensions until the result fits the byte target. If the target is still
// missed after the last pass the smallest attempt wins.
func encodeBounded(img image.Image, quality float64, target int64) ([]byte, error) {
	q := int(quality * 100)
	if q <= 0 || q > 100 {
		q = 85
	}

	var buf bytes.Buffer
	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if target <= 0 || int64(buf.Len()) <= target || q-qualityStep < minJPEGQuality {
			break
		}
		q -= qualityStep
	}

	for pass := 0; pass < maxShrinkPasses && target > 0 && int64(buf.Len()) > target; pass++ {
		b := img.Bounds()
		nw := max(1, int(float64(b.Dx())*shrinkFactor))
		nh := max(1, int(float64(b.Dy())*shrinkFactor))
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		img = dst

		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	}

	return bytes.Clone(buf.Bytes()), nil
}

// normalizeOrientation applies the EXIF orientation tag so the image
// displays upright without metadata. Missing or unreadable EXIF leaves the
// pixels untouched.
func normalizeOrientation(img image.Image, raw []byte) image.Image {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return img
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}
	return reorient(img, orientation)
}

func reorient(img image.Image, orientation int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch orientation {
	case 2: // mirrored horizontally
		return remap(img, w, h, func(x, y int) (int, int) { return w - 1 - x, y })
	case 3: // rotated 180
		return remap(img, w, h, func(x, y int) (int, int) { return w - 1 - x, h - 1 - y })
	case 4: // mirrored vertically
		return remap(img, w, h, func(x, y int) (int, int) { return x, h - 1 - y })
	case 5: // transposed
		return remap(img, h, w, func(x, y int) (int, int) { return y, x })
	case 6: // rotated 90 CW
		return remap(img, h, w, func(x, y int) (int, int) { return y, h - 1 - x })
	case 7: // transversed
		return remap(img, h, w, func(x, y int) (int, int) { return w - 1 - y, h - 1 - x })
	case 8: // rotated 90 CCW
		return remap(img, h, w, func(x, y int) (int, int) { return w - 1 - y, x })
	default:
		return img
	}
}

func remap(img image.Image, w, h int, src func(x, y int) (int, int)) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := src(x, y)
			dst.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}
