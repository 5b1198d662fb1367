package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Purpose:           "backgrounds",
		MaxUploadBytes:    10 << 20,
		ShortCircuitBytes: 800 << 10,
		MaxEncodedBytes:   5 << 19,
		RetentionFraction: 0.7,
		MaxEdge:           1920,
		Quality:           0.9,
		Timeout:           30 * time.Second,
	}
}

// noisyJPEG encodes a deterministic speckled image; noise defeats JPEG's
// compression enough to produce a meaningfully sized payload.
func noisyJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(12345)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed = seed*1664525 + 1013904223
			img.Set(x, y, color.RGBA{
				R: uint8(seed >> 24),
				G: uint8(seed >> 16),
				B: uint8(seed >> 8),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func TestNormalizeShortCircuitReturnsInputUnchanged(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	src := SourceFile{Name: "small.png", MIME: "image/png", Data: noisyJPEG(t, 20, 20)}
	require.Less(t, len(src.Data), 800<<10)

	out, err := n.Normalize(context.Background(), src, testOptions())

	require.NoError(t, err)
	assert.Equal(t, src.Name, out.Name)
	assert.Equal(t, src.MIME, out.MIME)
	assert.True(t, bytes.Equal(src.Data, out.Data), "bytes must pass through untouched")
}

func TestNormalizeBoundsDimensionsAndSize(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	src := SourceFile{Name: "big.jpg", MIME: "image/jpeg", Data: noisyJPEG(t, 1200, 900)}

	opts := testOptions()
	opts.ShortCircuitBytes = 1 // force the compression path
	opts.MaxEdge = 400

	out, err := n.Normalize(context.Background(), src, opts)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	b := decoded.Bounds()
	assert.LessOrEqual(t, b.Dx(), 400)
	assert.LessOrEqual(t, b.Dy(), 400)

	target := targetBytes(int64(len(src.Data)), opts)
	assert.LessOrEqual(t, int64(len(out.Data)), target)
	assert.Equal(t, "image/jpeg", out.MIME)
}

func TestNormalizeFallsBackToOriginalOnDecodeFailure(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	n.decode = func([]byte) (image.Image, error) {
		return nil, errors.New("corrupt stream")
	}

	src := SourceFile{Name: "broken.jpg", MIME: "image/jpeg", Data: bytes.Repeat([]byte{0xAB}, 1024)}
	opts := testOptions()
	opts.ShortCircuitBytes = 1

	out, err := n.Normalize(context.Background(), src, opts)

	require.NoError(t, err)
	assert.True(t, bytes.Equal(src.Data, out.Data), "fallback keeps the original bytes")
	assert.Equal(t, src.Name, out.Name)
}

func TestNormalizeTimeoutIsHardFailure(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	n.decode = func([]byte) (image.Image, error) {
		time.Sleep(500 * time.Millisecond)
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	}

	src := SourceFile{Name: "slow.jpg", MIME: "image/jpeg", Data: make([]byte, 1024)}
	opts := testOptions()
	opts.ShortCircuitBytes = 1
	opts.Timeout = 20 * time.Millisecond

	_, err := n.Normalize(context.Background(), src, opts)

	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, opts.Timeout, terr.Timeout)
}

func TestNormalizeTranscodesHEICNaming(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	n.decode = func([]byte) (image.Image, error) {
		// Stands in for the HEIC decoder; the input bytes are not a real
		// HEIF container.
		return image.NewRGBA(image.Rect(0, 0, 10, 10)), nil
	}

	src := SourceFile{Name: "IMG_0042.heic", MIME: "image/heic", Data: make([]byte, 2048)}
	opts := testOptions()
	opts.ShortCircuitBytes = 1

	out, err := n.Normalize(context.Background(), src, opts)

	require.NoError(t, err)
	assert.Equal(t, "IMG_0042.jpg", out.Name)
	assert.Equal(t, "image/jpeg", out.MIME)

	_, format, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestCanonicalName(t *testing.T) {
	cases := []struct {
		name string
		mime string
		want string
	}{
		{"photo.heic", "image/heic", "photo.jpg"},
		{"photo.HEIF", "", "photo.jpg"},
		{"photo", "image/heif", "photo.jpg"},
		{"photo.jpg", "image/jpeg", "photo.jpg"},
		{"photo.png", "image/png", "photo.png"},
		{"weird.name.heic", "image/heic", "weird.name.jpg"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, canonicalName(tc.name, tc.mime), "input %q", tc.name)
	}
}

func TestTargetBytesTakesSmallerBound(t *testing.T) {
	opts := Options{MaxEncodedBytes: 5 << 19, RetentionFraction: 0.7}

	// 1 MB source: 70% retention (0.7 MB) is below the 2.5 MB cap.
	src := int64(1 << 20)
	assert.Equal(t, int64(float64(src)*0.7), targetBytes(1<<20, opts))

	// 40 MB source: the absolute cap wins.
	assert.Equal(t, int64(5<<19), targetBytes(40<<20, opts))

	// No cap configured disables the bound.
	assert.Equal(t, int64(0), targetBytes(1<<20, Options{}))
}

func TestShrinkToEdgePreservesAspect(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1000, 500))

	out := shrinkToEdge(img, 100)
	b := out.Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 50, b.Dy())

	// Already within bounds: untouched.
	same := shrinkToEdge(img, 2000)
	assert.Equal(t, img.Bounds(), same.Bounds())
}

func TestReorientRotates90Clockwise(t *testing.T) {
	// 2x1 image: red at (0,0), blue at (1,0).
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{B: 255, A: 255})

	out := reorient(img, 6)
	b := out.Bounds()
	require.Equal(t, 1, b.Dx())
	require.Equal(t, 2, b.Dy())

	// After a 90 CW rotation the left source pixel tops the column.
	r, _, _, _ := out.At(0, 0).RGBA()
	_, _, bl, _ := out.At(0, 1).RGBA()
	assert.NotZero(t, r)
	assert.NotZero(t, bl)
}

func TestReorientUnknownOrientationIsIdentity(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	assert.Equal(t, img, reorient(img, 1))
	assert.Equal(t, img, reorient(img, 0))
}
