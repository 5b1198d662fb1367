package pipeline

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cropSource(t *testing.T, w, h int) NormalizedImage {
	t.Helper()
	return NormalizedImage{
		Name: "crop-me.jpg",
		MIME: "image/jpeg",
		Data: noisyJPEG(t, w, h),
	}
}

func TestCropIsDeterministic(t *testing.T) {
	src := cropSource(t, 200, 200)
	region := CropRegion{X: 10, Y: 10, Width: 80, Height: 80, DisplayWidth: 200, DisplayHeight: 200}

	first, err := Crop(src, region, 0)
	require.NoError(t, err)
	second, err := Crop(src, region, 0)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first.Data, second.Data), "same region and bytes must crop identically")
}

func TestCropSquareTargetForcesFixedDimensions(t *testing.T) {
	src := cropSource(t, 300, 200)
	region := CropRegion{X: 0, Y: 0, Width: 150, Height: 100, DisplayWidth: 300, DisplayHeight: 200}

	out, err := Crop(src, region, 400)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, decoded.Bounds().Dx())
	assert.Equal(t, 400, decoded.Bounds().Dy())
}

func TestCropKeepsRegionAspectWithoutTarget(t *testing.T) {
	src := cropSource(t, 300, 200)
	region := CropRegion{X: 20, Y: 20, Width: 120, Height: 60, DisplayWidth: 300, DisplayHeight: 200}

	out, err := Crop(src, region, 0)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 120, decoded.Bounds().Dx())
	assert.Equal(t, 60, decoded.Bounds().Dy())
}

func TestCropScalesDisplayCoordinatesToNaturalPixels(t *testing.T) {
	// Natural 200x200 shown at 100x100: display coords double when mapped
	// back. A region flush with the display's right edge must still fit.
	src := cropSource(t, 200, 200)
	region := CropRegion{X: 50, Y: 50, Width: 50, Height: 50, DisplayWidth: 100, DisplayHeight: 100}

	out, err := Crop(src, region, 0)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 50, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestCropRejectsRegionOutsideBounds(t *testing.T) {
	src := cropSource(t, 100, 100)

	cases := []CropRegion{
		{X: -5, Y: 0, Width: 50, Height: 50, DisplayWidth: 100, DisplayHeight: 100},
		{X: 80, Y: 0, Width: 50, Height: 50, DisplayWidth: 100, DisplayHeight: 100},
		{X: 0, Y: 0, Width: 0, Height: 50, DisplayWidth: 100, DisplayHeight: 100},
	}

	for _, region := range cases {
		_, err := Crop(src, region, 0)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "region %+v", region)
	}
}

func TestCropRejectsUndecodableInput(t *testing.T) {
	src := NormalizedImage{Name: "junk.jpg", Data: []byte("not an image")}
	_, err := Crop(src, CropRegion{Width: 10, Height: 10}, 0)
	require.Error(t, err)
}
