package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want MediaType
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, TypeJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}, TypePNG},
		{"gif87", []byte("GIF87a trailer"), TypeGIF},
		{"gif89", []byte("GIF89a trailer"), TypeGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), TypeWEBP},
		{"heic", []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c'}, TypeHEIC},
		{"heif-mif1", []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'i', 'f', '1'}, TypeHEIC},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DetectHead(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Type)
			assert.NotEmpty(t, result.MIME)
		})
	}
}

func TestDetectHeadUnknown(t *testing.T) {
	_, err := DetectHead([]byte("%PDF-1.7"))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DetectHead(nil)
	assert.ErrorIs(t, err, ErrUnknownType)

	// ftyp box with a video brand is not a photo.
	_, err = DetectHead([]byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2'})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestRecognizedExtension(t *testing.T) {
	assert.True(t, RecognizedExtension("photo.jpg"))
	assert.True(t, RecognizedExtension("PHOTO.JPEG"))
	assert.True(t, RecognizedExtension("scan.heif"))
	assert.False(t, RecognizedExtension("notes.txt"))
	assert.False(t, RecognizedExtension("no-extension"))
}

func TestIsHEICName(t *testing.T) {
	assert.True(t, IsHEICName("x.bin", "image/heic"))
	assert.True(t, IsHEICName("x.bin", "image/heif"))
	assert.True(t, IsHEICName("IMG_0042.HEIC", ""))
	assert.False(t, IsHEICName("photo.jpg", "image/jpeg"))
}
