package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsEmptyFile(t *testing.T) {
	err := Validate(SourceFile{Name: "a.jpg"}, Options{MaxUploadBytes: 10 << 20})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "empty")
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	src := SourceFile{
		Name: "huge.jpg",
		MIME: "image/jpeg",
		Data: make([]byte, 2<<20),
	}

	err := Validate(src, Options{MaxUploadBytes: 1 << 20})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "file too large: limit is 1 MB", verr.Reason)
}

func TestValidateRejectsNonImage(t *testing.T) {
	src := SourceFile{
		Name: "notes.txt",
		MIME: "text/plain",
		Data: []byte("hello"),
	}

	err := Validate(src, Options{MaxUploadBytes: 10 << 20})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateAcceptsImageMIME(t *testing.T) {
	src := SourceFile{
		Name: "blob",
		MIME: "image/webp",
		Data: []byte{0x52, 0x49, 0x46, 0x46},
	}

	assert.NoError(t, Validate(src, Options{MaxUploadBytes: 10 << 20}))
}

func TestValidateAcceptsRecognizedExtensionWithoutMIME(t *testing.T) {
	src := SourceFile{
		Name: "IMG_0042.HEIC",
		MIME: "application/octet-stream",
		Data: []byte{0x00, 0x01},
	}

	assert.NoError(t, Validate(src, Options{MaxUploadBytes: 10 << 20}))
}
