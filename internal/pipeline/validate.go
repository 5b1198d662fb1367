package pipeline

import (
	"fmt"
	"strings"

	"linkbio/internal/media/sniffer"
)

// Validate rejects unsupported input before any expensive work: empty files,
// files over the slot's absolute ceiling, and files that neither declare an
// image content type nor carry a recognized image extension. It has no side
// effects.
func Validate(src SourceFile, opts Options) error {
	if len(src.Data) == 0 {
		return &ValidationError{Reason: "file is empty"}
	}

	if opts.MaxUploadBytes > 0 && int64(len(src.Data)) > opts.MaxUploadBytes {
		return &ValidationError{
			Reason: fmt.Sprintf("file too large: limit is %d MB", opts.MaxUploadBytes>>20),
		}
	}

	if !strings.HasPrefix(src.MIME, "image/") && !sniffer.RecognizedExtension(src.Name) {
		return &ValidationError{Reason: "unsupported file type: expected an image"}
	}

	return nil
}
