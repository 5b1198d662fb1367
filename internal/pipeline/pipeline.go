// Package pipeline implements the image ingestion sequence every widget runs
// when a user supplies a photo: validation, normalization/compression, an
// optional crop, and upload with URL resolution into the owning document.
// Stages execute strictly in order; a failed stage aborts the run.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"linkbio/internal/ids"
)

// SourceFile is the user-supplied input. It lives only for the duration of
// one pipeline invocation.
type SourceFile struct {
	Name string
	MIME string
	Data []byte
}

// NormalizedImage is the output of the compression stage: a displayable
// raster bounded in bytes and pixels, with a corrected file extension.
type NormalizedImage struct {
	Name string
	MIME string
	Data []byte
}

// CropRegion is a user-chosen rectangle in display-space coordinates. The
// display dimensions of the rendered image are carried along so the region
// can be scaled back to the source's natural pixel dimensions.
type CropRegion struct {
	X             float64
	Y             float64
	Width         float64
	Height        float64
	DisplayWidth  float64
	DisplayHeight float64
}

// StoredAsset is the persisted result of an upload.
type StoredAsset struct {
	Path         string
	URL          string
	PreviousPath string
}

// DocumentTarget names the document field that receives the resolved URL.
// PreviousPath, when set, is the storage path the slot held before this
// upload; it is deleted best-effort after the new asset is live.
type DocumentTarget struct {
	Collection   string
	DocID        string
	Field        string
	PathField    string
	Append       bool
	PreviousPath string
}

// Options parameterizes one pipeline run. Call sites differ only in this
// record; the stage logic is shared.
type Options struct {
	Purpose           string
	MaxUploadBytes    int64
	ShortCircuitBytes int64
	MaxEncodedBytes   int64
	RetentionFraction float64
	MaxEdge           int
	Quality           float64
	Timeout           time.Duration
	CropSize          int
}

// Result reports the stored asset plus the path of a superseded asset whose
// deletion failed, if any, so the caller can hand it to the cleanup worker.
type Result struct {
	Asset      StoredAsset
	LeakedPath string
}

// CropFunc supplies the interactive crop stage. Returning a nil region means
// the user cancelled; Run then aborts with ErrCancelled and no side effects.
type CropFunc func(ctx context.Context, img NormalizedImage) (*CropRegion, error)

// ObjectStore is the object storage boundary consumed by the upload stage.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	ResolveURL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// DocumentWriter is the document store boundary. MergeWrite leaves fields it
// does not mention untouched.
type DocumentWriter interface {
	MergeWrite(ctx context.Context, collection, docID string, fields map[string]any) error
	ArrayAppend(ctx context.Context, collection, docID, field string, values ...any) error
}

type Pipeline struct {
	store      ObjectStore
	docs       DocumentWriter
	normalizer *Normalizer
	log        zerolog.Logger

	now   func() time.Time
	token func() string
}

func New(store ObjectStore, docs DocumentWriter, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		docs:       docs,
		normalizer: NewNormalizer(log),
		log:        log,
		now:        time.Now,
		token:      ids.Token,
	}
}

// Run executes the four stages for one file. crop may be nil for flows
// without an interactive crop.
func (p *Pipeline) Run(ctx context.Context, src SourceFile, ownerID string, opts Options, crop CropFunc, target DocumentTarget) (Result, error) {
	if err := Validate(src, opts); err != nil {
		return Result{}, err
	}

	img, err := p.normalizer.Normalize(ctx, src, opts)
	if err != nil {
		return Result{}, err
	}

	if crop != nil {
		region, err := crop(ctx, img)
		if err != nil {
			return Result{}, err
		}
		if region == nil {
			return Result{}, ErrCancelled
		}
		img, err = Crop(img, *region, opts.CropSize)
		if err != nil {
			return Result{}, err
		}
	}

	return p.upload(ctx, img, ownerID, opts, target)
}
