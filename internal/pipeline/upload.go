package pipeline

import (
	"context"
	"fmt"
	"strings"

	"linkbio/internal/media/sniffer"
)

// upload writes the image bytes under a collision-resistant key, resolves
// the public URL, and only then merge-writes {url, storagePath} into the
// owning document. A superseded asset is deleted afterwards, best-effort:
// its failure never fails the upload that already succeeded.
func (p *Pipeline) upload(ctx context.Context, img NormalizedImage, ownerID string, opts Options, target DocumentTarget) (Result, error) {
	key := p.objectKey(opts.Purpose, ownerID, img.Name)

	if err := p.store.Put(ctx, key, img.Data, contentType(img)); err != nil {
		return Result{}, &UploadError{Filename: img.Name, Err: fmt.Errorf("put object: %w", err)}
	}

	url, err := p.store.ResolveURL(ctx, key)
	if err != nil {
		// The written bytes are orphaned here; accepted as a rare leak, but
		// logged so it stays observable.
		p.log.Error().Err(err).Str("path", key).Msg("url resolution failed after write")
		return Result{}, &UploadError{Filename: img.Name, Err: fmt.Errorf("resolve url: %w", err)}
	}

	if target.Append {
		err = p.docs.ArrayAppend(ctx, target.Collection, target.DocID, target.Field, url)
	} else {
		pathField := target.PathField
		if pathField == "" {
			pathField = target.Field + "StoragePath"
		}
		err = p.docs.MergeWrite(ctx, target.Collection, target.DocID, map[string]any{
			target.Field: url,
			pathField:    key,
		})
	}
	if err != nil {
		return Result{}, &UploadError{Filename: img.Name, Err: fmt.Errorf("document write: %w", err)}
	}

	result := Result{Asset: StoredAsset{
		Path:         key,
		URL:          url,
		PreviousPath: target.PreviousPath,
	}}

	if target.PreviousPath != "" && target.PreviousPath != key {
		if err := p.store.Delete(ctx, target.PreviousPath); err != nil {
			p.log.Warn().
				Err(err).
				Str("path", target.PreviousPath).
				Str("purpose", opts.Purpose).
				Str("owner_id", ownerID).
				Msg("superseded asset delete failed")
			result.LeakedPath = target.PreviousPath
		}
	}

	return result, nil
}

// objectKey builds "{purpose}/{ownerId}/{timestamp}_{token}_{filename}".
// The millisecond timestamp plus random token keeps concurrent uploads in
// one user's namespace from colliding without any locking.
func (p *Pipeline) objectKey(purpose, ownerID, name string) string {
	return fmt.Sprintf("%s/%s/%d_%s_%s", purpose, ownerID, p.now().UnixMilli(), p.token(), sanitizeName(name))
}

func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "file"
	}
	return name
}

func contentType(img NormalizedImage) string {
	if result, err := sniffer.DetectHead(head(img.Data)); err == nil {
		return result.MIME
	}
	if img.MIME != "" {
		return img.MIME
	}
	return "application/octet-stream"
}

func head(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}
