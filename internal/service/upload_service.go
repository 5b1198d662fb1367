package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"linkbio/internal/config"
	"linkbio/internal/ids"
	"linkbio/internal/models"
	"linkbio/internal/pipeline"
	"linkbio/internal/repository"
)

// Slot names the logical role an uploaded asset plays on a page. The slot
// selects the pipeline preset and the storage purpose path.
type Slot string

const (
	SlotLogo       Slot = "logo"
	SlotBackground Slot = "background"
	SlotCarousel   Slot = "carousel"
	SlotDiary      Slot = "diary"
	SlotPersona    Slot = "persona"
	SlotLinkIcon   Slot = "link-icon"
)

// AssetLedger records what lives in object storage. Best-effort cleanup is
// only observable because every upload and supersession lands here.
type AssetLedger interface {
	Create(ctx context.Context, asset models.Asset) error
	UpdateStatusByPath(ctx context.Context, path string, status models.AssetStatus) error
}

// UploadService maps slots onto the shared image pipeline and keeps the
// asset ledger and the cleanup queue in sync around each run.
type UploadService struct {
	pipe   *pipeline.Pipeline
	ledger AssetLedger
	queue  *redis.Client
	cfg    *config.AppConfig
	log    zerolog.Logger
}

func NewUploadService(pipe *pipeline.Pipeline, ledger AssetLedger, queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *UploadService {
	return &UploadService{
		pipe:   pipe,
		ledger: ledger,
		queue:  queue,
		cfg:    cfg,
		log:    log,
	}
}

func (s *UploadService) Options(slot Slot) (pipeline.Options, error) {
	var sc config.SlotConfig
	switch slot {
	case SlotLogo:
		sc = s.cfg.Uploads.Logo
	case SlotBackground:
		sc = s.cfg.Uploads.Background
	case SlotCarousel:
		sc = s.cfg.Uploads.Carousel
	case SlotDiary:
		sc = s.cfg.Uploads.Diary
	case SlotPersona:
		sc = s.cfg.Uploads.Persona
	case SlotLinkIcon:
		sc = s.cfg.Uploads.LinkIcon
	default:
		return pipeline.Options{}, fmt.Errorf("unknown upload slot %q", slot)
	}

	return pipeline.Options{
		Purpose:           sc.Purpose,
		MaxUploadBytes:    sc.MaxUploadBytes,
		ShortCircuitBytes: sc.ShortCircuitBytes,
		MaxEncodedBytes:   sc.MaxEncodedBytes,
		RetentionFraction: sc.RetentionFraction,
		MaxEdge:           sc.MaxEdge,
		Quality:           sc.Quality,
		Timeout:           sc.Timeout,
		CropSize:          sc.CropSize,
	}, nil
}

type SlotUpload struct {
	Slot    Slot
	OwnerID string
	File    pipeline.SourceFile
	Crop    *pipeline.CropRegion
	// CropCancelled marks a crop dialog dismissed without a region; the run
	// aborts with pipeline.ErrCancelled before any storage call.
	CropCancelled bool
	Target        pipeline.DocumentTarget
}

// Upload runs the pipeline for one file, records the stored asset in the
// ledger, and hands any failed supersession delete to the cleanup worker.
func (s *UploadService) Upload(ctx context.Context, in SlotUpload) (pipeline.StoredAsset, error) {
	opts, err := s.Options(in.Slot)
	if err != nil {
		return pipeline.StoredAsset{}, err
	}

	var crop pipeline.CropFunc
	switch {
	case in.CropCancelled:
		crop = func(context.Context, pipeline.NormalizedImage) (*pipeline.CropRegion, error) {
			return nil, nil
		}
	case in.Crop != nil:
		region := *in.Crop
		crop = func(context.Context, pipeline.NormalizedImage) (*pipeline.CropRegion, error) {
			return &region, nil
		}
	}

	result, err := s.pipe.Run(ctx, in.File, in.OwnerID, opts, crop, in.Target)
	if err != nil {
		return pipeline.StoredAsset{}, err
	}

	s.record(ctx, in, opts.Purpose, result)
	return result.Asset, nil
}

// UploadMany runs independent per-file pipelines concurrently. Completion
// order is unspecified; results are tracked per input index. The first
// failure cancels the remaining runs.
func (s *UploadService) UploadMany(ctx context.Context, slot Slot, ownerID string, files []pipeline.SourceFile, target pipeline.DocumentTarget) ([]string, error) {
	urls := make([]string, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			asset, err := s.Upload(ctx, SlotUpload{
				Slot:    slot,
				OwnerID: ownerID,
				File:    file,
				Target:  target,
			})
			if err != nil {
				return err
			}
			urls[i] = asset.URL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// record keeps the ledger consistent with what the pipeline did. Ledger
// failures are logged, never surfaced: the user-visible upload already
// succeeded.
func (s *UploadService) record(ctx context.Context, in SlotUpload, purpose string, result pipeline.Result) {
	if s.ledger == nil {
		return
	}

	if err := s.ledger.Create(ctx, models.Asset{
		ID:      ids.New(),
		OwnerID: in.OwnerID,
		Purpose: purpose,
		Path:    result.Asset.Path,
		URL:     result.Asset.URL,
		Status:  models.AssetStatusLive,
	}); err != nil {
		s.log.Warn().Err(err).Str("path", result.Asset.Path).Msg("asset ledger write failed")
	}

	if prev := in.Target.PreviousPath; prev != "" && prev != result.Asset.Path {
		status := models.AssetStatusDeleted
		if result.LeakedPath != "" {
			status = models.AssetStatusSuperseded
		}
		if err := s.ledger.UpdateStatusByPath(ctx, prev, status); err != nil && err != repository.ErrAssetNotFound {
			s.log.Warn().Err(err).Str("path", prev).Msg("asset ledger update failed")
		}
	}

	if result.LeakedPath != "" {
		s.enqueueDelete(ctx, result.LeakedPath)
	}
}

// DeleteAssets is called when an owning entity (diary entry, link) is
// removed: the referenced assets are deleted best-effort, and anything that
// could not be deleted now goes to the worker.
func (s *UploadService) DeleteAssets(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		s.enqueueDelete(ctx, path)
	}
}

func (s *UploadService) enqueueDelete(ctx context.Context, path string) {
	if s.queue == nil {
		s.log.Warn().Str("path", path).Msg("no cleanup queue, asset orphaned")
		return
	}
	err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.Redis.CleanupStream,
		Values: map[string]any{"type": "delete_asset", "path": path},
	}).Err()
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("cleanup enqueue failed, asset orphaned")
	}
}
