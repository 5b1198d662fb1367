package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"linkbio/internal/models"
	"linkbio/internal/repository"
)

const (
	TaskDeleteAsset = "delete_asset"
	TaskOrphanSweep = "orphan_sweep"

	sweepBatchSize = 100
)

// ObjectRemover deletes a stored object by path.
type ObjectRemover interface {
	Delete(ctx context.Context, path string) error
}

// AssetLedger is the slice of the asset repository the worker needs.
type AssetLedger interface {
	UpdateStatusByPath(ctx context.Context, path string, status models.AssetStatus) error
	ListSuperseded(ctx context.Context, cutoff time.Time, limit int) ([]models.Asset, error)
}

// Processor consumes cleanup tasks: targeted deletes that failed inline
// during upload supersession, and periodic sweeps for anything that slipped
// through both.
type Processor struct {
	store     ObjectRemover
	ledger    AssetLedger
	retention time.Duration
	log       zerolog.Logger
}

func NewProcessor(store ObjectRemover, ledger AssetLedger, retention time.Duration, log zerolog.Logger) *Processor {
	return &Processor{
		store:     store,
		ledger:    ledger,
		retention: retention,
		log:       log,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType, _ := msg.Values["type"].(string)

	switch taskType {
	case TaskDeleteAsset:
		path, _ := msg.Values["path"].(string)
		if path == "" {
			p.log.Warn().Str("message_id", msg.ID).Msg("delete task without path, dropping")
			return nil
		}
		return p.deleteAsset(ctx, path)
	case TaskOrphanSweep:
		return p.sweepOrphans(ctx)
	default:
		p.log.Warn().Str("type", taskType).Str("message_id", msg.ID).Msg("unknown task, dropping")
		return nil
	}
}

func (p *Processor) deleteAsset(ctx context.Context, path string) error {
	if err := p.store.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete object %s: %w", path, err)
	}

	if err := p.ledger.UpdateStatusByPath(ctx, path, models.AssetStatusDeleted); err != nil {
		if err == repository.ErrAssetNotFound {
			p.log.Warn().Str("path", path).Msg("deleted object had no ledger row")
			return nil
		}
		return fmt.Errorf("mark deleted %s: %w", path, err)
	}

	p.log.Info().Str("path", path).Msg("superseded asset removed")
	return nil
}

func (p *Processor) sweepOrphans(ctx context.Context) error {
	cutoff := time.Now().Add(-p.retention)

	assets, err := p.ledger.ListSuperseded(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("list superseded: %w", err)
	}
	if len(assets) == 0 {
		return nil
	}

	var failed int
	for _, asset := range assets {
		if err := p.deleteAsset(ctx, asset.Path); err != nil {
			// Keep sweeping; the row stays superseded and the next
			// sweep retries it.
			p.log.Error().Err(err).Str("path", asset.Path).Msg("sweep delete failed")
			failed++
		}
	}

	p.log.Info().
		Int("swept", len(assets)-failed).
		Int("failed", failed).
		Time("cutoff", cutoff).
		Msg("orphan sweep complete")
	return nil
}
