package models

import "time"

type AssetStatus string

const (
	// AssetStatusLive marks the asset a document field currently points at.
	AssetStatusLive AssetStatus = "live"
	// AssetStatusSuperseded marks an asset replaced by a newer upload in the
	// same slot; the worker deletes these.
	AssetStatusSuperseded AssetStatus = "superseded"
	AssetStatusDeleted    AssetStatus = "deleted"
)

// Asset is the ledger row for one stored object. The ledger exists so
// best-effort cleanup stays observable: a superseded row that never turns
// deleted is a leak.
type Asset struct {
	ID        string
	OwnerID   string
	Purpose   string
	Path      string
	URL       string
	Status    AssetStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
