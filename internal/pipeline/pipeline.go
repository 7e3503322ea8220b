// Package pipeline is the digifeeds item state machine: the transitions a
// barcode goes through between scanning and confirmed HathiTrust ingest, and
// the orchestrator that sequences them.
package pipeline

import (
	"context"
	"time"

	"digifeeds/internal/domain"
	"digifeeds/internal/hathifiles"
	"digifeeds/internal/rclone"
)

// WaitingPeriod is how long an item must have been in Zephir before its file
// moves to pickup. Zephir metadata takes up to two weeks to propagate into
// HathiTrust's ingest tooling.
const WaitingPeriod = 14 * 24 * time.Hour

// ItemStore is the slice of the digifeeds API the transitions use.
// *dbclient.Client satisfies it.
type ItemStore interface {
	GetItem(ctx context.Context, barcode string) (domain.Item, error)
	GetOrCreateItem(ctx context.Context, barcode string) (domain.Item, error)
	AddItemStatus(ctx context.Context, barcode string, status domain.StatusName) (domain.Item, error)
	SetHathifilesTimestamp(ctx context.Context, barcode string, ts time.Time) (domain.Item, error)
	ListItems(ctx context.Context, filter domain.ItemFilter, q string, limit, offset int) (domain.PageOfItems, error)
}

// SetClient adds barcodes to the digifeeds set in the ILS.
type SetClient interface {
	AddBarcodeToDigifeedsSet(ctx context.Context, barcode string) error
}

// MetadataClient checks the bibliographic metadata registry.
type MetadataClient interface {
	HasBibRecord(ctx context.Context, barcode string) (bool, error)
}

// HoldingsClient looks items up in the hathifiles holdings database.
type HoldingsClient interface {
	GetItem(ctx context.Context, htid string) (*hathifiles.Record, error)
}

// Mover shuttles files between the bucket, the pickup remote and the reports
// remote. *rclone.Rclone satisfies it.
type Mover interface {
	Copyto(ctx context.Context, src, dst string) error
	Moveto(ctx context.Context, src, dst string) error
	Ls(ctx context.Context, path string, includeFilters ...string) ([]rclone.Entry, error)
	Delete(ctx context.Context, path string) error
	Purge(ctx context.Context, path string) error
}

// Remotes names the rclone remotes and bucket paths the pipeline touches.
type Remotes struct {
	S3Remote      string
	InputPath     string
	ProcessedPath string
	PickupRemote  string
	ReportsRemote string
}

type Pipeline struct {
	store    ItemStore
	alma     SetClient
	zephir   MetadataClient
	holdings HoldingsClient
	mover    Mover
	remotes  Remotes

	now func() time.Time
}

func New(store ItemStore, alma SetClient, zephir MetadataClient, holdings HoldingsClient, mover Mover, remotes Remotes) *Pipeline {
	return &Pipeline{
		store:    store,
		alma:     alma,
		zephir:   zephir,
		holdings: holdings,
		mover:    mover,
		remotes:  remotes,
		now:      time.Now,
	}
}
