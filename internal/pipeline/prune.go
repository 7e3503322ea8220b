package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"digifeeds/internal/dbclient"
	"digifeeds/internal/domain"
)

// PruneTarget selects which copy of delivered files to clean up.
type PruneTarget string

const (
	PruneTargetS3         PruneTarget = "s3"
	PruneTargetFilesystem PruneTarget = "filesystem"
)

// PruneProcessed deletes delivered files whose items are confirmed in the
// hathifiles, and records the pruning on the item. Files for unconfirmed
// items and files with no matching item stay put. Returns the pruned
// barcodes.
func (p *Pipeline) PruneProcessed(ctx context.Context, target PruneTarget) ([]string, error) {
	var path string
	var status domain.StatusName
	switch target {
	case PruneTargetS3:
		path = p.remotes.S3Remote + ":" + p.remotes.ProcessedPath
		status = domain.StatusPrunedFromS3
	case PruneTargetFilesystem:
		path = p.remotes.PickupRemote + ":"
		status = domain.StatusPrunedFromFileserver
	default:
		return nil, fmt.Errorf("unknown prune target %q", target)
	}

	entries, err := p.mover.Ls(ctx, path)
	if err != nil {
		return nil, err
	}

	pruned := make([]string, 0)
	for _, entry := range entries {
		barcode := barcodeFromEntryName(entry.Name)
		if barcode == "" {
			continue
		}

		item, err := p.store.GetItem(ctx, barcode)
		if errors.Is(err, dbclient.ErrNotFound) {
			log.Printf("prune: no item for %s; leaving it", entry.Name)
			continue
		}
		if err != nil {
			return pruned, err
		}
		if !item.HasStatus(domain.StatusInHathifiles) {
			continue
		}

		remotePath := path + "/" + entry.Path
		if entry.IsDir {
			err = p.mover.Purge(ctx, remotePath)
		} else {
			err = p.mover.Delete(ctx, remotePath)
		}
		if err != nil {
			return pruned, err
		}

		if !item.HasStatus(status) {
			if _, err := p.store.AddItemStatus(ctx, barcode, status); err != nil {
				return pruned, err
			}
		}
		pruned = append(pruned, barcode)
	}
	return pruned, nil
}

// barcodeFromEntryName pulls the barcode out of either a timestamped
// processed name or a bare <barcode>.zip pickup name.
func barcodeFromEntryName(name string) string {
	if match := processedName.FindStringSubmatch(name); match != nil {
		return match[2]
	}
	name = strings.TrimSuffix(name, ".zip")
	if name == "" || strings.ContainsAny(name, "/") {
		return ""
	}
	return name
}
