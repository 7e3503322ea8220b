package pipeline

import (
	"context"
	"log"

	"digifeeds/internal/domain"
)

const sweepPageSize = 100

// ConfirmPendingHathifiles runs the hathifiles check over every item that was
// delivered (pending_deletion) but not yet confirmed (no in_hathifiles).
// Returns the barcodes confirmed this sweep.
func (p *Pipeline) ConfirmPendingHathifiles(ctx context.Context) ([]string, error) {
	// Snapshot the candidate barcodes first: confirming an item removes it
	// from the result set, which would make live offset pagination skip.
	barcodes := make([]string, 0)
	for offset := 0; ; offset += sweepPageSize {
		page, err := p.store.ListItems(ctx, domain.FilterPendingDeletion, "-status:in_hathifiles", sweepPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			barcodes = append(barcodes, item.Barcode)
		}
		if int64(offset+len(page.Items)) >= page.Total || len(page.Items) == 0 {
			break
		}
	}

	confirmed := make([]string, 0)
	for _, barcode := range barcodes {
		_, found, err := p.CheckHathifiles(ctx, barcode)
		if err != nil {
			return confirmed, err
		}
		if found {
			log.Printf("barcode %s: confirmed in hathifiles", barcode)
			confirmed = append(confirmed, barcode)
		}
	}
	return confirmed, nil
}
