package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digifeeds/internal/alma"
	"digifeeds/internal/dbclient"
	"digifeeds/internal/domain"
)

// AddToDigifeedsSet ensures the barcode exists in the database and is a
// member of the digifeeds set in the ILS. Items that already carry
// added_to_digifeeds_set are returned untouched without an ILS call. An
// unknown barcode is not fatal: the item gets not_found_in_alma (at most
// once) so operators can follow up.
func (p *Pipeline) AddToDigifeedsSet(ctx context.Context, barcode string) (domain.Item, error) {
	item, err := p.store.GetOrCreateItem(ctx, barcode)
	if err != nil {
		return domain.Item{}, err
	}
	if item.HasStatus(domain.StatusAddedToDigifeedsSet) {
		return item, nil
	}

	err = p.alma.AddBarcodeToDigifeedsSet(ctx, barcode)
	switch {
	case errors.Is(err, alma.ErrUnknownBarcode):
		if !item.HasStatus(domain.StatusNotFoundInAlma) {
			return p.store.AddItemStatus(ctx, barcode, domain.StatusNotFoundInAlma)
		}
		return item, nil
	case errors.Is(err, alma.ErrAlreadyMember):
		// The set already has the barcode; the database just never heard.
	case err != nil:
		return domain.Item{}, err
	}

	return p.store.AddItemStatus(ctx, barcode, domain.StatusAddedToDigifeedsSet)
}

// CheckZephir reports whether the barcode's metadata has arrived in Zephir,
// appending in_zephir on the first sighting. Items that already carry
// in_zephir skip the registry call.
func (p *Pipeline) CheckZephir(ctx context.Context, barcode string) (domain.Item, bool, error) {
	item, err := p.store.GetItem(ctx, barcode)
	if err != nil {
		return domain.Item{}, false, err
	}
	if item.HasStatus(domain.StatusInZephir) {
		return item, true, nil
	}

	found, err := p.zephir.HasBibRecord(ctx, barcode)
	if err != nil {
		return domain.Item{}, false, err
	}
	if !found {
		return item, false, nil
	}

	item, err = p.store.AddItemStatus(ctx, barcode, domain.StatusInZephir)
	if err != nil {
		return domain.Item{}, false, err
	}
	return item, true, nil
}

// ReadyForPickup reports whether the item has been in Zephir long enough for
// its metadata to have propagated. The boundary is inclusive: an item whose
// in_zephir event is exactly WaitingPeriod old is ready.
func ReadyForPickup(item domain.Item, now time.Time) bool {
	cutoff := now.Add(-WaitingPeriod)
	for _, event := range item.StatusEvents(domain.StatusInZephir) {
		if !event.CreatedAt.After(cutoff) {
			return true
		}
	}
	return false
}

// MoveToPickup delivers the item's zip to the pickup remote and moves the
// bucket copy into the processed area under a timestamped name. Returns
// moved=false without touching anything when the item has not been in Zephir
// long enough.
//
// The copy and the status events are not one transaction. If a step fails
// partway the item can be left with copying_start and no copying_end, which
// is exactly the signal operators use to find wedged transfers.
func (p *Pipeline) MoveToPickup(ctx context.Context, barcode string) (domain.Item, bool, error) {
	item, err := p.store.GetItem(ctx, barcode)
	if err != nil {
		return domain.Item{}, false, err
	}
	if !ReadyForPickup(item, p.now()) {
		return item, false, nil
	}

	if _, err := p.store.AddItemStatus(ctx, barcode, domain.StatusCopyingStart); err != nil {
		return domain.Item{}, false, err
	}

	src := fmt.Sprintf("%s:%s/%s.zip", p.remotes.S3Remote, p.remotes.InputPath, barcode)
	if err := p.mover.Copyto(ctx, src, fmt.Sprintf("%s:%s.zip", p.remotes.PickupRemote, barcode)); err != nil {
		return domain.Item{}, false, err
	}

	if _, err := p.store.AddItemStatus(ctx, barcode, domain.StatusCopyingEnd); err != nil {
		return domain.Item{}, false, err
	}

	stamp := p.now().Format("2006-01-02_15-04-05")
	dst := fmt.Sprintf("%s:%s/%s_%s.zip", p.remotes.S3Remote, p.remotes.ProcessedPath, stamp, barcode)
	if err := p.mover.Moveto(ctx, src, dst); err != nil {
		return domain.Item{}, false, err
	}

	item, err = p.store.AddItemStatus(ctx, barcode, domain.StatusPendingDeletion)
	if err != nil {
		return domain.Item{}, false, err
	}
	return item, true, nil
}

// CheckHathifiles confirms the item landed in HathiTrust by looking it up in
// the hathifiles holdings database. On the first confirmation the record's
// rights timestamp is written to the item (a one-time write that also appends
// in_hathifiles). Items already confirmed are returned untouched.
func (p *Pipeline) CheckHathifiles(ctx context.Context, barcode string) (domain.Item, bool, error) {
	item, err := p.store.GetItem(ctx, barcode)
	if err != nil {
		return domain.Item{}, false, err
	}
	if item.HathifilesTimestamp != nil {
		return item, true, nil
	}

	record, err := p.holdings.GetItem(ctx, "mdp."+barcode)
	if err != nil {
		return domain.Item{}, false, err
	}
	if record == nil {
		return item, false, nil
	}

	ts, err := record.RightsTime()
	if err != nil {
		return domain.Item{}, false, err
	}

	item, err = p.store.SetHathifilesTimestamp(ctx, barcode, ts)
	if errors.Is(err, dbclient.ErrAlreadyHasValue) {
		// Another run confirmed it first.
		item, err = p.store.GetItem(ctx, barcode)
	}
	if err != nil {
		return domain.Item{}, false, err
	}
	return item, true, nil
}
