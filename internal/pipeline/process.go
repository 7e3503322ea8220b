package pipeline

import (
	"context"
	"log"

	"digifeeds/internal/domain"
)

// Outcome is where a ProcessBarcode run stopped. Every outcome except
// OutcomeMovedToPickup means "try again on a later run", not failure.
type Outcome string

const (
	OutcomeNotFoundInAlma  Outcome = "not_found_in_alma"
	OutcomeWaitingOnZephir Outcome = "waiting_on_zephir"
	OutcomeWaitingPeriod   Outcome = "waiting_period_not_over"
	OutcomeMovedToPickup   Outcome = "moved_to_pickup"
)

// ProcessBarcode runs a barcode as far through the pipeline as it can go
// right now: into the digifeeds set, past the Zephir check, and onto the
// pickup remote once the waiting period is over. Expected stops come back as
// an Outcome; only unclassified external failures return an error.
func (p *Pipeline) ProcessBarcode(ctx context.Context, barcode string) (Outcome, error) {
	item, err := p.AddToDigifeedsSet(ctx, barcode)
	if err != nil {
		return "", err
	}
	if item.HasStatus(domain.StatusNotFoundInAlma) && !item.HasStatus(domain.StatusAddedToDigifeedsSet) {
		log.Printf("barcode %s: not found in alma", barcode)
		return OutcomeNotFoundInAlma, nil
	}
	log.Printf("barcode %s: in digifeeds set", barcode)

	_, found, err := p.CheckZephir(ctx, barcode)
	if err != nil {
		return "", err
	}
	if !found {
		log.Printf("barcode %s: not in zephir yet", barcode)
		return OutcomeWaitingOnZephir, nil
	}
	log.Printf("barcode %s: in zephir", barcode)

	_, moved, err := p.MoveToPickup(ctx, barcode)
	if err != nil {
		return "", err
	}
	if !moved {
		log.Printf("barcode %s: waiting period not over", barcode)
		return OutcomeWaitingPeriod, nil
	}
	log.Printf("barcode %s: moved to pickup", barcode)
	return OutcomeMovedToPickup, nil
}
