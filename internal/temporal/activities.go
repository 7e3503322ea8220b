package temporal

import (
	"context"

	"digifeeds/internal/domain"
)

// BarcodePipeline is the slice of the item state machine the activities run.
// *pipeline.Pipeline satisfies it.
type BarcodePipeline interface {
	AddToDigifeedsSet(ctx context.Context, barcode string) (domain.Item, error)
	CheckZephir(ctx context.Context, barcode string) (domain.Item, bool, error)
	MoveToPickup(ctx context.Context, barcode string) (domain.Item, bool, error)
}

type Activities struct {
	Pipeline BarcodePipeline
}

type AddToDigifeedsSetInput struct {
	Barcode string
}

type AddToDigifeedsSetOutput struct {
	InSet          bool
	NotFoundInAlma bool
}

type CheckZephirInput struct {
	Barcode string
}

type CheckZephirOutput struct {
	Found bool
}

type MoveToPickupInput struct {
	Barcode string
}

type MoveToPickupOutput struct {
	Moved bool
}

func (a *Activities) AddToDigifeedsSetActivity(ctx context.Context, input AddToDigifeedsSetInput) (AddToDigifeedsSetOutput, error) {
	item, err := a.Pipeline.AddToDigifeedsSet(ctx, input.Barcode)
	if err != nil {
		return AddToDigifeedsSetOutput{}, err
	}
	return AddToDigifeedsSetOutput{
		InSet:          item.HasStatus(domain.StatusAddedToDigifeedsSet),
		NotFoundInAlma: item.HasStatus(domain.StatusNotFoundInAlma),
	}, nil
}

func (a *Activities) CheckZephirActivity(ctx context.Context, input CheckZephirInput) (CheckZephirOutput, error) {
	_, found, err := a.Pipeline.CheckZephir(ctx, input.Barcode)
	if err != nil {
		return CheckZephirOutput{}, err
	}
	return CheckZephirOutput{Found: found}, nil
}

func (a *Activities) MoveToPickupActivity(ctx context.Context, input MoveToPickupInput) (MoveToPickupOutput, error) {
	_, moved, err := a.Pipeline.MoveToPickup(ctx, input.Barcode)
	if err != nil {
		return MoveToPickupOutput{}, err
	}
	return MoveToPickupOutput{Moved: moved}, nil
}
