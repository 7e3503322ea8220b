package temporal

import (
	"go.temporal.io/sdk/workflow"

	"digifeeds/internal/pipeline"
)

const ProcessBarcodeWorkflowName = "ProcessBarcodeWorkflow"

type WorkflowInput struct {
	Barcode string
}

type WorkflowResult struct {
	Barcode string
	Outcome pipeline.Outcome
}

// ProcessBarcodeWorkflow runs one barcode through the pipeline transitions as
// activities. Expected "not yet" stops complete the workflow with the
// matching outcome; a later batch run picks the barcode up again.
func ProcessBarcodeWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	var added AddToDigifeedsSetOutput
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyAddToDigifeedsSet),
		(*Activities).AddToDigifeedsSetActivity,
		AddToDigifeedsSetInput{Barcode: input.Barcode},
	).Get(ctx, &added); err != nil {
		return WorkflowResult{}, err
	}
	if !added.InSet && added.NotFoundInAlma {
		return WorkflowResult{Barcode: input.Barcode, Outcome: pipeline.OutcomeNotFoundInAlma}, nil
	}

	var zephir CheckZephirOutput
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyCheckZephir),
		(*Activities).CheckZephirActivity,
		CheckZephirInput{Barcode: input.Barcode},
	).Get(ctx, &zephir); err != nil {
		return WorkflowResult{}, err
	}
	if !zephir.Found {
		return WorkflowResult{Barcode: input.Barcode, Outcome: pipeline.OutcomeWaitingOnZephir}, nil
	}

	var moved MoveToPickupOutput
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyMoveToPickup),
		(*Activities).MoveToPickupActivity,
		MoveToPickupInput{Barcode: input.Barcode},
	).Get(ctx, &moved); err != nil {
		return WorkflowResult{}, err
	}
	if !moved.Moved {
		return WorkflowResult{Barcode: input.Barcode, Outcome: pipeline.OutcomeWaitingPeriod}, nil
	}

	return WorkflowResult{Barcode: input.Barcode, Outcome: pipeline.OutcomeMovedToPickup}, nil
}
