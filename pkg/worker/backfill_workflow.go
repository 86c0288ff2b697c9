package worker

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/adforge-ai/adgen-backend/pkg/repository"
)

// KnowledgeBackfillWorkflowParam tunes one backfill run. Zero values fall
// back to the package defaults.
type KnowledgeBackfillWorkflowParam struct {
	BatchSize int
	ItemDelay time.Duration
}

// KnowledgeBackfillWorkflowResult summarizes one run.
type KnowledgeBackfillWorkflowResult struct {
	Total     int
	Generated int
	Errors    []string
}

// KnowledgeBackfillWorkflow walks both knowledge collections and embeds
// every item that has no vector yet, one item at a time with a pause in
// between. A failing item is recorded and skipped; the run finishes the rest
// of the backlog regardless.
func (w *Worker) KnowledgeBackfillWorkflow(ctx workflow.Context, param KnowledgeBackfillWorkflowParam) (*KnowledgeBackfillWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	batchSize := param.BatchSize
	if batchSize <= 0 {
		batchSize = BackfillBatchSize
	}
	itemDelay := param.ItemDelay
	if itemDelay <= 0 {
		itemDelay = BackfillItemDelay
	}

	listOptions := workflow.ActivityOptions{
		StartToCloseTimeout: ActivityTimeoutStandard,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    RetryInitialInterval,
			BackoffCoefficient: RetryBackoffCoefficient,
			MaximumInterval:    RetryMaximumInterval,
			MaximumAttempts:    RetryMaximumAttempts,
		},
	}
	embedOptions := workflow.ActivityOptions{
		StartToCloseTimeout: ActivityTimeoutEmbed,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    RetryInitialInterval,
			BackoffCoefficient: RetryBackoffCoefficient,
			MaximumInterval:    RetryMaximumInterval,
			MaximumAttempts:    RetryMaximumAttempts,
		},
	}

	result := &KnowledgeBackfillWorkflowResult{}

	for _, collection := range []string{repository.BestPracticeCollection, repository.AdExampleCollection} {
		listCtx := workflow.WithActivityOptions(ctx, listOptions)
		var listed ListMissingKnowledgeActivityResult
		err := workflow.ExecuteActivity(listCtx, w.ListMissingKnowledgeActivity, &ListMissingKnowledgeActivityParam{
			Collection: collection,
			Limit:      batchSize,
		}).Get(ctx, &listed)
		if err != nil {
			logger.Error("Failed to list knowledge backlog", "collection", collection, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: listing backlog: %v", collection, err))
			continue
		}

		logger.Info("Backfill backlog listed", "collection", collection, "items", len(listed.Items))
		result.Total += len(listed.Items)

		embedCtx := workflow.WithActivityOptions(ctx, embedOptions)
		for i, item := range listed.Items {
			err := workflow.ExecuteActivity(embedCtx, w.EmbedKnowledgeItemActivity, &EmbedKnowledgeItemActivityParam{
				Collection: collection,
				Item:       item,
			}).Get(ctx, nil)
			if err != nil {
				logger.Error("Failed to embed knowledge item",
					"collection", collection,
					"itemUID", item.ItemUID.String(),
					"error", err)
				result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", collection, item.ItemUID.String(), err))
			} else {
				result.Generated++
			}

			if i < len(listed.Items)-1 {
				if err := workflow.Sleep(ctx, itemDelay); err != nil {
					return result, err
				}
			}
		}
	}

	logger.Info("Knowledge backfill finished",
		"total", result.Total,
		"generated", result.Generated,
		"errors", len(result.Errors))
	return result, nil
}
