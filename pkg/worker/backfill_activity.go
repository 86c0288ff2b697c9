package worker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// BackfillItem is one knowledge item awaiting an embedding. Text is the
// pre-rendered embedding input so the embed activity stays collection
// agnostic.
type BackfillItem struct {
	ItemUID     types.KnowledgeUIDType
	Text        string
	Platform    string
	Goal        string
	Category    string
	Performance string
}

// ListMissingKnowledgeActivityParam selects one collection's backlog.
type ListMissingKnowledgeActivityParam struct {
	Collection string
	Limit      int
}

// ListMissingKnowledgeActivityResult carries the backlog slice.
type ListMissingKnowledgeActivityResult struct {
	Items []BackfillItem
}

// ListMissingKnowledgeActivity lists knowledge items without an embedding,
// oldest first, capped at Limit.
func (w *Worker) ListMissingKnowledgeActivity(ctx context.Context, param *ListMissingKnowledgeActivityParam) (*ListMissingKnowledgeActivityResult, error) {
	switch param.Collection {
	case repository.BestPracticeCollection:
		practices, err := w.repository.ListBestPracticesMissingEmbedding(ctx, param.Limit)
		if err != nil {
			return nil, fmt.Errorf("listing best practices missing embedding: %w", err)
		}
		items := make([]BackfillItem, 0, len(practices))
		for _, p := range practices {
			items = append(items, BackfillItem{
				ItemUID:  p.UID,
				Text:     bestPracticeEmbeddingText(p),
				Platform: p.Platform,
				Goal:     p.Goal,
				Category: p.Category,
			})
		}
		return &ListMissingKnowledgeActivityResult{Items: items}, nil

	case repository.AdExampleCollection:
		examples, err := w.repository.ListAdExamplesMissingEmbedding(ctx, param.Limit)
		if err != nil {
			return nil, fmt.Errorf("listing ad examples missing embedding: %w", err)
		}
		items := make([]BackfillItem, 0, len(examples))
		for _, e := range examples {
			items = append(items, BackfillItem{
				ItemUID:     e.UID,
				Text:        adExampleEmbeddingText(e),
				Platform:    e.Platform,
				Category:    e.Category,
				Performance: e.Performance,
			})
		}
		return &ListMissingKnowledgeActivityResult{Items: items}, nil

	default:
		return nil, fmt.Errorf("unknown knowledge collection %q", param.Collection)
	}
}

// EmbedKnowledgeItemActivityParam carries one item through embed, upsert and
// mark.
type EmbedKnowledgeItemActivityParam struct {
	Collection string
	Item       BackfillItem
}

// EmbedKnowledgeItemActivity embeds one knowledge item, upserts the vector
// and records the completion timestamp. Upsert makes the activity safe to
// retry: a second run overwrites the same vector.
func (w *Worker) EmbedKnowledgeItemActivity(ctx context.Context, param *EmbedKnowledgeItemActivityParam) error {
	res, err := w.aiProvider.EmbedTexts(ctx, []string{param.Item.Text})
	if err != nil {
		return fmt.Errorf("embedding knowledge item %s: %w", param.Item.ItemUID.String(), err)
	}
	if len(res.Vectors) != 1 {
		return fmt.Errorf("expected 1 vector for knowledge item %s, got %d", param.Item.ItemUID.String(), len(res.Vectors))
	}

	err = w.vectorDB.UpsertKnowledgeVectors(ctx, param.Collection, []repository.KnowledgeVector{{
		ItemUID:     param.Item.ItemUID.String(),
		Platform:    param.Item.Platform,
		Goal:        param.Item.Goal,
		Category:    param.Item.Category,
		Performance: param.Item.Performance,
		Vector:      res.Vectors[0],
	}})
	if err != nil {
		return fmt.Errorf("upserting vector for knowledge item %s: %w", param.Item.ItemUID.String(), err)
	}

	switch param.Collection {
	case repository.BestPracticeCollection:
		err = w.repository.MarkBestPracticeEmbedded(ctx, param.Item.ItemUID)
	case repository.AdExampleCollection:
		err = w.repository.MarkAdExampleEmbedded(ctx, param.Item.ItemUID)
	default:
		err = fmt.Errorf("unknown knowledge collection %q", param.Collection)
	}
	if err != nil {
		return err
	}

	w.log.Info("knowledge item embedded",
		zap.String("collection", param.Collection),
		zap.String("itemUID", param.Item.ItemUID.String()))
	return nil
}

// bestPracticeEmbeddingText concatenates the searchable fields of a best
// practice into one embedding input.
func bestPracticeEmbeddingText(p repository.BestPractice) string {
	parts := []string{p.Title, p.Description}
	if p.Example != "" {
		parts = append(parts, p.Example)
	}
	if len(p.Tags) > 0 {
		parts = append(parts, strings.Join(p.Tags, " "))
	}
	return strings.Join(parts, "\n")
}

func adExampleEmbeddingText(e repository.AdExample) string {
	parts := []string{e.Headline, e.PrimaryText}
	if len(e.Tags) > 0 {
		parts = append(parts, strings.Join(e.Tags, " "))
	}
	return strings.Join(parts, "\n")
}
