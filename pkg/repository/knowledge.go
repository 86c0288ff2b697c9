package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// KnowledgeI groups the read-only knowledge lookups used by retrieval and
// the backfill queries used by the embedding worker.
type KnowledgeI interface {
	GetBestPracticesByUIDs(ctx context.Context, uids []types.KnowledgeUIDType) ([]BestPractice, error)
	GetAdExamplesByUIDs(ctx context.Context, uids []types.KnowledgeUIDType) ([]AdExample, error)
	ListBestPracticesMissingEmbedding(ctx context.Context, limit int) ([]BestPractice, error)
	ListAdExamplesMissingEmbedding(ctx context.Context, limit int) ([]AdExample, error)
	MarkBestPracticeEmbedded(ctx context.Context, uid types.KnowledgeUIDType) error
	MarkAdExampleEmbedded(ctx context.Context, uid types.KnowledgeUIDType) error
}

// BestPractice is a reusable copywriting guideline. Authored out-of-band,
// periodically embedded by the backfill worker, read-only to the pipeline.
// Platform, goal and category may each be the wildcard "all".
type BestPractice struct {
	UID         types.KnowledgeUIDType `gorm:"column:uid;type:uuid;default:uuid_generate_v4();primaryKey" json:"uid"`
	Title       string                 `gorm:"column:title;size:255;not null" json:"title"`
	Description string                 `gorm:"column:description;not null" json:"description"`
	Example     string                 `gorm:"column:example" json:"example,omitempty"`
	Platform    string                 `gorm:"column:platform;size:32;not null;default:all" json:"platform"`
	Goal        string                 `gorm:"column:goal;size:32;not null;default:all" json:"goal"`
	Category    string                 `gorm:"column:category;size:64;not null;default:all" json:"category"`
	Source      string                 `gorm:"column:source;size:255" json:"source,omitempty"`
	Verified    bool                   `gorm:"column:verified;not null;default:false" json:"verified"`
	Tags        pq.StringArray         `gorm:"column:tags;type:varchar(255)[]" json:"tags,omitempty"`
	EmbeddedAt  *time.Time             `gorm:"column:embedded_at" json:"embedded_at,omitempty"`
	CreateTime  *time.Time             `gorm:"column:create_time;not null;default:CURRENT_TIMESTAMP" json:"create_time"`
	UpdateTime  *time.Time             `gorm:"column:update_time;not null;autoUpdateTime" json:"update_time"`

	// Similarity is attached transiently during retrieval; never persisted.
	Similarity float32 `gorm:"-" json:"similarity,omitempty"`
}

// TableName overrides the table name
func (BestPractice) TableName() string {
	return "best_practice"
}

// AdExample is a historical ad with recorded performance. Same read-only
// lifecycle as BestPractice.
type AdExample struct {
	UID         types.KnowledgeUIDType `gorm:"column:uid;type:uuid;default:uuid_generate_v4();primaryKey" json:"uid"`
	Headline    string                 `gorm:"column:headline;size:255;not null" json:"headline"`
	PrimaryText string                 `gorm:"column:primary_text;not null" json:"primary_text"`
	Platform    string                 `gorm:"column:platform;size:32;not null;default:all" json:"platform"`
	Category    string                 `gorm:"column:category;size:64;not null;default:all" json:"category"`
	Performance string                 `gorm:"column:performance;size:16;not null;default:untracked" json:"performance"`
	Percentile  float64                `gorm:"column:percentile;not null;default:0" json:"percentile"`
	Tags        pq.StringArray         `gorm:"column:tags;type:varchar(255)[]" json:"tags,omitempty"`
	EmbeddedAt  *time.Time             `gorm:"column:embedded_at" json:"embedded_at,omitempty"`
	CreateTime  *time.Time             `gorm:"column:create_time;not null;default:CURRENT_TIMESTAMP" json:"create_time"`
	UpdateTime  *time.Time             `gorm:"column:update_time;not null;autoUpdateTime" json:"update_time"`

	// Similarity is attached transiently during retrieval; never persisted.
	Similarity float32 `gorm:"-" json:"similarity,omitempty"`
}

// TableName overrides the table name
func (AdExample) TableName() string {
	return "ad_example"
}

// GetBestPracticesByUIDs hydrates best practices from a set of UIDs returned
// by the vector search. Missing rows are skipped, not an error: a knowledge
// item deleted between embedding and retrieval should not abort generation.
func (r *repository) GetBestPracticesByUIDs(ctx context.Context, uids []types.KnowledgeUIDType) ([]BestPractice, error) {
	if len(uids) == 0 {
		return []BestPractice{}, nil
	}
	var items []BestPractice
	if err := r.db.WithContext(ctx).Where("uid IN ?", uids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("getting best practices by UIDs: %w", err)
	}
	return items, nil
}

// GetAdExamplesByUIDs hydrates ad examples from a set of UIDs returned by
// the vector search.
func (r *repository) GetAdExamplesByUIDs(ctx context.Context, uids []types.KnowledgeUIDType) ([]AdExample, error) {
	if len(uids) == 0 {
		return []AdExample{}, nil
	}
	var items []AdExample
	if err := r.db.WithContext(ctx).Where("uid IN ?", uids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("getting ad examples by UIDs: %w", err)
	}
	return items, nil
}

// ListBestPracticesMissingEmbedding returns best practices without a stored
// embedding, oldest first, capped at limit.
func (r *repository) ListBestPracticesMissingEmbedding(ctx context.Context, limit int) ([]BestPractice, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var items []BestPractice
	err := r.db.WithContext(ctx).
		Where("embedded_at IS NULL").
		Order("create_time ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing best practices missing embedding: %w", err)
	}
	return items, nil
}

// ListAdExamplesMissingEmbedding returns ad examples without a stored
// embedding, oldest first, capped at limit.
func (r *repository) ListAdExamplesMissingEmbedding(ctx context.Context, limit int) ([]AdExample, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var items []AdExample
	err := r.db.WithContext(ctx).
		Where("embedded_at IS NULL").
		Order("create_time ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing ad examples missing embedding: %w", err)
	}
	return items, nil
}

// MarkBestPracticeEmbedded stamps a best practice as embedded. Stamping an
// already-embedded item is a no-op update, which keeps the backfill worker
// idempotent.
func (r *repository) MarkBestPracticeEmbedded(ctx context.Context, uid types.KnowledgeUIDType) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&BestPractice{}).
		Where("uid = ?", uid).
		Update("embedded_at", now).Error
	if err != nil {
		return fmt.Errorf("marking best practice embedded: %w", err)
	}
	return nil
}

// MarkAdExampleEmbedded stamps an ad example as embedded.
func (r *repository) MarkAdExampleEmbedded(ctx context.Context, uid types.KnowledgeUIDType) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&AdExample{}).
		Where("uid = ?", uid).
		Update("embedded_at", now).Error
	if err != nil {
		return fmt.Errorf("marking ad example embedded: %w", err)
	}
	return nil
}
