package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/adforge-ai/adgen-backend/pkg/constant"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// AdVariantI groups the ad variant persistence operations.
type AdVariantI interface {
	CreateAdVariants(ctx context.Context, variants []AdVariant) ([]AdVariant, error)
	ListAdVariantsByRequest(ctx context.Context, requestUID types.RequestUIDType) ([]AdVariant, error)
}

// AdVariant is one of exactly three candidate ads for a request. Created by
// the creative phase with zero scores, scored once by the analyst phase and
// persisted by the orchestrator; immutable afterwards except for user-driven
// edit flags appended externally.
type AdVariant struct {
	UID        types.VariantUIDType `gorm:"column:uid;type:uuid;default:uuid_generate_v4();primaryKey" json:"uid"`
	RequestUID types.RequestUIDType `gorm:"column:request_uid;type:uuid;not null;index" json:"request_uid"`

	VariantIndex int    `gorm:"column:variant_index;not null" json:"variant_index"`
	VariantType  string `gorm:"column:variant_type;size:32;not null" json:"variant_type"`

	Headline      string         `gorm:"column:headline;size:255;not null" json:"headline"`
	AltHeadlines  pq.StringArray `gorm:"column:alt_headlines;type:varchar(255)[]" json:"alt_headlines,omitempty"`
	PrimaryText   string         `gorm:"column:primary_text;not null" json:"primary_text"`
	Description   string         `gorm:"column:description" json:"description,omitempty"`
	CTA           string         `gorm:"column:cta;size:255;not null" json:"cta"`
	CTARationale  string         `gorm:"column:cta_rationale" json:"cta_rationale,omitempty"`
	HookTechnique string         `gorm:"column:hook_technique;size:255" json:"hook_technique,omitempty"`
	Tone          string         `gorm:"column:tone;size:255" json:"tone,omitempty"`

	PredictedScore float64        `gorm:"column:predicted_score;not null;default:0" json:"predicted_score"`
	ScoreBreakdown datatypes.JSON `gorm:"column:score_breakdown;type:jsonb" json:"score_breakdown,omitempty"`
	Reasoning      string         `gorm:"column:reasoning" json:"reasoning,omitempty"`

	UsedKnowledgeUIDs pq.StringArray `gorm:"column:used_knowledge_uids;type:varchar(255)[]" json:"used_knowledge_uids,omitempty"`

	Selected bool `gorm:"column:selected;not null;default:false" json:"selected"`
	Edited   bool `gorm:"column:edited;not null;default:false" json:"edited"`

	CreateTime *time.Time `gorm:"column:create_time;not null;default:CURRENT_TIMESTAMP" json:"create_time"`
	UpdateTime *time.Time `gorm:"column:update_time;not null;autoUpdateTime" json:"update_time"`
}

// TableName overrides the table name
func (AdVariant) TableName() string {
	return "ad_variant"
}

// ScoreBreakdown is the per-dimension decomposition of a predicted score.
type ScoreBreakdown struct {
	BrandFit           float64 `json:"brand_fit"`
	ContextRelevance   float64 `json:"context_relevance"`
	PlatformCompliance float64 `json:"platform_compliance"`
	HookStrength       float64 `json:"hook_strength"`
	CTAClarity         float64 `json:"cta_clarity"`
}

// CreateAdVariants inserts the full variant set of one request in a single
// transaction. A request owns exactly zero or three variants, so a partial
// write is never left behind.
func (r *repository) CreateAdVariants(ctx context.Context, variants []AdVariant) ([]AdVariant, error) {
	if len(variants) != constant.VariantsPerRequest {
		return nil, fmt.Errorf("%w: expected %d variants, got %d",
			errorsx.ErrInvalidArgument, constant.VariantsPerRequest, len(variants))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range variants {
			if err := tx.Create(&variants[i]).Error; err != nil {
				return fmt.Errorf("creating ad variant %d: %w", variants[i].VariantIndex, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return variants, nil
}

// ListAdVariantsByRequest returns a request's variants ordered by descending
// predicted score, ties broken by ascending variant index, which preserves
// the ranking computed at generation time.
func (r *repository) ListAdVariantsByRequest(ctx context.Context, requestUID types.RequestUIDType) ([]AdVariant, error) {
	var variants []AdVariant
	err := r.db.WithContext(ctx).
		Where("request_uid = ?", requestUID).
		Order("predicted_score DESC, variant_index ASC").
		Find(&variants).Error
	if err != nil {
		return nil, fmt.Errorf("listing ad variants: %w", err)
	}
	return variants, nil
}
