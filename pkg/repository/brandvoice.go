package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// BrandVoiceI groups the brand voice lookups.
type BrandVoiceI interface {
	GetBrandVoiceByTenant(ctx context.Context, tenantUID types.TenantUIDType) (*BrandVoiceProfile, error)
}

// BrandVoiceProfile is a tenant's voice-profiling result. Read-only to the
// pipeline; written by the (out-of-scope) profiling flow.
type BrandVoiceProfile struct {
	TenantUID types.TenantUIDType `gorm:"column:tenant_uid;type:uuid;primaryKey" json:"tenant_uid"`

	Tone        string `gorm:"column:tone;size:255" json:"tone"`
	Style       string `gorm:"column:style;size:255" json:"style"`
	Personality string `gorm:"column:personality;size:255" json:"personality"`

	PreferredVocabulary pq.StringArray `gorm:"column:preferred_vocabulary;type:varchar(255)[]" json:"preferred_vocabulary,omitempty"`
	AvoidedVocabulary   pq.StringArray `gorm:"column:avoided_vocabulary;type:varchar(255)[]" json:"avoided_vocabulary,omitempty"`
	SignaturePhrases    pq.StringArray `gorm:"column:signature_phrases;type:varchar(255)[]" json:"signature_phrases,omitempty"`
	CoreValues          pq.StringArray `gorm:"column:core_values;type:varchar(255)[]" json:"core_values,omitempty"`

	Reputation      string `gorm:"column:reputation" json:"reputation,omitempty"`
	IdealCustomer   string `gorm:"column:ideal_customer" json:"ideal_customer,omitempty"`
	PainPoints      string `gorm:"column:pain_points" json:"pain_points,omitempty"`
	DesiredOutcomes string `gorm:"column:desired_outcomes" json:"desired_outcomes,omitempty"`

	// InstructionBlock is the pre-rendered constraint block injected into
	// creative prompts.
	InstructionBlock string `gorm:"column:instruction_block" json:"instruction_block,omitempty"`

	Completed  bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	CreateTime *time.Time `gorm:"column:create_time;not null;default:CURRENT_TIMESTAMP" json:"create_time"`
	UpdateTime *time.Time `gorm:"column:update_time;not null;autoUpdateTime" json:"update_time"`
}

// TableName overrides the table name
func (BrandVoiceProfile) TableName() string {
	return "brand_voice_profile"
}

// GetBrandVoiceByTenant returns the tenant's brand voice profile, or nil
// (without an error) when the tenant has no profile or the profiling step is
// incomplete. Absence of a voice is an expected degraded condition, never a
// retrieval failure.
func (r *repository) GetBrandVoiceByTenant(ctx context.Context, tenantUID types.TenantUIDType) (*BrandVoiceProfile, error) {
	var profile BrandVoiceProfile
	err := r.db.WithContext(ctx).Where("tenant_uid = ?", tenantUID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting brand voice profile: %w", err)
	}
	if !profile.Completed {
		return nil, nil
	}
	return &profile, nil
}
