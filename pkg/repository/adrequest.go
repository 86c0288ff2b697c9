package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/adforge-ai/adgen-backend/pkg/constant"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// AdRequestI groups the ad request persistence operations.
type AdRequestI interface {
	CreateAdRequest(ctx context.Context, req AdRequest) (*AdRequest, error)
	GetAdRequest(ctx context.Context, uid types.RequestUIDType) (*AdRequest, error)
	ListAdRequestsByTenant(ctx context.Context, tenantUID types.TenantUIDType, limit int, before *time.Time) ([]AdRequest, error)
	UpdateAdRequestStatus(ctx context.Context, uid types.RequestUIDType, status constant.RequestStatus) error
	MarkAdRequestFailed(ctx context.Context, uid types.RequestUIDType, errMsg string) error
	CompleteAdRequest(ctx context.Context, uid types.RequestUIDType, update AdRequestCompletion) error
}

// AdRequest is one ad-generation attempt. It is created by the orchestrator
// at pipeline start and mutated only by the orchestrator as phases complete.
// Once the status is generated or failed the row is terminal.
type AdRequest struct {
	UID        types.RequestUIDType  `gorm:"column:uid;type:uuid;default:uuid_generate_v4();primaryKey" json:"uid"`
	TenantUID  types.TenantUIDType   `gorm:"column:tenant_uid;type:uuid;not null" json:"tenant_uid"`
	UserUID    *types.UserUIDType    `gorm:"column:user_uid;type:uuid" json:"user_uid,omitempty"`
	ProductUID *types.ProductUIDType `gorm:"column:product_uid;type:uuid" json:"product_uid,omitempty"`

	Platform           string `gorm:"column:platform;size:32;not null" json:"platform"`
	Goal               string `gorm:"column:goal;size:32;not null" json:"goal"`
	Format             string `gorm:"column:format;size:64" json:"format,omitempty"`
	Description        string `gorm:"column:description;not null" json:"description"`
	ImageRef           string `gorm:"column:image_ref;size:2047" json:"image_ref,omitempty"`
	BrandVoiceOverride string `gorm:"column:brand_voice_override" json:"brand_voice_override,omitempty"`
	TargetAudience     string `gorm:"column:target_audience" json:"target_audience,omitempty"`

	SelectedLength string         `gorm:"column:selected_length;size:16" json:"selected_length,omitempty"`
	Status         string         `gorm:"column:status;size:32;not null;default:pending" json:"status"`
	ErrorMessage   string         `gorm:"column:error_message" json:"error_message,omitempty"`
	RetryCount     int            `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	GenerationMS   int64          `gorm:"column:generation_ms;not null;default:0" json:"generation_ms"`
	CostEstimate   float64        `gorm:"column:cost_estimate;not null;default:0" json:"cost_estimate"`
	RetrievalMeta  datatypes.JSON `gorm:"column:retrieval_meta;type:jsonb" json:"retrieval_meta,omitempty"`

	CreateTime *time.Time `gorm:"column:create_time;not null;default:CURRENT_TIMESTAMP" json:"create_time"`
	UpdateTime *time.Time `gorm:"column:update_time;not null;autoUpdateTime" json:"update_time"`
}

// TableName overrides the table name
func (AdRequest) TableName() string {
	return "ad_request"
}

// AdRequestCompletion carries the terminal update of a successful run.
type AdRequestCompletion struct {
	SelectedLength string
	GenerationMS   int64
	CostEstimate   float64
	RetrievalMeta  datatypes.JSON
}

// table columns map
type AdRequestColumns struct {
	UID          string
	TenantUID    string
	Status       string
	ErrorMessage string
	CreateTime   string
	UpdateTime   string
}

var AdRequestColumn = AdRequestColumns{
	UID:          "uid",
	TenantUID:    "tenant_uid",
	Status:       "status",
	ErrorMessage: "error_message",
	CreateTime:   "create_time",
	UpdateTime:   "update_time",
}

// CreateAdRequest inserts a new ad request row.
func (r *repository) CreateAdRequest(ctx context.Context, req AdRequest) (*AdRequest, error) {
	if req.Status == "" {
		req.Status = string(constant.RequestStatusPending)
	}
	if err := r.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, fmt.Errorf("creating ad request: %w", err)
	}
	return &req, nil
}

// GetAdRequest fetches one ad request by UID.
func (r *repository) GetAdRequest(ctx context.Context, uid types.RequestUIDType) (*AdRequest, error) {
	var req AdRequest
	where := fmt.Sprintf("%s = ?", AdRequestColumn.UID)
	if err := r.db.WithContext(ctx).Where(where, uid).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ad request %s: %w", uid.String(), errorsx.ErrNotFound)
		}
		return nil, fmt.Errorf("getting ad request: %w", err)
	}
	return &req, nil
}

// ListAdRequestsByTenant returns a tenant's requests, newest first, paged by
// creation time.
func (r *repository) ListAdRequestsByTenant(ctx context.Context, tenantUID types.TenantUIDType, limit int, before *time.Time) ([]AdRequest, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	q := r.db.WithContext(ctx).
		Where(fmt.Sprintf("%s = ?", AdRequestColumn.TenantUID), tenantUID).
		Order(fmt.Sprintf("%s DESC", AdRequestColumn.CreateTime)).
		Limit(limit)
	if before != nil {
		q = q.Where(fmt.Sprintf("%s < ?", AdRequestColumn.CreateTime), *before)
	}

	var reqs []AdRequest
	if err := q.Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("listing ad requests: %w", err)
	}
	return reqs, nil
}

// UpdateAdRequestStatus persists a status transition. Each transition is
// written before the next pipeline phase starts so a crash mid-pipeline
// leaves an inspectable partial state.
func (r *repository) UpdateAdRequestStatus(ctx context.Context, uid types.RequestUIDType, status constant.RequestStatus) error {
	result := r.db.WithContext(ctx).Model(&AdRequest{}).
		Where(fmt.Sprintf("%s = ?", AdRequestColumn.UID), uid).
		Update(AdRequestColumn.Status, string(status))
	if result.Error != nil {
		return fmt.Errorf("updating ad request status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("ad request %s: %w", uid.String(), errorsx.ErrNotFound)
	}
	return nil
}

// MarkAdRequestFailed sets the terminal failed status with a structured
// error message.
func (r *repository) MarkAdRequestFailed(ctx context.Context, uid types.RequestUIDType, errMsg string) error {
	result := r.db.WithContext(ctx).Model(&AdRequest{}).
		Where(fmt.Sprintf("%s = ?", AdRequestColumn.UID), uid).
		Updates(map[string]any{
			AdRequestColumn.Status:       string(constant.RequestStatusFailed),
			AdRequestColumn.ErrorMessage: errMsg,
		})
	if result.Error != nil {
		return fmt.Errorf("marking ad request failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("ad request %s: %w", uid.String(), errorsx.ErrNotFound)
	}
	return nil
}

// CompleteAdRequest sets the terminal generated status together with the
// run's bookkeeping fields.
func (r *repository) CompleteAdRequest(ctx context.Context, uid types.RequestUIDType, update AdRequestCompletion) error {
	result := r.db.WithContext(ctx).Model(&AdRequest{}).
		Where(fmt.Sprintf("%s = ?", AdRequestColumn.UID), uid).
		Updates(map[string]any{
			AdRequestColumn.Status: string(constant.RequestStatusGenerated),
			"selected_length":      update.SelectedLength,
			"generation_ms":        update.GenerationMS,
			"cost_estimate":        update.CostEstimate,
			"retrieval_meta":       update.RetrievalMeta,
		})
	if result.Error != nil {
		return fmt.Errorf("completing ad request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("ad request %s: %w", uid.String(), errorsx.ErrNotFound)
	}
	return nil
}
