package service

import (
	"context"
	"time"

	"github.com/adforge-ai/adgen-backend/pkg/constant"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// GenerateAdsParam is the inbound generation request payload, produced by the
// API boundary and consumed by the orchestrator.
type GenerateAdsParam struct {
	TenantUID  types.TenantUIDType
	UserUID    *types.UserUIDType
	ProductUID *types.ProductUIDType

	Platform    constant.Platform
	Goal        constant.Goal
	Format      string
	Category    string
	Description string

	ImageRef           string
	BrandVoiceOverride string
	TargetAudience     string
	BudgetRange        string

	Length LengthSignals
}

// GenerateAdsResult is the outbound result: the persisted request id, the
// three ranked variants, the total generation time and the accumulated
// AI-cost estimate.
type GenerateAdsResult struct {
	RequestUID   types.RequestUIDType
	Variants     []repository.AdVariant
	GenerationMS int64
	CostEstimate float64
}

// UnitCosts is the additive AI-cost model: a fixed unit cost per external
// model call.
type UnitCosts struct {
	Vision    float64
	Embedding float64
	Creative  float64
	Analyst   float64
}

// OrchestratorConfig tunes the request-path pipeline.
type OrchestratorConfig struct {
	// CallTimeout bounds every external call in the request path. A timeout
	// is treated identically to a call failure for that phase's fatality
	// rules.
	CallTimeout time.Duration
	Costs       UnitCosts
}

// Service defines the ad-generation domain use cases.
type Service interface {
	// GenerateAds runs the full pipeline for one request and returns the
	// ranked variants. Callers always receive either a generated result with
	// exactly three ranked variants or an error with no variants persisted.
	GenerateAds(ctx context.Context, param GenerateAdsParam) (*GenerateAdsResult, error)

	// GetAdRequest fetches a persisted request and its ranked variants.
	GetAdRequest(ctx context.Context, uid types.RequestUIDType) (*repository.AdRequest, []repository.AdVariant, error)

	// ListAdRequests pages a tenant's requests, newest first.
	ListAdRequests(ctx context.Context, tenantUID types.TenantUIDType, limit int, before *time.Time) ([]repository.AdRequest, error)
}

type service struct {
	repository repository.Repository

	lengthSelector LengthSelectorI
	imageAnalyzer  ImageAnalyzerI
	researcher     ResearcherI
	generator      CreativeGeneratorI
	analyst        AnalystScorerI

	config OrchestratorConfig
}

// NewService wires the pipeline phases into the Service entry point. All
// sub-components are constructed once at process start and passed in, so
// tests can substitute fakes behind the phase interfaces.
func NewService(
	repo repository.Repository,
	lengthSelector LengthSelectorI,
	imageAnalyzer ImageAnalyzerI,
	researcher ResearcherI,
	generator CreativeGeneratorI,
	analyst AnalystScorerI,
	cfg OrchestratorConfig,
) Service {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &service{
		repository:     repo,
		lengthSelector: lengthSelector,
		imageAnalyzer:  imageAnalyzer,
		researcher:     researcher,
		generator:      generator,
		analyst:        analyst,
		config:         cfg,
	}
}

// GetAdRequest fetches a persisted request and its ranked variants.
func (s *service) GetAdRequest(ctx context.Context, uid types.RequestUIDType) (*repository.AdRequest, []repository.AdVariant, error) {
	req, err := s.repository.GetAdRequest(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	variants, err := s.repository.ListAdVariantsByRequest(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	return req, variants, nil
}

// ListAdRequests pages a tenant's requests, newest first.
func (s *service) ListAdRequests(ctx context.Context, tenantUID types.TenantUIDType, limit int, before *time.Time) ([]repository.AdRequest, error) {
	return s.repository.ListAdRequestsByTenant(ctx, tenantUID, limit, before)
}
