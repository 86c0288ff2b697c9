package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"

	"github.com/adforge-ai/adgen-backend/pkg/constant"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/service"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// AdHandler exposes the ad-generation use cases over HTTP.
type AdHandler struct {
	service service.Service
}

// NewAdHandler returns the HTTP boundary around the given service.
func NewAdHandler(svc service.Service) *AdHandler {
	return &AdHandler{service: svc}
}

// CreateAdRequestPayload is the POST /v1/ad-requests body.
type CreateAdRequestPayload struct {
	TenantUID  string  `json:"tenant_uid" binding:"required,uuid"`
	UserUID    *string `json:"user_uid" binding:"omitempty,uuid"`
	ProductUID *string `json:"product_uid" binding:"omitempty,uuid"`

	Platform    string `json:"platform" binding:"required"`
	Goal        string `json:"goal" binding:"required"`
	Format      string `json:"format"`
	Category    string `json:"category"`
	Description string `json:"description" binding:"required,min=1,max=5000"`

	ImageRef           string `json:"image_ref" binding:"omitempty,max=2047"`
	BrandVoiceOverride string `json:"brand_voice_override"`
	TargetAudience     string `json:"target_audience"`
	BudgetRange        string `json:"budget_range"`

	Length lengthSignalsPayload `json:"length"`
}

type lengthSignalsPayload struct {
	Mode                string   `json:"mode"`
	CampaignType        string   `json:"campaign_type"`
	AudienceTemperature string   `json:"audience_temperature"`
	Price               float64  `json:"price"`
	ProductComplexity   string   `json:"product_complexity"`
	HasStrongStory      bool     `json:"has_strong_story"`
	PremiumBrand        bool     `json:"premium_brand"`
}

type createAdRequestResponse struct {
	RequestUID   string                 `json:"request_uid"`
	Variants     []repository.AdVariant `json:"variants"`
	GenerationMS int64                  `json:"generation_ms"`
	CostEstimate float64                `json:"cost_estimate"`
}

// CreateAdRequest runs the generation pipeline synchronously and returns the
// ranked variants.
func (h *AdHandler) CreateAdRequest(c *gin.Context) {
	var payload CreateAdRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	param, err := payload.toParam()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.GenerateAds(c.Request.Context(), param)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createAdRequestResponse{
		RequestUID:   result.RequestUID.String(),
		Variants:     result.Variants,
		GenerationMS: result.GenerationMS,
		CostEstimate: result.CostEstimate,
	})
}

// GetAdRequest returns one request and its ranked variants.
func (h *AdHandler) GetAdRequest(c *gin.Context) {
	uid, err := uuid.FromString(c.Param("uid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request uid"})
		return
	}

	req, variants, err := h.service.GetAdRequest(c.Request.Context(), uid)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": req, "variants": variants})
}

// ListAdRequests pages a tenant's requests, newest first. Paging uses the
// create_time of the last row of the previous page as the before cursor.
func (h *AdHandler) ListAdRequests(c *gin.Context) {
	tenantUID, err := uuid.FromString(c.Query("tenant_uid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_uid query parameter is required"})
		return
	}

	limit := repository.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC 3339 timestamp"})
			return
		}
		before = &t
	}

	requests, err := h.service.ListAdRequests(c.Request.Context(), tenantUID, limit, before)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (p CreateAdRequestPayload) toParam() (service.GenerateAdsParam, error) {
	tenantUID, err := uuid.FromString(p.TenantUID)
	if err != nil {
		return service.GenerateAdsParam{}, errors.New("invalid tenant_uid")
	}

	param := service.GenerateAdsParam{
		TenantUID:          tenantUID,
		Platform:           constant.Platform(p.Platform),
		Goal:               constant.Goal(p.Goal),
		Format:             p.Format,
		Category:           p.Category,
		Description:        p.Description,
		ImageRef:           p.ImageRef,
		BrandVoiceOverride: p.BrandVoiceOverride,
		TargetAudience:     p.TargetAudience,
		BudgetRange:        p.BudgetRange,
		Length: service.LengthSignals{
			Mode:                p.Length.Mode,
			CampaignType:        p.Length.CampaignType,
			AudienceTemperature: p.Length.AudienceTemperature,
			Price:               p.Length.Price,
			ProductComplexity:   p.Length.ProductComplexity,
			HasStrongStory:      p.Length.HasStrongStory,
			PremiumBrand:        p.Length.PremiumBrand,
		},
	}

	if p.UserUID != nil {
		uid, err := uuid.FromString(*p.UserUID)
		if err != nil {
			return service.GenerateAdsParam{}, errors.New("invalid user_uid")
		}
		userUID := types.UserUIDType(uid)
		param.UserUID = &userUID
	}
	if p.ProductUID != nil {
		uid, err := uuid.FromString(*p.ProductUID)
		if err != nil {
			return service.GenerateAdsParam{}, errors.New("invalid product_uid")
		}
		productUID := types.ProductUIDType(uid)
		param.ProductUID = &productUID
	}
	return param, nil
}

// abortWithError maps pipeline sentinels onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errorsx.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errorsx.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errorsx.ErrRequestCancelled):
		// Client closed request.
		c.JSON(499, gin.H{"error": err.Error()})
	case errors.Is(err, errorsx.ErrImageAnalysisFailed),
		errors.Is(err, errorsx.ErrRetrievalFailed),
		errors.Is(err, errorsx.ErrGenerationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
