package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ImageAnalysisResult is the vision model's classification of a product
// image. Cached by exact image reference; a cache hit short-circuits the
// vision call entirely.
type ImageAnalysisResult struct {
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory,omitempty"`
	Tags         []string `json:"tags"`
	Colors       []string `json:"colors,omitempty"`
	Mood         []string `json:"mood,omitempty"`
	SceneContext []string `json:"scene_context,omitempty"`
	DetectedText string   `json:"detected_text,omitempty"`
	ObjectCount  int      `json:"object_count"`
	QualityScore float64  `json:"quality_score"`
	Keywords     []string `json:"keywords"`
}

// ImageAnalysisCache interface defines operations for cached image analyses.
type ImageAnalysisCache interface {
	// GetImageAnalysis retrieves a cached analysis for an image reference.
	// Returns nil if not cached or expired.
	GetImageAnalysis(ctx context.Context, imageRef string) (*ImageAnalysisResult, error)

	// SetImageAnalysis stores an analysis with TTL.
	SetImageAnalysis(ctx context.Context, imageRef string, result *ImageAnalysisResult, ttl time.Duration) error

	// DeleteImageAnalysis removes a cached analysis. Used for manual
	// invalidation when an image is replaced under the same reference.
	DeleteImageAnalysis(ctx context.Context, imageRef string) error
}

// imageAnalysisCache implements ImageAnalysisCache using Redis
type imageAnalysisCache struct {
	redisClient *redis.Client
}

// NewImageAnalysisCache implements ImageAnalysisCache using Redis
func NewImageAnalysisCache(redisClient *redis.Client) ImageAnalysisCache {
	return &imageAnalysisCache{
		redisClient: redisClient,
	}
}

// ImageAnalysisKey generates a deterministic Redis key for an image
// reference. Format: adgen:image-analysis:{hash}
//
// The "adgen:" prefix ensures proper namespacing in shared Redis instances.
// Hashing keeps arbitrarily long image URLs within Redis key-size norms while
// preserving exact-reference identity.
func ImageAnalysisKey(imageRef string) string {
	hash := sha256.Sum256([]byte(imageRef))
	return fmt.Sprintf("adgen:image-analysis:%s", hex.EncodeToString(hash[:]))
}

// GetImageAnalysis retrieves a cached analysis for an image reference.
func (r *imageAnalysisCache) GetImageAnalysis(ctx context.Context, imageRef string) (*ImageAnalysisResult, error) {
	key := ImageAnalysisKey(imageRef)

	data, err := r.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		// Not cached or expired (Redis automatically removed it)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image analysis from Redis: %w", err)
	}

	var result ImageAnalysisResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal image analysis: %w", err)
	}

	return &result, nil
}

// SetImageAnalysis stores an analysis with TTL.
func (r *imageAnalysisCache) SetImageAnalysis(ctx context.Context, imageRef string, result *ImageAnalysisResult, ttl time.Duration) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("TTL must be positive, got: %v", ttl)
	}

	key := ImageAnalysisKey(imageRef)

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal image analysis: %w", err)
	}

	if err := r.redisClient.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store image analysis in Redis: %w", err)
	}

	return nil
}

// DeleteImageAnalysis removes a cached analysis.
func (r *imageAnalysisCache) DeleteImageAnalysis(ctx context.Context, imageRef string) error {
	key := ImageAnalysisKey(imageRef)

	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete image analysis from Redis: %w", err)
	}

	return nil
}
