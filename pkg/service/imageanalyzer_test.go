package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
)

type fakeAnalysisCache struct {
	entries map[string]*repository.ImageAnalysisResult
	getErr  error
	setErr  error
	sets    int
}

func newFakeAnalysisCache() *fakeAnalysisCache {
	return &fakeAnalysisCache{entries: map[string]*repository.ImageAnalysisResult{}}
}

func (f *fakeAnalysisCache) GetImageAnalysis(ctx context.Context, imageRef string) (*repository.ImageAnalysisResult, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[imageRef], nil
}

func (f *fakeAnalysisCache) SetImageAnalysis(ctx context.Context, imageRef string, result *repository.ImageAnalysisResult, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.entries[imageRef] = result
	return nil
}

func (f *fakeAnalysisCache) DeleteImageAnalysis(ctx context.Context, imageRef string) error {
	delete(f.entries, imageRef)
	return nil
}

const visionResponse = `{
	"category": "electronics",
	"subcategory": "alarm clock",
	"tags": ["bedside", "minimalist"],
	"colors": ["white", "sand"],
	"mood": ["calm"],
	"scene_context": ["bedroom"],
	"detected_text": "",
	"object_count": 1,
	"quality_score": 0.85,
	"keywords": ["smart alarm", "sleep"]
}`

func TestImageAnalyzer_CacheMissThenHit(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	cache := newFakeAnalysisCache()
	visionCalls := 0
	provider := &fakeProvider{
		analyzeFn: func(ctx context.Context, params ai.VisionParams) (*ai.ChatResult, error) {
			visionCalls++
			return &ai.ChatResult{Content: visionResponse}, nil
		},
	}
	analyzer := NewImageAnalyzer(cache, provider, "fake-vision", time.Hour)

	result, fromCache, err := analyzer.Analyze(ctx, "https://cdn.example.com/clock.jpg")
	c.Assert(err, qt.IsNil)
	c.Check(fromCache, qt.IsFalse)
	c.Check(result.Category, qt.Equals, "electronics")
	c.Check(visionCalls, qt.Equals, 1)
	c.Check(cache.sets, qt.Equals, 1)

	// Second call for the same reference is served from cache.
	result, fromCache, err = analyzer.Analyze(ctx, "https://cdn.example.com/clock.jpg")
	c.Assert(err, qt.IsNil)
	c.Check(fromCache, qt.IsTrue)
	c.Check(result.Category, qt.Equals, "electronics")
	c.Check(visionCalls, qt.Equals, 1)
}

func TestImageAnalyzer_CacheReadFailureFallsThrough(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	cache := newFakeAnalysisCache()
	cache.getErr = fmt.Errorf("redis connection refused")
	provider := &fakeProvider{
		analyzeFn: func(ctx context.Context, params ai.VisionParams) (*ai.ChatResult, error) {
			return &ai.ChatResult{Content: visionResponse}, nil
		},
	}
	analyzer := NewImageAnalyzer(cache, provider, "fake-vision", time.Hour)

	result, fromCache, err := analyzer.Analyze(ctx, "ref")
	c.Assert(err, qt.IsNil)
	c.Check(fromCache, qt.IsFalse)
	c.Check(result, qt.IsNotNil)
}

func TestImageAnalyzer_CacheWriteFailureIsNonFatal(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	cache := newFakeAnalysisCache()
	cache.setErr = fmt.Errorf("redis OOM")
	provider := &fakeProvider{
		analyzeFn: func(ctx context.Context, params ai.VisionParams) (*ai.ChatResult, error) {
			return &ai.ChatResult{Content: visionResponse}, nil
		},
	}
	analyzer := NewImageAnalyzer(cache, provider, "fake-vision", time.Hour)

	_, _, err := analyzer.Analyze(ctx, "ref")
	c.Assert(err, qt.IsNil)
}

func TestImageAnalyzer_InvalidResponses(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "a lovely picture of a clock"},
		{name: "empty category", content: `{"category": "", "tags": ["x"], "object_count": 1, "quality_score": 0.5}`},
		{name: "quality out of range", content: `{"category": "electronics", "tags": ["x"], "object_count": 1, "quality_score": 1.2}`},
		{name: "negative object count", content: `{"category": "electronics", "tags": ["x"], "object_count": -1, "quality_score": 0.5}`},
		{name: "no tags or keywords", content: `{"category": "electronics", "object_count": 1, "quality_score": 0.5}`},
	}

	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			cache := newFakeAnalysisCache()
			provider := &fakeProvider{
				analyzeFn: func(ctx context.Context, params ai.VisionParams) (*ai.ChatResult, error) {
					return &ai.ChatResult{Content: tc.content}, nil
				},
			}
			analyzer := NewImageAnalyzer(cache, provider, "fake-vision", time.Hour)

			_, _, err := analyzer.Analyze(ctx, "ref")
			c.Check(err, qt.IsNotNil)
			c.Check(cache.sets, qt.Equals, 0)
		})
	}
}

func TestSearchTerms(t *testing.T) {
	c := qt.New(t)

	c.Check(SearchTerms(nil), qt.IsNil)
	c.Check(SearchTerms(&repository.ImageAnalysisResult{
		Category:    "electronics",
		Subcategory: "alarm clock",
		Keywords:    []string{"smart alarm"},
		Mood:        []string{"calm"},
	}), qt.DeepEquals, []string{"electronics", "alarm clock", "smart alarm", "calm"})
}
