package service

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/adforge-ai/adgen-backend/pkg/constant"
	"github.com/adforge-ai/adgen-backend/pkg/logger"
)

// LengthSignals are the campaign signals the AUTO mode evaluates.
type LengthSignals struct {
	// Mode is either constant.LengthModeAuto or an explicit length
	// ("SHORT"/"MEDIUM"/"LONG"). Empty means AUTO.
	Mode string

	CampaignType        string
	AudienceTemperature string
	Price               float64
	ProductComplexity   string
	HasStrongStory      bool
	PremiumBrand        bool
}

// LengthRule is one declarative selection rule. All set conditions must
// match; the first matching rule in order wins.
type LengthRule struct {
	Name                 string   `yaml:"name"`
	CampaignTypes        []string `yaml:"campaign_types,omitempty"`
	AudienceTemperatures []string `yaml:"audience_temperatures,omitempty"`
	MinPrice             *float64 `yaml:"min_price,omitempty"`
	MaxPrice             *float64 `yaml:"max_price,omitempty"`
	Complexities         []string `yaml:"complexities,omitempty"`
	RequiresStrongStory  *bool    `yaml:"requires_strong_story,omitempty"`
	RequiresPremiumBrand *bool    `yaml:"requires_premium_brand,omitempty"`
	Length               string   `yaml:"length"`
}

// LengthSelection is the selected length plus the platform-specific
// character budget used by downstream prompting.
type LengthSelection struct {
	Length   constant.AdLength
	Budget   constant.CharBudget
	RuleName string
}

// LengthSelectorI selects the target ad length from campaign signals.
type LengthSelectorI interface {
	Select(ctx context.Context, platform constant.Platform, signals LengthSignals) LengthSelection
}

// LengthSelector is the rule-driven LengthSelectorI implementation. The rule
// set is loaded once and cached; selection is a pure function of the loaded
// rules and the input, so repeated calls with identical signals return the
// same selection.
type LengthSelector struct {
	rulesPath string

	once  sync.Once
	rules []LengthRule
}

// NewLengthSelector returns a selector backed by the built-in rule set,
// optionally overridden by a YAML rule file.
func NewLengthSelector(rulesPath string) *LengthSelector {
	return &LengthSelector{rulesPath: rulesPath}
}

// defaultLengthRules is the built-in ordered rule set used when no rule file
// is configured or the configured file fails to load.
var defaultLengthRules = []LengthRule{
	{
		Name:          "app-installs-short",
		CampaignTypes: []string{"app_installs", "app_install"},
		Length:        string(constant.AdLengthShort),
	},
	{
		Name:                 "hot-audience-short",
		AudienceTemperatures: []string{"hot"},
		Length:               string(constant.AdLengthShort),
	},
	{
		Name:          "retargeting-short",
		CampaignTypes: []string{"retargeting"},
		Length:        string(constant.AdLengthShort),
	},
	{
		Name:                 "premium-story-long",
		RequiresStrongStory:  boolPtr(true),
		RequiresPremiumBrand: boolPtr(true),
		Length:               string(constant.AdLengthLong),
	},
	{
		Name:         "complex-product-long",
		Complexities: []string{"complex"},
		Length:       string(constant.AdLengthLong),
	},
	{
		Name:     "high-price-long",
		MinPrice: floatPtr(200),
		Length:   string(constant.AdLengthLong),
	},
	{
		Name:                 "cold-audience-medium",
		AudienceTemperatures: []string{"cold"},
		Length:               string(constant.AdLengthMedium),
	},
}

// Select picks the target length and its character budget. It never fails:
// a rule-loading error is swallowed with a logged warning and the built-in
// defaults are used, and when no rule matches the result is MEDIUM.
func (s *LengthSelector) Select(ctx context.Context, platform constant.Platform, signals LengthSignals) LengthSelection {
	// Explicit mode bypasses rule evaluation entirely.
	switch constant.AdLength(signals.Mode) {
	case constant.AdLengthShort, constant.AdLengthMedium, constant.AdLengthLong:
		length := constant.AdLength(signals.Mode)
		return LengthSelection{
			Length: length,
			Budget: constant.BudgetFor(platform, length),
		}
	}

	rules := s.loadRules(ctx)

	for _, rule := range rules {
		if !rule.matches(signals) {
			continue
		}
		length := constant.AdLength(rule.Length)
		switch length {
		case constant.AdLengthShort, constant.AdLengthMedium, constant.AdLengthLong:
		default:
			// A malformed rule must not abort generation.
			continue
		}
		return LengthSelection{
			Length:   length,
			Budget:   constant.BudgetFor(platform, length),
			RuleName: rule.Name,
		}
	}

	return LengthSelection{
		Length: constant.AdLengthMedium,
		Budget: constant.BudgetFor(platform, constant.AdLengthMedium),
	}
}

func (s *LengthSelector) loadRules(ctx context.Context) []LengthRule {
	s.once.Do(func() {
		s.rules = defaultLengthRules
		if s.rulesPath == "" {
			return
		}

		log, _ := logger.GetZapLogger(ctx)
		data, err := os.ReadFile(s.rulesPath)
		if err != nil {
			log.Warn("failed to read length rules file, using defaults",
				zap.String("path", s.rulesPath), zap.Error(err))
			return
		}
		var loaded []LengthRule
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			log.Warn("failed to parse length rules file, using defaults",
				zap.String("path", s.rulesPath), zap.Error(err))
			return
		}
		if len(loaded) == 0 {
			log.Warn("length rules file is empty, using defaults",
				zap.String("path", s.rulesPath))
			return
		}
		s.rules = loaded
	})
	return s.rules
}

func (r LengthRule) matches(signals LengthSignals) bool {
	if len(r.CampaignTypes) > 0 && !containsString(r.CampaignTypes, signals.CampaignType) {
		return false
	}
	if len(r.AudienceTemperatures) > 0 && !containsString(r.AudienceTemperatures, signals.AudienceTemperature) {
		return false
	}
	if r.MinPrice != nil && signals.Price < *r.MinPrice {
		return false
	}
	if r.MaxPrice != nil && signals.Price > *r.MaxPrice {
		return false
	}
	if len(r.Complexities) > 0 && !containsString(r.Complexities, signals.ProductComplexity) {
		return false
	}
	if r.RequiresStrongStory != nil && signals.HasStrongStory != *r.RequiresStrongStory {
		return false
	}
	if r.RequiresPremiumBrand != nil && signals.PremiumBrand != *r.RequiresPremiumBrand {
		return false
	}
	return true
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
