package constant

// Platform is the advertising platform an ad request targets.
type Platform string

const (
	PlatformMeta      Platform = "meta"
	PlatformInstagram Platform = "instagram"
	PlatformGoogle    Platform = "google"
	PlatformTikTok    Platform = "tiktok"
	PlatformPinterest Platform = "pinterest"
)

// Platforms lists every supported platform.
var Platforms = []Platform{
	PlatformMeta,
	PlatformInstagram,
	PlatformGoogle,
	PlatformTikTok,
	PlatformPinterest,
}

// ValidPlatform reports whether p is a supported platform.
func ValidPlatform(p Platform) bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Goal is the campaign objective of an ad request.
type Goal string

const (
	GoalAwareness   Goal = "awareness"
	GoalEngagement  Goal = "engagement"
	GoalConversion  Goal = "conversion"
	GoalTraffic     Goal = "traffic"
	GoalAppInstalls Goal = "app_installs"
)

// Goals lists every supported campaign goal.
var Goals = []Goal{
	GoalAwareness,
	GoalEngagement,
	GoalConversion,
	GoalTraffic,
	GoalAppInstalls,
}

// ValidGoal reports whether g is a supported goal.
func ValidGoal(g Goal) bool {
	for _, known := range Goals {
		if g == known {
			return true
		}
	}
	return false
}

// AdLength is the target copy length selected for a request.
type AdLength string

const (
	AdLengthShort  AdLength = "SHORT"
	AdLengthMedium AdLength = "MEDIUM"
	AdLengthLong   AdLength = "LONG"
)

// LengthModeAuto makes the length selector pick the length from campaign
// signals instead of an explicit choice.
const LengthModeAuto = "AUTO"

// VariantType is the creative angle of a single ad variant.
type VariantType string

const (
	VariantTypeEmotional    VariantType = "emotional"
	VariantTypeBenefit      VariantType = "benefit"
	VariantTypeUGC          VariantType = "ugc"
	VariantTypeStorytelling VariantType = "storytelling"
	VariantTypeUrgency      VariantType = "urgency"
	VariantTypeSocialProof  VariantType = "social_proof"
)

// VariantTypes lists every defined creative angle.
var VariantTypes = []VariantType{
	VariantTypeEmotional,
	VariantTypeBenefit,
	VariantTypeUGC,
	VariantTypeStorytelling,
	VariantTypeUrgency,
	VariantTypeSocialProof,
}

// VariantsPerRequest is the number of ad variants every successful request
// produces. A request owns exactly 0 or VariantsPerRequest variants.
const VariantsPerRequest = 3

// RequestStatus tracks an ad request through the pipeline.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusAnalyzing  RequestStatus = "analyzing"
	RequestStatusGenerating RequestStatus = "generating"
	RequestStatusGenerated  RequestStatus = "generated"
	RequestStatusFailed     RequestStatus = "failed"
)

// PerformanceTier tags a historical ad example with its recorded performance.
type PerformanceTier string

const (
	PerformanceHigh      PerformanceTier = "high"
	PerformanceAvg       PerformanceTier = "avg"
	PerformanceLow       PerformanceTier = "low"
	PerformanceUntracked PerformanceTier = "untracked"
)

// WildcardAll marks a knowledge-item applicability filter (platform, goal or
// category) as matching everything.
const WildcardAll = "all"

// CharBudget is the character budget for one platform + length combination.
// Ideal is the soft target handed to the creative model; the Max fields are
// hard ceilings enforced at parse time.
type CharBudget struct {
	HeadlineMax    int
	PrimaryIdeal   int
	PrimaryMax     int
	DescriptionMax int
}

// charBudgets holds the per-platform, per-length character budgets used by
// creative prompting and scoring.
var charBudgets = map[Platform]map[AdLength]CharBudget{
	PlatformMeta: {
		AdLengthShort:  {HeadlineMax: 40, PrimaryIdeal: 80, PrimaryMax: 125, DescriptionMax: 30},
		AdLengthMedium: {HeadlineMax: 40, PrimaryIdeal: 125, PrimaryMax: 300, DescriptionMax: 30},
		AdLengthLong:   {HeadlineMax: 40, PrimaryIdeal: 300, PrimaryMax: 500, DescriptionMax: 30},
	},
	PlatformInstagram: {
		AdLengthShort:  {HeadlineMax: 40, PrimaryIdeal: 80, PrimaryMax: 125, DescriptionMax: 30},
		AdLengthMedium: {HeadlineMax: 40, PrimaryIdeal: 125, PrimaryMax: 300, DescriptionMax: 30},
		AdLengthLong:   {HeadlineMax: 40, PrimaryIdeal: 250, PrimaryMax: 400, DescriptionMax: 30},
	},
	PlatformGoogle: {
		AdLengthShort:  {HeadlineMax: 30, PrimaryIdeal: 60, PrimaryMax: 90, DescriptionMax: 90},
		AdLengthMedium: {HeadlineMax: 30, PrimaryIdeal: 90, PrimaryMax: 90, DescriptionMax: 90},
		AdLengthLong:   {HeadlineMax: 30, PrimaryIdeal: 90, PrimaryMax: 90, DescriptionMax: 90},
	},
	PlatformTikTok: {
		AdLengthShort:  {HeadlineMax: 40, PrimaryIdeal: 60, PrimaryMax: 100, DescriptionMax: 0},
		AdLengthMedium: {HeadlineMax: 40, PrimaryIdeal: 80, PrimaryMax: 100, DescriptionMax: 0},
		AdLengthLong:   {HeadlineMax: 40, PrimaryIdeal: 100, PrimaryMax: 100, DescriptionMax: 0},
	},
	PlatformPinterest: {
		AdLengthShort:  {HeadlineMax: 100, PrimaryIdeal: 100, PrimaryMax: 200, DescriptionMax: 50},
		AdLengthMedium: {HeadlineMax: 100, PrimaryIdeal: 150, PrimaryMax: 300, DescriptionMax: 50},
		AdLengthLong:   {HeadlineMax: 100, PrimaryIdeal: 200, PrimaryMax: 500, DescriptionMax: 50},
	},
}

// BudgetFor returns the character budget for a platform and length. Unknown
// combinations fall back to the Meta MEDIUM budget so prompting always has a
// ceiling to enforce.
func BudgetFor(p Platform, l AdLength) CharBudget {
	if byLength, ok := charBudgets[p]; ok {
		if budget, ok := byLength[l]; ok {
			return budget
		}
	}
	return charBudgets[PlatformMeta][AdLengthMedium]
}

// CTAPhrases maps each campaign goal to example call-to-action phrases. The
// creative prompt offers them as guidance and the analyst rubric scores CTA
// strength against them.
var CTAPhrases = map[Goal][]string{
	GoalAwareness:   {"Learn More", "Discover How", "See Why", "Find Out More"},
	GoalEngagement:  {"Join the Conversation", "Share Your Story", "Tag a Friend", "Tell Us Below"},
	GoalConversion:  {"Shop Now", "Buy Today", "Get Yours", "Claim Your Offer", "Order Now"},
	GoalTraffic:     {"Visit Our Site", "Explore the Collection", "Browse Now", "See the Full Range"},
	GoalAppInstalls: {"Download Now", "Get the App", "Install Free", "Start Your Trial"},
}
