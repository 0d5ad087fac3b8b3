package ai

// Tier names accepted by RecommendModel.
const (
	TierCheap       = "cheap"
	TierBalanced    = "balanced"
	TierHighContext = "high-context"
)

var tierModels = map[string]map[string]string{
	ProviderGemini: {
		TierCheap:       "gemini-1.5-flash",
		TierBalanced:    "gemini-2.0-flash",
		TierHighContext: "gemini-1.5-pro",
	},
	ProviderOpenRouter: {
		TierCheap:       "google/gemini-flash-1.5",
		TierBalanced:    "openai/gpt-4o-mini",
		TierHighContext: "anthropic/claude-3.5-sonnet",
	},
}

// RecommendModel returns the model for a tier on a provider.
// Provider aliases are normalized; an empty provider means gemini.
func RecommendModel(provider, tier string) (string, bool) {
	byTier, ok := tierModels[NormalizeProvider(provider)]
	if !ok {
		return "", false
	}
	name, ok := byTier[tier]
	return name, ok
}
