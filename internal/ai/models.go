package ai

import (
	"encoding/json"
	"os"
)

// Model metadata and simple pricing helpers for dry-run estimates.
// Prices are illustrative and should be verified against provider docs.

type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var builtinModels = map[string]ModelInfo{
	"gemini-1.5-flash": {
		Name:          "gemini-1.5-flash",
		Provider:      ProviderGemini,
		ContextTokens: 1000000,
		InputPerK:     0.000075,
		OutputPerK:    0.0003,
	},
	"gemini-1.5-pro": {
		Name:          "gemini-1.5-pro",
		Provider:      ProviderGemini,
		ContextTokens: 2000000,
		InputPerK:     0.00125,
		OutputPerK:    0.005,
	},
	"gemini-2.0-flash": {
		Name:          "gemini-2.0-flash",
		Provider:      ProviderGemini,
		ContextTokens: 1000000,
		InputPerK:     0.0001,
		OutputPerK:    0.0004,
	},
	"google/gemini-flash-1.5": {
		Name:          "google/gemini-flash-1.5",
		Provider:      ProviderOpenRouter,
		ContextTokens: 1000000,
		InputPerK:     0.000075,
		OutputPerK:    0.0003,
	},
	"openai/gpt-4o-mini": {
		Name:          "openai/gpt-4o-mini",
		Provider:      ProviderOpenRouter,
		ContextTokens: 128000,
		InputPerK:     0.00015,
		OutputPerK:    0.0006,
	},
	"anthropic/claude-3.5-sonnet": {
		Name:          "anthropic/claude-3.5-sonnet",
		Provider:      ProviderOpenRouter,
		ContextTokens: 200000,
		InputPerK:     0.003,
		OutputPerK:    0.015,
	},
}

var models = cloneCatalog(builtinModels)

func cloneCatalog(m map[string]ModelInfo) map[string]ModelInfo {
	out := make(map[string]ModelInfo, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ResetCatalog restores the built-in catalog.
func ResetCatalog() { models = cloneCatalog(builtinModels) }

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
// Example entry:
// { "gemini-1.5-flash": {"Name":"gemini-1.5-flash","Provider":"gemini","ContextTokens":1000000,"InputPerK":0.000075,"OutputPerK":0.0003} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		models[k] = v
	}
}

// OverrideCatalog replaces the in-memory catalog.
func OverrideCatalog(m map[string]ModelInfo) { models = cloneCatalog(m) }

// Catalog returns a shallow copy of the current model catalog.
func Catalog() map[string]ModelInfo { return cloneCatalog(models) }
