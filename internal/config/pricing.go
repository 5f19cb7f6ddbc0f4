package config

import (
	"strings"

	"github.com/okvist/sessync/internal/model"
)

// ModelPricing holds per-million-token prices for a model.
type ModelPricing struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheWritePerMTok float64
	CacheReadPerMTok  float64
}

// DefaultPricing maps model base names to their pricing. Sessions in the
// archive can reference any provider, so the table covers the model
// families commonly seen there, not just one vendor.
var DefaultPricing = map[string]ModelPricing{
	"claude-opus-4-5": {
		InputPerMTok: 5.00, OutputPerMTok: 25.00,
		CacheWritePerMTok: 6.25, CacheReadPerMTok: 0.50,
	},
	"claude-opus-4-1": {
		InputPerMTok: 15.00, OutputPerMTok: 75.00,
		CacheWritePerMTok: 18.75, CacheReadPerMTok: 1.50,
	},
	"claude-opus-4": {
		InputPerMTok: 15.00, OutputPerMTok: 75.00,
		CacheWritePerMTok: 18.75, CacheReadPerMTok: 1.50,
	},
	"claude-sonnet-4-5": {
		InputPerMTok: 3.00, OutputPerMTok: 15.00,
		CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30,
	},
	"claude-sonnet-4": {
		InputPerMTok: 3.00, OutputPerMTok: 15.00,
		CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30,
	},
	"claude-haiku-4-5": {
		InputPerMTok: 1.00, OutputPerMTok: 5.00,
		CacheWritePerMTok: 1.25, CacheReadPerMTok: 0.10,
	},
	"claude-3-5-haiku": {
		InputPerMTok: 0.80, OutputPerMTok: 4.00,
		CacheWritePerMTok: 1.00, CacheReadPerMTok: 0.08,
	},
	"gpt-5": {
		InputPerMTok: 1.25, OutputPerMTok: 10.00,
		CacheReadPerMTok: 0.125,
	},
	"gpt-5-mini": {
		InputPerMTok: 0.25, OutputPerMTok: 2.00,
		CacheReadPerMTok: 0.025,
	},
	"gpt-4o": {
		InputPerMTok: 2.50, OutputPerMTok: 10.00,
		CacheReadPerMTok: 1.25,
	},
	"gpt-4o-mini": {
		InputPerMTok: 0.15, OutputPerMTok: 0.60,
		CacheReadPerMTok: 0.075,
	},
	"gpt-4.1": {
		InputPerMTok: 2.00, OutputPerMTok: 8.00,
		CacheReadPerMTok: 0.50,
	},
	"gemini-2.5-pro": {
		InputPerMTok: 1.25, OutputPerMTok: 10.00,
		CacheReadPerMTok: 0.31,
	},
	"gemini-2.5-flash": {
		InputPerMTok: 0.30, OutputPerMTok: 2.50,
		CacheReadPerMTok: 0.075,
	},
}

// overridePricing holds user-supplied pricing merged from the config file.
var overridePricing = map[string]ModelPricing{}

// ApplyOverrides merges user-defined pricing over the built-in table.
// Fields left unset in an override fall back to the built-in entry.
func ApplyOverrides(overrides map[string]ModelPricingOverride) {
	for name, o := range overrides {
		base := DefaultPricing[name]
		if o.InputPerMTok != nil {
			base.InputPerMTok = *o.InputPerMTok
		}
		if o.OutputPerMTok != nil {
			base.OutputPerMTok = *o.OutputPerMTok
		}
		if o.CacheWritePerMTok != nil {
			base.CacheWritePerMTok = *o.CacheWritePerMTok
		}
		if o.CacheReadPerMTok != nil {
			base.CacheReadPerMTok = *o.CacheReadPerMTok
		}
		overridePricing[name] = base
	}
}

func hasPricingModel(name string) bool {
	if _, ok := overridePricing[name]; ok {
		return true
	}
	_, ok := DefaultPricing[name]
	return ok
}

func pricingFor(name string) (ModelPricing, bool) {
	if p, ok := overridePricing[name]; ok {
		return p, true
	}
	p, ok := DefaultPricing[name]
	return p, ok
}

// NormalizeModelName resolves a raw model identifier to a pricing table key.
// Resolution order: exact hit, date-suffix strip, provider-prefix strip,
// then the longest table key contained in the raw name.
// e.g., "claude-sonnet-4-20250514" -> "claude-sonnet-4"
//
//	"anthropic/claude-opus-4-1" -> "claude-opus-4-1"
func NormalizeModelName(raw string) string {
	raw = strings.TrimSpace(raw)
	if hasPricingModel(raw) {
		return raw
	}

	// Strip last segment if it looks like a date (8+ digits)
	parts := strings.Split(raw, "-")
	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		if isAllDigits(last) && len(last) >= 8 {
			candidate := strings.Join(parts[:len(parts)-1], "-")
			if hasPricingModel(candidate) {
				return candidate
			}
		}
	}

	// Strip a provider prefix like "anthropic/" and try again
	if idx := strings.LastIndexByte(raw, '/'); idx >= 0 {
		candidate := NormalizeModelName(raw[idx+1:])
		if hasPricingModel(candidate) {
			return candidate
		}
	}

	// Fuzzy pass: the longest table key contained in the raw name
	lowered := strings.ToLower(raw)
	best := ""
	for name := range DefaultPricing {
		if strings.Contains(lowered, name) && len(name) > len(best) {
			best = name
		}
	}
	for name := range overridePricing {
		if strings.Contains(lowered, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return best
	}

	return raw
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// LookupPricing returns the pricing for a model, normalizing the name first.
// Returns zero pricing and false if the model is unknown.
func LookupPricing(name string) (ModelPricing, bool) {
	return pricingFor(NormalizeModelName(name))
}

// CalculateCost computes the estimated cost in USD for the given token usage.
// Unknown models cost zero; callers fall back to raw archive cost fields.
func CalculateCost(name string, usage model.TokenUsage) float64 {
	pricing, ok := LookupPricing(name)
	if !ok {
		return 0
	}

	cost := float64(usage.Input) * pricing.InputPerMTok / 1_000_000
	cost += float64(usage.Output) * pricing.OutputPerMTok / 1_000_000
	cost += float64(usage.CacheWrite) * pricing.CacheWritePerMTok / 1_000_000
	cost += float64(usage.CacheRead) * pricing.CacheReadPerMTok / 1_000_000

	return cost
}
