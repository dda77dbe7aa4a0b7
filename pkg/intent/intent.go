// Package intent classifies raw bridge commands against a fixed table of
// trigger phrases. Anything that matches no fixed intent falls through to
// IntentFreeform and is answered by the LLM instead of a canned reply.
package intent

import "strings"

type Intent string

const (
	IntentMaxSecurity    Intent = "max_security"
	IntentResilienceMode Intent = "resilience_mode"
	IntentMarketAnalysis Intent = "market_analysis"
	IntentFreeform       Intent = "freeform"
)

// definition binds an intent to its trigger phrases and canned reply.
// Matching is substring containment on the normalized command text; the
// fixed intents are mutually exclusive by construction, so table order
// carries no semantics beyond "first match wins".
type definition struct {
	Intent   Intent
	Triggers []string
	Reply    string
}

// The deployed bridge spoke French; accentless spellings are kept as
// triggers because the userscript stripped diacritics on some devices.
var definitions = []definition{
	{
		Intent:   IntentMaxSecurity,
		Triggers: []string{"sécurité maximale", "securite maximale", "max security"},
		Reply:    "Sécurité maximale activée.",
	},
	{
		Intent:   IntentResilienceMode,
		Triggers: []string{"mode résilience", "mode resilience", "resilience mode"},
		Reply:    "Mode résilience activé.",
	},
	{
		Intent:   IntentMarketAnalysis,
		Triggers: []string{"analyse marché", "analyse marche", "market analysis"},
		Reply:    "Analyse du marché en cours.",
	},
}

// Normalize trims and case-folds a raw command for matching.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Classify maps a raw command to an intent. It is total: every input,
// including garbage, maps to some intent. Empty commands are rejected
// before dispatch ever calls this.
func Classify(raw string) Intent {
	normalized := Normalize(raw)
	for _, def := range definitions {
		for _, trigger := range def.Triggers {
			if strings.Contains(normalized, trigger) {
				return def.Intent
			}
		}
	}
	return IntentFreeform
}

// CannedReply returns the fixed reply for a fixed intent. The second
// return is false for IntentFreeform and unknown intents.
func CannedReply(in Intent) (string, bool) {
	for _, def := range definitions {
		if def.Intent == in {
			return def.Reply, true
		}
	}
	return "", false
}
