// Package intent classifies free-text spending questions into resolved
// query intents.
package intent

import (
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/timeframe"
	"github.com/Veraticus/paper-trail/internal/vendor"
)

// categoryKeywords maps recognized spending-category keywords to the
// canonical category name used in stored receipts.
var categoryKeywords = map[string]string{
	"coffee":        "coffee",
	"food":          "food",
	"dining":        "food",
	"restaurant":    "food",
	"restaurants":   "food",
	"groceries":     "groceries",
	"grocery":       "groceries",
	"gas":           "gas",
	"fuel":          "gas",
	"entertainment": "entertainment",
	"travel":        "travel",
	"shopping":      "shopping",
	"bills":         "bills",
	"utilities":     "utilities",
	"health":        "health",
	"pharmacy":      "health",
}

var superlativeKeywords = map[string]struct{}{
	"biggest": {},
	"top":     {},
	"largest": {},
	"most":    {},
}

var anomalyKeywords = map[string]struct{}{
	"unusual":    {},
	"anomaly":    {},
	"anomalies":  {},
	"outlier":    {},
	"outliers":   {},
	"suspicious": {},
}

// stopwords are tokens never considered merchant-name candidates when
// scanning "at/from <name>" phrasing.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "my": {}, "i": {}, "did": {}, "do": {},
	"how": {}, "much": {}, "what": {}, "whats": {}, "spend": {}, "spent": {},
	"spending": {}, "on": {}, "in": {}, "this": {}, "last": {}, "week": {},
	"month": {}, "months": {}, "year": {}, "money": {}, "have": {}, "was": {},
}

// Classifier resolves raw query text into a structured intent. The now
// function anchors timeframe resolution and is injectable for tests.
type Classifier struct {
	now func() time.Time
}

// New creates a classifier anchored at the given clock. A nil clock
// uses time.Now.
func New(now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{now: now}
}

// Classify maps free text to a resolved intent. Keyword classes are
// checked in a fixed precedence order so classification is auditable:
// vendor signal, then category, then anomaly, then superlative, then a
// bare time phrase, and finally the default of total spend over the
// default window. Identical input always yields an identical intent
// for a fixed clock.
func (c *Classifier) Classify(rawText string) model.ResolvedIntent {
	now := c.now()
	text := strings.ToLower(strings.TrimSpace(rawText))
	phrase := timeframe.Extract(text)
	window := timeframe.Resolve(phrase, now)

	if name := extractVendor(text); name != "" {
		return model.ResolvedIntent{
			Kind:      model.IntentVendorSpend,
			Vendor:    vendor.Normalize(name).Canonical,
			Timeframe: window,
		}
	}

	tokens := tokenize(text)

	for _, tok := range tokens {
		if category, ok := categoryKeywords[tok]; ok {
			return model.ResolvedIntent{
				Kind:      model.IntentCategorySpend,
				Category:  category,
				Timeframe: window,
			}
		}
	}

	for _, tok := range tokens {
		if _, ok := anomalyKeywords[tok]; ok {
			return model.ResolvedIntent{
				Kind:      model.IntentAnomaly,
				Timeframe: window,
			}
		}
	}

	for i, tok := range tokens {
		if _, ok := superlativeKeywords[tok]; ok {
			return model.ResolvedIntent{
				Kind:      model.IntentTopMerchants,
				Timeframe: window,
				TopN:      extractTopN(tokens[i+1:]),
			}
		}
	}

	// A bare time phrase, or nothing recognizable at all, is a total
	// spend question over the resolved (possibly default) window.
	return model.ResolvedIntent{
		Kind:      model.IntentTimeSpend,
		Timeframe: window,
	}
}

// extractVendor looks for a merchant name in the text: first any name
// from the known-vendor table, then the phrase following "at" or
// "from" with stopwords and time phrases filtered out.
func extractVendor(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '?', '!', '.', ',', ';', ':':
			return -1
		}
		return r
	}, text)

	for _, spelled := range vendor.KnownSpellings() {
		if strings.Contains(cleaned, spelled) {
			return spelled
		}
	}

	tokens := strings.Fields(cleaned)
	for i, tok := range tokens {
		if tok != "at" && tok != "from" {
			continue
		}
		name := collectName(tokens[i+1:])
		if name != "" {
			return name
		}
	}
	return ""
}

// collectName gathers consecutive candidate tokens after an "at"/"from"
// marker, stopping at stopwords or time vocabulary.
func collectName(tokens []string) string {
	var parts []string
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			break
		}
		if timeframe.ContainsPhrase(tok) {
			break
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, " ")
}

// extractTopN reads a count immediately following a superlative keyword
// ("top 3 merchants"), falling back to the default when absent.
func extractTopN(tokens []string) int {
	if len(tokens) > 0 {
		if n, err := strconv.Atoi(tokens[0]); err == nil && n > 0 {
			return n
		}
	}
	return model.DefaultTopN
}

func tokenize(text string) []string {
	return strings.Fields(strings.Map(func(r rune) rune {
		switch r {
		case '?', '!', '.', ',', ';', ':', '\'':
			return -1
		}
		return r
	}, text))
}
