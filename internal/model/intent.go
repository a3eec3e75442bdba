package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// IntentKind identifies which structured aggregation a query resolves to.
type IntentKind string

const (
	// IntentVendorSpend sums spending at a single merchant.
	IntentVendorSpend IntentKind = "VENDOR_SPEND"
	// IntentCategorySpend sums spending in a single category.
	IntentCategorySpend IntentKind = "CATEGORY_SPEND"
	// IntentTimeSpend sums all spending in a time window.
	IntentTimeSpend IntentKind = "TIME_SPEND"
	// IntentTopMerchants ranks merchants by total spend in a time window.
	IntentTopMerchants IntentKind = "TOP_MERCHANTS"
	// IntentAnomaly flags unusually large purchases in a time window.
	IntentAnomaly IntentKind = "ANOMALY"
)

// DefaultTopN is the number of merchants returned when a top-merchants
// query does not specify a count.
const DefaultTopN = 5

// TimeRange is a closed-inclusive [Start, End] date interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange constructs a range, swapping the endpoints if they arrive
// out of order so Start <= End always holds.
func NewTimeRange(start, end time.Time) TimeRange {
	if end.Before(start) {
		start, end = end, start
	}
	return TimeRange{Start: start, End: end}
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ResolvedIntent is the output of classification: the query kind plus the
// extracted slot values needed to execute it. Exactly one of Vendor or
// Category is set for the vendor/category kinds; both are empty otherwise.
type ResolvedIntent struct {
	Timeframe TimeRange
	Kind      IntentKind
	Vendor    string
	Category  string
	TopN      int
}

// Fingerprint derives the cache key for this intent on behalf of a user.
// It is a pure function of the resolved parameters, never of the surface
// wording, so paraphrased queries share a cache entry.
func (ri ResolvedIntent) Fingerprint(userID string) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d",
		userID,
		ri.Kind,
		ri.Vendor,
		ri.Category,
		ri.Timeframe.Start.Format("2006-01-02"),
		ri.Timeframe.End.Format("2006-01-02"),
		ri.TopN)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
