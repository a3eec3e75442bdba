package model

import "time"

// MerchantTotal is one row of a merchant spending breakdown.
type MerchantTotal struct {
	Merchant string  `json:"merchant"`
	Total    float64 `json:"total"`
}

// Outlier is a flagged unusually large purchase.
type Outlier struct {
	PurchaseDate time.Time `json:"purchaseDate"`
	Merchant     string    `json:"merchant"`
	Total        float64   `json:"total"`
}

// AggregateResult holds the typed output of one executed query,
// discriminated by Kind. Err carries a failure marker on error paths;
// failed results are returned to the caller but never cached.
type AggregateResult struct {
	Kind      IntentKind      `json:"kind"`
	Err       string          `json:"error,omitempty"`
	Merchants []MerchantTotal `json:"merchants,omitempty"`
	Outliers  []Outlier       `json:"outliers,omitempty"`
	Total     float64         `json:"total"`
}

// Failed reports whether this result carries an error marker.
func (r AggregateResult) Failed() bool {
	return r.Err != ""
}

// SizeEstimate approximates the in-memory footprint of the result in
// bytes, used by the cache to enforce its memory budget.
func (r AggregateResult) SizeEstimate() int {
	size := 64 + len(r.Kind) + len(r.Err)
	for _, m := range r.Merchants {
		size += 24 + len(m.Merchant)
	}
	for _, o := range r.Outliers {
		size += 48 + len(o.Merchant)
	}
	return size
}
