// Package compose renders typed aggregation results as user-facing
// sentences.
package compose

import (
	"fmt"
	"strings"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Fixed sentences for the error taxonomy. These are the only responses
// a caller sees for invalid or failed queries.
const (
	// InvalidInputMessage is returned for empty or unreadable query text.
	InvalidInputMessage = "I didn't catch that. Try asking something like \"how much did I spend on coffee last month?\""

	// DataUnavailableMessage is returned when the receipt store could
	// not be reached.
	DataUnavailableMessage = "I couldn't retrieve your spending data right now. Please try again in a moment."
)

// Compose renders a result as a deterministic sentence. The same
// (intent, result) pair always produces the same text; zero and
// non-zero totals share one template.
func Compose(intent model.ResolvedIntent, result model.AggregateResult) string {
	timeframe := describeTimeframe(intent.Timeframe)

	switch intent.Kind {
	case model.IntentVendorSpend:
		return fmt.Sprintf("You spent %s at %s %s.",
			formatAmount(result.Total), intent.Vendor, timeframe)

	case model.IntentCategorySpend:
		return fmt.Sprintf("You spent %s on %s %s.",
			formatAmount(result.Total), intent.Category, timeframe)

	case model.IntentTimeSpend:
		return fmt.Sprintf("You spent %s %s.",
			formatAmount(result.Total), timeframe)

	case model.IntentTopMerchants:
		if len(result.Merchants) == 0 {
			return fmt.Sprintf("No purchases found %s.", timeframe)
		}
		parts := make([]string, 0, len(result.Merchants))
		for i, m := range result.Merchants {
			parts = append(parts, fmt.Sprintf("%d. %s (%s)",
				i+1, m.Merchant, formatAmount(m.Total)))
		}
		return fmt.Sprintf("Your top merchants %s: %s.",
			timeframe, strings.Join(parts, ", "))

	case model.IntentAnomaly:
		if len(result.Outliers) == 0 {
			return fmt.Sprintf("No unusual purchases found %s.", timeframe)
		}
		parts := make([]string, 0, len(result.Outliers))
		for _, o := range result.Outliers {
			parts = append(parts, fmt.Sprintf("%s at %s on %s",
				formatAmount(o.Total), o.Merchant, o.PurchaseDate.Format("Jan 2")))
		}
		return fmt.Sprintf("Found %d unusual purchase(s) %s: %s.",
			len(result.Outliers), timeframe, strings.Join(parts, ", "))

	default:
		return InvalidInputMessage
	}
}

// formatAmount renders a dollar amount with a fixed two-decimal format.
func formatAmount(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// describeTimeframe renders a date range for inclusion in a sentence.
func describeTimeframe(r model.TimeRange) string {
	const layout = "Jan 2, 2006"
	return fmt.Sprintf("between %s and %s",
		r.Start.Format(layout), r.End.Format(layout))
}
