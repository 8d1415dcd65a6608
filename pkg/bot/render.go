package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shahar080/discord-travel-budget-tracker/pkg/api"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/report"
)

const (
	msgNoLocation      = "⚠️ Please set your location first using `/location <location>`."
	msgInvalidCurrency = "⚠️ Invalid currency. Use a supported currency code."
	msgRatesDown       = "⚠️ Exchange rates are currently unavailable. Please try again later."
	msgNotAllowed      = "⛔ You are not allowed to use this bot."
	msgLocationUnset   = "📍 No location set yet. Use `/location <place>` to set one."
	msgInternalError   = "❌ Something went wrong. Please try again later."
	msgInvalidPeriod   = "❌ Invalid grouping option. Use 'yyyy' or 'mm/yy', or pass a valid year (e.g., 2025) or month/year (e.g., 05/25)."
	msgInvalidFilter   = "❌ Invalid filter. Use a 4-digit year (e.g., 2025) or month/year (e.g., 05/25)."

	msgDeleteNotFound  = "❌ Expense not found or you don't have permission to delete it."
	msgDeletePending   = "⏳ A confirmation for this expense is already pending."
	msgDeleteTimedOut  = "⏰ Confirmation timed out. Deletion cancelled."
	msgDeleteCancelled = "❌ Deletion cancelled."
	msgDeleteSuccess   = "✅ Expense deleted successfully."
	msgDeleteFailed    = "❌ An error occurred while deleting the expense."
)

const timeLayout = "Jan 02, 2006 15:04"

func renderRecorded(amount float64, currencyCode, description, base string) string {
	return fmt.Sprintf("✅ Recorded: %s %s for %s (converted to %s).",
		formatAmount(amount), currencyCode, description, base)
}

func renderLocationSet(place string) string {
	return fmt.Sprintf("📍 Location set to %s!", place)
}

func renderLocationCurrent(location string) string {
	return fmt.Sprintf("📍 Current location is set to %s!", location)
}

func renderDeleteConfirm(id int64, description string) string {
	return fmt.Sprintf("Are you sure you want to delete expense ID %d (Description: %s)?", id, description)
}

func renderNoExpenses(prefix, location string) string {
	if location != "" {
		return fmt.Sprintf("%s No expenses recorded for **%s**.", prefix, location)
	}
	return fmt.Sprintf("%s No expenses recorded yet.", prefix)
}

func renderNoMatch(prefix, filter string) string {
	return fmt.Sprintf("%s No expenses match the filter '%s'.", prefix, filter)
}

func renderTotal(total float64, location, base string) string {
	if location != "" {
		return fmt.Sprintf("💰 You have spent a total of %.2f %s in %s.", total, base, location)
	}
	return fmt.Sprintf("💰 You have spent a total of %.2f %s overall.", total, base)
}

// renderTotalByPeriod renders one subtotal line per period group plus a grand
// total, for /total with a "yyyy" or "mm/yy" grouping.
func renderTotalByPeriod(grouped map[string][]api.BreakdownEntry, location, base string) string {
	var b strings.Builder
	b.WriteString(totalHeader(location))

	var grand float64
	for _, key := range sortedKeys(grouped) {
		subtotal := report.Subtotal(grouped[key])
		fmt.Fprintf(&b, "**%s:** %.2f %s\n", key, subtotal, base)
		grand += subtotal
	}
	fmt.Fprintf(&b, "\n**Grand Total:** %.2f %s", grand, base)
	return b.String()
}

// renderTotalFiltered renders per-location subtotals under the filter header,
// for /total with a specific year or month/year filter.
func renderTotalFiltered(filtered api.Breakdown, filter, location, base string) string {
	var b strings.Builder
	b.WriteString(totalHeader(location))
	fmt.Fprintf(&b, "**%s:**\n", filter)

	var grand float64
	for _, loc := range sortedKeys(filtered) {
		subtotal := report.Subtotal(filtered[loc])
		fmt.Fprintf(&b, "**%s:** %.2f %s\n", loc, subtotal, base)
		grand += subtotal
	}
	fmt.Fprintf(&b, "\n**Grand Total:** %.2f %s", grand, base)
	return b.String()
}

func renderBreakdown(breakdown api.Breakdown, location, base string) string {
	var b strings.Builder
	if location != "" {
		entries := breakdown[strings.ToLower(location)]
		fmt.Fprintf(&b, "📊 **Expense Breakdown for %s:**\n", location)
		for _, entry := range entries {
			b.WriteString(formatEntry(entry, base))
		}
		fmt.Fprintf(&b, "**Total**: %.2f %s\n", report.Subtotal(entries), base)
		return b.String()
	}

	b.WriteString("📊 **Expense Breakdown:**\n")
	for _, loc := range sortedKeys(breakdown) {
		fmt.Fprintf(&b, "**%s:**\n", loc)
		for _, entry := range breakdown[loc] {
			b.WriteString(formatEntry(entry, base))
		}
		fmt.Fprintf(&b, "**Total**: %.2f %s\n", report.Subtotal(breakdown[loc]), base)
	}
	return b.String()
}

// renderBreakdownByPeriod renders each period group, split per location when
// no location filter was given, with subtotals and a grand total.
func renderBreakdownByPeriod(grouped map[string][]api.BreakdownEntry, location, base string) string {
	var b strings.Builder
	b.WriteString(breakdownHeader(location))

	var grand float64
	for _, key := range sortedKeys(grouped) {
		fmt.Fprintf(&b, "**%s:**\n", key)
		if location == "" {
			byLocation := report.GroupByLocation(grouped[key])
			for _, loc := range sortedKeys(byLocation) {
				fmt.Fprintf(&b, "**%s:**\n", loc)
				for _, entry := range byLocation[loc] {
					b.WriteString(formatEntry(entry, base))
				}
				subtotal := report.Subtotal(byLocation[loc])
				fmt.Fprintf(&b, "**Subtotal:** %.2f %s\n\n", subtotal, base)
				grand += subtotal
			}
		} else {
			for _, entry := range grouped[key] {
				b.WriteString(formatEntry(entry, base))
			}
			subtotal := report.Subtotal(grouped[key])
			fmt.Fprintf(&b, "**Subtotal:** %.2f %s\n\n", subtotal, base)
			grand += subtotal
		}
	}
	fmt.Fprintf(&b, "**Grand Total:** %.2f %s\n", grand, base)
	return b.String()
}

func renderBreakdownFiltered(filtered api.Breakdown, filter, base string) string {
	var b strings.Builder
	b.WriteString("📊 **Expense Breakdown:**\n")
	fmt.Fprintf(&b, "**%s:**\n", filter)

	var grand float64
	for _, loc := range sortedKeys(filtered) {
		fmt.Fprintf(&b, "**%s:**\n", loc)
		for _, entry := range filtered[loc] {
			b.WriteString(formatEntry(entry, base))
		}
		subtotal := report.Subtotal(filtered[loc])
		fmt.Fprintf(&b, "**Subtotal:** %.2f %s\n\n", subtotal, base)
		grand += subtotal
	}
	fmt.Fprintf(&b, "**Grand Total:** %.2f %s\n", grand, base)
	return b.String()
}

func renderList(breakdown api.Breakdown, filter, base string) string {
	var b strings.Builder
	if filter != "" {
		fmt.Fprintf(&b, "📊 **Expenses for %s:**\n", filter)
	} else {
		b.WriteString("📊 **All Expenses:**\n")
	}

	for _, loc := range sortedKeys(breakdown) {
		fmt.Fprintf(&b, "**%s:**\n", loc)
		for _, entry := range breakdown[loc] {
			fmt.Fprintf(&b, "* [%d] %.2f %s on %s (%s %s)\n",
				entry.ID, entry.Amount, base,
				entry.Timestamp.Format(timeLayout),
				formatAmount(entry.OriginalAmount), entry.Currency)
		}
	}
	return b.String()
}

func formatEntry(entry api.BreakdownEntry, base string) string {
	return fmt.Sprintf("* %.2f %s on %s (%s %s)\n",
		entry.Amount, base,
		entry.Timestamp.Format(timeLayout),
		formatAmount(entry.OriginalAmount), entry.Currency)
}

// formatAmount prints the amount the way the user typed it: no trailing
// zeros, so 100 stays "100" and 99.5 stays "99.5".
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func totalHeader(location string) string {
	if location != "" {
		return fmt.Sprintf("💰 **Total Spent Breakdown for %s:**\n", location)
	}
	return "💰 **Total Spent Breakdown:**\n"
}

func breakdownHeader(location string) string {
	if location != "" {
		return fmt.Sprintf("📊 **Expense Breakdown for %s:**\n", location)
	}
	return "📊 **Expense Breakdown:**\n"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
