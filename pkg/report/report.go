// Package report provides pure, read-only aggregation over breakdown output:
// per-period grouping, period filtering, and subtotals.
package report

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shahar080/discord-travel-budget-tracker/pkg/api"
)

// Grouping literals: group by year, or by month/year.
const (
	GroupByYear      = "yyyy"
	GroupByMonthYear = "mm/yy"
)

// ErrInvalidPeriod is returned when a group/filter string is neither a
// grouping literal nor a specific year or month/year value.
var ErrInvalidPeriod = errors.New("invalid period: use 'yyyy' or 'mm/yy', or a specific year (e.g. 2025) or month/year (e.g. 05/25)")

var (
	reYear      = regexp.MustCompile(`^\d{4}$`)
	reMonthYear = regexp.MustCompile(`^\d{2}/\d{2}$`)
)

// IsGroupingLiteral reports whether period is one of the grouping literals
// (as opposed to a specific filter value).
func IsGroupingLiteral(period string) bool {
	return period == GroupByYear || period == GroupByMonthYear
}

// Validate checks that period is either a grouping literal or a specific
// year / month-year filter.
func Validate(period string) error {
	if IsGroupingLiteral(period) || reYear.MatchString(period) || reMonthYear.MatchString(period) {
		return nil
	}
	return ErrInvalidPeriod
}

// periodKey formats a timestamp under the given grouping literal.
func periodKey(ts time.Time, literal string) string {
	if literal == GroupByYear {
		return ts.Format("2006")
	}
	return ts.Format("01/06")
}

// GroupByPeriod partitions every entry of the breakdown into exactly one
// period group keyed by its formatted timestamp. Entries keep their location
// and the breakdown's insertion order within each group. An optional location
// restricts the input (case-insensitive exact match).
func GroupByPeriod(breakdown api.Breakdown, literal, location string) (map[string][]api.BreakdownEntry, error) {
	if !IsGroupingLiteral(literal) {
		return nil, ErrInvalidPeriod
	}

	grouped := make(map[string][]api.BreakdownEntry)
	for loc, entries := range breakdown {
		if location != "" && !strings.EqualFold(loc, location) {
			continue
		}
		for _, entry := range entries {
			key := periodKey(entry.Timestamp, literal)
			grouped[key] = append(grouped[key], entry)
		}
	}
	return grouped, nil
}

// FilterByPeriod keeps only the entries whose formatted timestamp equals the
// specific filter value ("2025"-style year or "05/25"-style month/year),
// preserving the per-location grouping. Locations left empty by the filter
// are dropped from the result.
func FilterByPeriod(breakdown api.Breakdown, filter, location string) (api.Breakdown, error) {
	var literal string
	switch {
	case reYear.MatchString(filter):
		literal = GroupByYear
	case reMonthYear.MatchString(filter):
		literal = GroupByMonthYear
	default:
		return nil, ErrInvalidPeriod
	}

	filtered := make(api.Breakdown)
	for loc, entries := range breakdown {
		if location != "" && !strings.EqualFold(loc, location) {
			continue
		}
		var kept []api.BreakdownEntry
		for _, entry := range entries {
			if periodKey(entry.Timestamp, literal) == filter {
				kept = append(kept, entry)
			}
		}
		if len(kept) > 0 {
			filtered[loc] = kept
		}
	}
	return filtered, nil
}

// GroupByLocation regroups a flat list of entries by their location,
// preserving order. Used when a period group must be rendered per location.
func GroupByLocation(entries []api.BreakdownEntry) map[string][]api.BreakdownEntry {
	grouped := make(map[string][]api.BreakdownEntry)
	for _, entry := range entries {
		grouped[entry.Location] = append(grouped[entry.Location], entry)
	}
	return grouped
}

// Subtotal sums the converted amounts of a group of entries.
func Subtotal(entries []api.BreakdownEntry) float64 {
	var total float64
	for _, entry := range entries {
		total += entry.Amount
	}
	return total
}
