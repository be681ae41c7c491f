package tradelog

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// PnlFilter scopes a snapshot by the sign of each entry's P/L.
type PnlFilter string

const (
	PnlAll    PnlFilter = "ALL"
	PnlProfit PnlFilter = "PROFIT"
	PnlLoss   PnlFilter = "LOSS"
)

// ErrUnknownPnlFilter is returned by ParsePnlFilter for unrecognized names.
var ErrUnknownPnlFilter = errors.New("unknown pnl filter")

// ParsePnlFilter parses ALL, PROFIT or LOSS, case-insensitively. Empty means ALL.
func ParsePnlFilter(s string) (PnlFilter, error) {
	switch PnlFilter(strings.ToUpper(strings.TrimSpace(s))) {
	case "", PnlAll:
		return PnlAll, nil
	case PnlProfit:
		return PnlProfit, nil
	case PnlLoss:
		return PnlLoss, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPnlFilter, s)
}

// PnlPoint is one point of a P/L chart. Index is 1-based within the scoped snapshot.
type PnlPoint struct {
	Index int     `json:"index"`
	PnL   float64 `json:"pnl"`
}

// FilterByDate keeps entries whose date equals date. An empty date keeps everything.
func FilterByDate(s Snapshot, date string) Snapshot {
	if date == "" {
		return slices.Clone(s)
	}
	out := make(Snapshot, 0, len(s))
	for _, e := range s {
		if e.Date() == date {
			out = append(out, e)
		}
	}
	return out
}

// FilterByPnlSign keeps strictly positive (PROFIT) or strictly negative (LOSS)
// entries. Zero and unparseable P/L only survive ALL. Unknown modes behave as ALL.
func FilterByPnlSign(s Snapshot, mode PnlFilter) Snapshot {
	var keep func(float64) bool
	switch mode {
	case PnlProfit:
		keep = func(p float64) bool { return p > 0 }
	case PnlLoss:
		keep = func(p float64) bool { return p < 0 }
	default:
		return slices.Clone(s)
	}

	out := make(Snapshot, 0, len(s))
	for _, e := range s {
		if p, ok := e.PnL.Float(); ok && keep(p) {
			out = append(out, e)
		}
	}
	return out
}

// ActionCounts tallies entries per action label.
func ActionCounts(s Snapshot) map[string]int {
	counts := make(map[string]int)
	for _, e := range s {
		counts[e.Action]++
	}
	return counts
}

// PnlSeries returns each entry's P/L in snapshot order.
func PnlSeries(s Snapshot) []PnlPoint {
	series := make([]PnlPoint, len(s))
	for i, e := range s {
		series[i] = PnlPoint{Index: i + 1, PnL: e.PnL.OrZero()}
	}
	return series
}

// CumulativePnl returns the running P/L total in snapshot order.
func CumulativePnl(s Snapshot) []PnlPoint {
	series := make([]PnlPoint, len(s))
	var sum float64
	for i, e := range s {
		sum += e.PnL.OrZero()
		series[i] = PnlPoint{Index: i + 1, PnL: sum}
	}
	return series
}

// TotalPnl sums P/L at full precision.
func TotalPnl(s Snapshot) float64 {
	var sum float64
	for _, e := range s {
		sum += e.PnL.OrZero()
	}
	return sum
}

// FormatAmount renders an amount with two decimals for display.
func FormatAmount(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		// avoid "-0.00"
		r = 0
	}
	return fmt.Sprintf("%.2f", r)
}

// DistinctDates returns the unique entry dates in encounter order.
func DistinctDates(s Snapshot) []string {
	seen := make(map[string]struct{})
	dates := make([]string, 0)
	for _, e := range s {
		d := e.Date()
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	return dates
}

// DefaultDate picks the last date in encounter order. This is the most recent
// date only if the upstream log is time-ordered, which callers must guarantee.
func DefaultDate(dates []string) string {
	if len(dates) == 0 {
		return ""
	}
	return dates[len(dates)-1]
}

// Summary is the aggregate view of a date- and sign-scoped snapshot.
type Summary struct {
	Date            string         `json:"date"`
	PnlFilter       PnlFilter      `json:"pnl_filter"`
	Count           int            `json:"count"`
	ActionCounts    map[string]int `json:"action_counts"`
	PnlSeries       []PnlPoint     `json:"pnl_series"`
	CumulativePnl   []PnlPoint     `json:"cumulative_pnl"`
	TotalPnl        float64        `json:"total_pnl"`
	TotalPnlDisplay string         `json:"total_pnl_display"`
}

// Scope applies the date filter and then the sign filter.
func Scope(s Snapshot, date string, mode PnlFilter) Snapshot {
	return FilterByPnlSign(FilterByDate(s, date), mode)
}

// Summarize scopes s and derives every aggregate from the scoped entries.
func Summarize(s Snapshot, date string, mode PnlFilter) Summary {
	if mode == "" {
		mode = PnlAll
	}
	scoped := Scope(s, date, mode)
	total := TotalPnl(scoped)
	return Summary{
		Date:            date,
		PnlFilter:       mode,
		Count:           len(scoped),
		ActionCounts:    ActionCounts(scoped),
		PnlSeries:       PnlSeries(scoped),
		CumulativePnl:   CumulativePnl(scoped),
		TotalPnl:        total,
		TotalPnlDisplay: FormatAmount(total),
	}
}
