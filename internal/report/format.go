package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

// Placeholder is shown for values that cannot be formatted.
const Placeholder = "–"

// FormatCurrency renders v as US dollars with two decimals, e.g. "$1,234.50".
func FormatCurrency(v float64) string {
	if !finite(v) {
		return Placeholder
	}
	s := grouped(v, 2)
	if strings.HasPrefix(s, "-") {
		return "-$" + s[1:]
	}
	return "$" + s
}

// FormatNumber renders v with thousands separators and no decimals.
func FormatNumber(v float64) string {
	if !finite(v) {
		return Placeholder
	}
	return grouped(v, 0)
}

// FormatRatio renders v with one decimal and an "x" suffix. Zero and
// negative ratios are not meaningful and render as the placeholder.
func FormatRatio(v float64) string {
	if !finite(v) || v <= 0 {
		return Placeholder
	}
	return grouped(v, 1) + "x"
}

// FormatPercent renders v with the given decimals and a "%" suffix.
func FormatPercent(v float64, decimals int) string {
	if !finite(v) {
		return Placeholder
	}
	return strconv.FormatFloat(v, 'f', decimals, 64) + "%"
}

func UnitLabel(unit ltv.PeriodUnit, plural bool) string {
	switch unit {
	case ltv.UnitWeek:
		if plural {
			return "weeks"
		}
		return "week"
	case ltv.UnitYear:
		if plural {
			return "years"
		}
		return "year"
	}
	if plural {
		return "months"
	}
	return "month"
}

// HorizonLabel renders a period count with its unit, e.g. "24 months".
func HorizonLabel(n int, unit ltv.PeriodUnit) string {
	return strconv.Itoa(n) + " " + UnitLabel(unit, n != 1)
}

// grouped formats v with fixed decimals and comma-grouped integer digits.
func grouped(v float64, decimals int) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', decimals, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	out := intPart
	if n, err := strconv.ParseInt(intPart, 10, 64); err == nil {
		out = humanize.Comma(n)
	}
	if frac != "" {
		out += "." + frac
	}
	if v < 0 && strings.Trim(s, "0.") != "" {
		out = "-" + out
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func fixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
