package analysis

import (
	"fmt"
	"math"
)

// FormatNumber abbreviates large values with K/M/B suffixes.
func FormatNumber(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// FormatPrice picks a precision suited to the magnitude of a coin price.
// Sub-micro prices fall back to scientific notation.
func FormatPrice(p float64) string {
	a := math.Abs(p)
	switch {
	case a >= 1000:
		return fmt.Sprintf("%.2f", p)
	case a >= 1:
		return fmt.Sprintf("%.4f", p)
	case a >= 0.01:
		return fmt.Sprintf("%.5f", p)
	case a >= 0.0001:
		return fmt.Sprintf("%.6f", p)
	case a >= 0.000001:
		return fmt.Sprintf("%.8f", p)
	case a == 0:
		return "0"
	default:
		return fmt.Sprintf("%.4e", p)
	}
}
