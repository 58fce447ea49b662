// Package symbol handles coin symbol normalisation and extraction of the
// symbol from platform page URLs.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// symbolRegex matches a normalised coin symbol: 1-20 upper-case letters or digits.
var symbolRegex = regexp.MustCompile(`^[A-Z0-9]{1,20}$`)

// coinPathRegex matches the coin page path: /coin/{SYMBOL}
// Example: https://rugplay.com/coin/MOON
var coinPathRegex = regexp.MustCompile(`(?i)/coin/([A-Z0-9]+)`)

var (
	ErrInvalidSymbol = errors.New("symbol: invalid symbol")
	ErrNoSymbolInURL = errors.New("symbol: url does not reference a coin")
)

// Normalize trims and upper-cases s and validates the result. Ledger keys
// and API paths always go through Normalize so "moon" and "MOON " address
// the same entry.
func Normalize(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	sym = strings.TrimPrefix(sym, "*")
	if !symbolRegex.MatchString(sym) {
		return "", fmt.Errorf("%w: %q (expected 1-20 letters or digits)", ErrInvalidSymbol, s)
	}
	return sym, nil
}

// MustNormalize is Normalize for compile-time constants; it panics on error.
func MustNormalize(s string) string {
	sym, err := Normalize(s)
	if err != nil {
		panic(err)
	}
	return sym
}

// FromURL extracts and normalises the symbol from a coin page URL.
func FromURL(url string) (string, error) {
	matches := coinPathRegex.FindStringSubmatch(url)
	if matches == nil {
		return "", fmt.Errorf("%w: %s", ErrNoSymbolInURL, url)
	}
	return Normalize(matches[1])
}
