package symbol

import (
	"errors"
	"testing"
)

func TestNormalize_Valid(t *testing.T) {
	tests := map[string]string{
		"MOON":     "MOON",
		"moon":     "MOON",
		"  Rug42 ": "RUG42",
		"*BONK":    "BONK",
	}
	for in, want := range tests {
		got, err := Normalize(in)
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"MO-ON",
		"MOON/../ETC",
		"ABCDEFGHIJKLMNOPQRSTU", // 21 chars
		"ÉTOILE",
	}
	for _, in := range tests {
		_, err := Normalize(in)
		if !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("Normalize(%q): expected ErrInvalidSymbol, got %v", in, err)
		}
	}
}

func TestFromURL(t *testing.T) {
	sym, err := FromURL("https://rugplay.com/coin/moon?tab=holders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym != "MOON" {
		t.Errorf("expected MOON, got %s", sym)
	}

	if _, err := FromURL("https://rugplay.com/market"); !errors.Is(err, ErrNoSymbolInURL) {
		t.Errorf("expected ErrNoSymbolInURL, got %v", err)
	}
}

func TestMustNormalize_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid symbol")
		}
	}()
	MustNormalize("not a symbol")
}
