package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{",5", "0.5", true},
		{"1.005", "1.005", true}, // no rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(decimal.NewFromInt(50), decimal.Zero); !got.IsZero() {
		t.Fatalf("expected zero for zero whole, got %s", got)
	}
	if got := Percent(decimal.NewFromInt(800), decimal.NewFromInt(1000)); !got.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected 80, got %s", got)
	}
	if got := Percent(decimal.NewFromInt(-200), decimal.NewFromInt(1000)); !got.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected -20, got %s", got)
	}
}
