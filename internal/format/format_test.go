package format

import (
	"math"
	"testing"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{12345.67, "12,345.67"},
		{0, "0.00"},
		{999.999, "1,000.00"},
		{1234567.891, "1,234,567.89"},
		{-1500.5, "-1,500.50"},
		{math.NaN(), "n/a"},
	}

	for _, tt := range tests {
		if got := Money(tt.in); got != tt.want {
			t.Errorf("Money(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWholeAndInt(t *testing.T) {
	if got := Whole(251505.4); got != "251,505" {
		t.Errorf("Whole() = %q", got)
	}
	if got := Int(99457); got != "99,457" {
		t.Errorf("Int() = %q", got)
	}
	if got := Int(12); got != "12" {
		t.Errorf("Int() = %q", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(100); got != "100.0%" {
		t.Errorf("Percent(100) = %q", got)
	}
	if got := Percent(33.333); got != "33.3%" {
		t.Errorf("Percent(33.333) = %q", got)
	}
	if got := Percent(math.Inf(1)); got != "n/a" {
		t.Errorf("Percent(Inf) = %q", got)
	}
}
