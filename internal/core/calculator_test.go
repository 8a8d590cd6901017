package core

import (
	"math"
	"testing"
)

func TestAmountToPeriods(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		fee    float64
		want   int
	}{
		{"exact fee", 562, 562, 1},
		{"below two fees", 1000, 562, 1},
		{"several periods", 2000, 562, 3},
		{"zero amount", 0, 562, 0},
		{"negative amount", -5, 562, 0},
		{"NaN amount", math.NaN(), 562, 0},
		{"Inf amount", math.Inf(1), 562, 0},
		{"zero fee", 100, 0, 0},
		{"NaN fee", 100, math.NaN(), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AmountToPeriods(tc.amount, tc.fee); got != tc.want {
				t.Errorf("AmountToPeriods(%v, %v) = %d, want %d", tc.amount, tc.fee, got, tc.want)
			}
		})
	}
}
