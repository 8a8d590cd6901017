package core

import (
	"testing"
	"time"
)

func TestGenerateRange(t *testing.T) {
	tests := []struct {
		name                   string
		sy, sm, ey, em         int
		wantLen                int
		wantFirst, wantLast    Period
	}{
		{"full schedule", 2025, 8, 2028, 7, 36, Period{2025, 8}, Period{2028, 7}},
		{"single month", 2025, 8, 2025, 8, 1, Period{2025, 8}, Period{2025, 8}},
		{"year boundary", 2025, 11, 2026, 2, 4, Period{2025, 11}, Period{2026, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRange(tt.sy, tt.sm, tt.ey, tt.em)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if got[0] != tt.wantFirst || got[len(got)-1] != tt.wantLast {
				t.Fatalf("endpoints = %v..%v, want %v..%v", got[0], got[len(got)-1], tt.wantFirst, tt.wantLast)
			}
			for i := 1; i < len(got); i++ {
				if !got[i-1].Before(got[i]) {
					t.Fatalf("sequence not strictly increasing at %d: %v then %v", i, got[i-1], got[i])
				}
			}
		})
	}
}

func TestGenerateRangeDegenerate(t *testing.T) {
	if got := GenerateRange(2028, 7, 2025, 8); len(got) != 0 {
		t.Fatalf("inverted range: expected empty, got %d periods", len(got))
	}
	if got := GenerateRange(2025, 0, 2025, 12); len(got) != 0 {
		t.Fatalf("month 0: expected empty, got %d periods", len(got))
	}
	if got := GenerateRange(2025, 1, 2025, 13); len(got) != 0 {
		t.Fatalf("month 13: expected empty, got %d periods", len(got))
	}
}

func TestPeriodKey(t *testing.T) {
	if got := (Period{2025, 8}).Key(); got != "2025-08" {
		t.Fatalf("key = %q, want 2025-08", got)
	}
	if got := (Period{2026, 11}).Key(); got != "2026-11" {
		t.Fatalf("key = %q, want 2026-11", got)
	}
}

func TestParsePeriodKey(t *testing.T) {
	cases := []struct {
		in string
		p  Period
		ok bool
	}{
		{"2025-08", Period{2025, 8}, true},
		{"2026-12", Period{2026, 12}, true},
		{"2025-13", Period{}, false},
		{"2025-00", Period{}, false},
		{"2025", Period{}, false},
		{"garbage", Period{}, false},
		{"", Period{}, false},
	}
	for _, tc := range cases {
		p, err := ParsePeriodKey(tc.in)
		if tc.ok && (err != nil || p != tc.p) {
			t.Fatalf("%q: got %v err=%v, want %v", tc.in, p, err, tc.p)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestPeriodDueBy(t *testing.T) {
	p := Period{2025, 9}
	cases := []struct {
		ref  time.Time
		want bool
	}{
		{time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), false},
	}
	for i, tc := range cases {
		if got := p.DueBy(tc.ref); got != tc.want {
			t.Fatalf("case %d: DueBy(%v) = %v, want %v", i, tc.ref, got, tc.want)
		}
	}
}
