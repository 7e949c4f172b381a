package ingest

import (
	"math"
	"testing"
)

func TestTokenElapsed(t *testing.T) {
	parse := TokenElapsed(DefaultElapsedToken)

	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{"fourth token", "time in seconds 12.50", 12.5, false},
		{"extra whitespace", "  time\tin   seconds    7  ", 7, false},
		{"trailing tokens ignored", "a b c 3.25 s", 3.25, false},
		{"zero is valid", "a b c 0", 0, false},
		{"too few tokens", "a b c", 0, true},
		{"empty", "", 0, true},
		{"non numeric", "a b c fast", 0, true},
		{"nan rejected", "a b c NaN", 0, true},
		{"inf rejected", "a b c +Inf", 0, true},
		{"negative rejected", "a b c -1.5", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parse(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parse(%q) = %v, want error", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse(%q) unexpected error: %v", tc.raw, err)
			}
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("parse(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestTokenElapsed_CustomIndex(t *testing.T) {
	got, err := TokenElapsed(0)("42.0 seconds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %v, want 42", got)
	}
}

func TestPlainElapsed(t *testing.T) {
	got, err := PlainElapsed(" 9.75 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 9.75 {
		t.Errorf("got %v, want 9.75", got)
	}
	if _, err := PlainElapsed("9.75 s"); err == nil {
		t.Error("expected error for trailing unit")
	}
}
