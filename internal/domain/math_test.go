package domain

import "testing"

func TestFormatCoins(t *testing.T) {
	tests := []struct {
		name string
		sats int64
		want string
	}{
		{"one coin", 100_000_000, "1"},
		{"zero", 0, "0"},
		{"one satoshi", 1, "0.00000001"},
		{"fraction", 12_345_678, "0.12345678"},
		{"trailing zeros stripped", 150_000_000, "1.5"},
		{"large", 2_100_000_000_000_000, "21000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCoins(tt.sats); got != tt.want {
				t.Errorf("FormatCoins(%d) = %q, want %q", tt.sats, got, tt.want)
			}
		})
	}
}

func TestFormatScaled(t *testing.T) {
	tests := []struct {
		name       string
		raw, scale int64
		want       string
	}{
		{"cents", 47622, 100, "476.22"},
		{"whole", 10000, 100, "100"},
		{"zero scale", 5, 0, "0"},
		{"zero raw", 0, 100, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatScaled(tt.raw, tt.scale); got != tt.want {
				t.Errorf("FormatScaled(%d, %d) = %q, want %q", tt.raw, tt.scale, got, tt.want)
			}
		})
	}
}

func TestAbsDiff(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{100, 20, 80},
		{20, 100, 80},
		{5, 5, 0},
		{0, 7, 7},
	}

	for _, tt := range tests {
		if got := AbsDiff(tt.a, tt.b); got != tt.want {
			t.Errorf("AbsDiff(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
