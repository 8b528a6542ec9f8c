package units

import "testing"

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false, want true", u)
		}
	}
	if IsValid("gbps") {
		t.Error("IsValid(\"gbps\") = true, want false")
	}
	if IsValid("") {
		t.Error("IsValid(\"\") = true, want false")
	}
}

func TestConvertBandwidth(t *testing.T) {
	tests := []struct {
		name   string
		bps    float64
		target string
		want   float64
	}{
		{"bps passthrough", 12000, BPS, 12000},
		{"to kbps", 12000, KBPS, 12},
		{"to mbps", 2500000, MBPS, 2.5},
		{"unknown unit defaults to bps", 12000, "gbps", 12000},
		{"zero", 0, MBPS, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertBandwidth(tt.bps, tt.target); got != tt.want {
				t.Errorf("ConvertBandwidth(%v, %q) = %v, want %v", tt.bps, tt.target, got, tt.want)
			}
		})
	}
}
