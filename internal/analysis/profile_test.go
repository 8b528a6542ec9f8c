package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestProfileMeans(t *testing.T) {
	cfg := Config{Width: 1280, Skip: 0, Quant: 20}
	summaries := []WindowSummary{
		{Interval: 0, BandwidthBPS: 1000, F1: 0.8, F1Defined: true},
		{Interval: 1, BandwidthBPS: 3000, F1: 0.6, F1Defined: true},
		{Interval: 2, BandwidthBPS: 2000, F1Defined: false},
		{Interval: 3, BandwidthBPS: 99999, F1: 0.1, F1Defined: true, Partial: true},
	}
	p, err := Profile(cfg, summaries)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if want := 2000.0; math.Abs(p.BandwidthBPS-want) > 1e-9 {
		t.Errorf("BandwidthBPS = %v, want %v (partial window excluded)", p.BandwidthBPS, want)
	}
	if want := 0.7; math.Abs(p.Accuracy-want) > 1e-9 {
		t.Errorf("Accuracy = %v, want %v (undefined and partial windows excluded)", p.Accuracy, want)
	}
	if p.Config != cfg {
		t.Errorf("Config = %v, want %v", p.Config, cfg)
	}
}

func TestProfileInsufficientData(t *testing.T) {
	cfg := Config{Width: 640, Skip: 2, Quant: 40}

	t.Run("no windows", func(t *testing.T) {
		_, err := Profile(cfg, nil)
		var insufficient *InsufficientDataError
		if !errors.As(err, &insufficient) {
			t.Fatalf("error = %v, want InsufficientDataError", err)
		}
		if insufficient.Config != cfg {
			t.Errorf("error config = %v, want %v", insufficient.Config, cfg)
		}
	})

	t.Run("only partial windows", func(t *testing.T) {
		_, err := Profile(cfg, []WindowSummary{
			{Interval: 0, BandwidthBPS: 100, F1: 0.5, F1Defined: true, Partial: true},
		})
		var insufficient *InsufficientDataError
		if !errors.As(err, &insufficient) {
			t.Fatalf("error = %v, want InsufficientDataError", err)
		}
	})

	t.Run("no defined accuracy", func(t *testing.T) {
		_, err := Profile(cfg, []WindowSummary{
			{Interval: 0, BandwidthBPS: 100},
		})
		var insufficient *InsufficientDataError
		if !errors.As(err, &insufficient) {
			t.Fatalf("error = %v, want InsufficientDataError", err)
		}
	})
}
