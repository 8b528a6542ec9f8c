package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig represents the root configuration for analysis parameters.
// The schema matches the /api/params endpoint so the same JSON can be used
// for both startup configuration and runtime updates.
type TuningConfig struct {
	// Windowing params
	WindowSeconds *float64 `json:"window_seconds,omitempty"`
	FrameRate     *float64 `json:"frame_rate,omitempty"`
	FrameLimit    *int     `json:"frame_limit,omitempty"`

	// Scoring params
	IoUThreshold *float64 `json:"iou_threshold,omitempty"`
	Matcher      *string  `json:"matcher,omitempty"` // "greedy" or "hungarian"

	// Trigger params
	BandwidthHighWatermark *float64 `json:"bandwidth_high_watermark,omitempty"` // bps
	BandwidthLowWatermark  *float64 `json:"bandwidth_low_watermark,omitempty"`  // bps
	AccuracyFloor          *float64 `json:"accuracy_floor,omitempty"`
	ConsecutiveWindows     *int     `json:"consecutive_windows_required,omitempty"`
	CooldownWindows        *int     `json:"cooldown_windows,omitempty"`
	SelectionPolicy        *string  `json:"candidate_selection_policy,omitempty"` // "nearest-bandwidth" or "nearest-accuracy"

	// Profile drift thresholds for online re-profiling. A fresh profile
	// whose squared drift from the active frontier exceeds either bound
	// forces a candidate re-selection.
	ProfileDriftBandwidth *float64 `json:"profile_drift_bandwidth,omitempty"` // squared bps
	ProfileDriftAccuracy  *float64 `json:"profile_drift_accuracy,omitempty"`

	// Optional filter restricting which configurations are analysed.
	// Entries use the "WIDTHxSKIPxQUANT" label form, e.g. "1280x0x20".
	ConfigFilter []string `json:"config_filter,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.WindowSeconds != nil && *c.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be positive, got %f", *c.WindowSeconds)
	}
	if c.FrameRate != nil && *c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}
	if c.FrameLimit != nil && *c.FrameLimit < 0 {
		return fmt.Errorf("frame_limit must be non-negative, got %d", *c.FrameLimit)
	}
	if c.IoUThreshold != nil {
		if *c.IoUThreshold < 0 || *c.IoUThreshold > 1 {
			return fmt.Errorf("iou_threshold must be between 0 and 1, got %f", *c.IoUThreshold)
		}
	}
	if c.Matcher != nil {
		switch *c.Matcher {
		case "greedy", "hungarian":
		default:
			return fmt.Errorf("matcher must be \"greedy\" or \"hungarian\", got %q", *c.Matcher)
		}
	}
	if c.AccuracyFloor != nil {
		if *c.AccuracyFloor < 0 || *c.AccuracyFloor > 1 {
			return fmt.Errorf("accuracy_floor must be between 0 and 1, got %f", *c.AccuracyFloor)
		}
	}
	if c.ConsecutiveWindows != nil && *c.ConsecutiveWindows < 1 {
		return fmt.Errorf("consecutive_windows_required must be at least 1, got %d", *c.ConsecutiveWindows)
	}
	if c.CooldownWindows != nil && *c.CooldownWindows < 0 {
		return fmt.Errorf("cooldown_windows must be non-negative, got %d", *c.CooldownWindows)
	}
	if c.SelectionPolicy != nil {
		switch *c.SelectionPolicy {
		case "nearest-bandwidth", "nearest-accuracy":
		default:
			return fmt.Errorf("candidate_selection_policy must be \"nearest-bandwidth\" or \"nearest-accuracy\", got %q", *c.SelectionPolicy)
		}
	}
	if c.ProfileDriftBandwidth != nil && *c.ProfileDriftBandwidth < 0 {
		return fmt.Errorf("profile_drift_bandwidth must be non-negative, got %f", *c.ProfileDriftBandwidth)
	}
	if c.ProfileDriftAccuracy != nil && *c.ProfileDriftAccuracy < 0 {
		return fmt.Errorf("profile_drift_accuracy must be non-negative, got %f", *c.ProfileDriftAccuracy)
	}
	if c.BandwidthHighWatermark != nil && c.BandwidthLowWatermark != nil {
		if *c.BandwidthLowWatermark > *c.BandwidthHighWatermark {
			return fmt.Errorf("bandwidth_low_watermark %f exceeds bandwidth_high_watermark %f",
				*c.BandwidthLowWatermark, *c.BandwidthHighWatermark)
		}
	}
	return nil
}

// GetWindowSeconds returns the window_seconds value or the default.
func (c *TuningConfig) GetWindowSeconds() float64 {
	if c.WindowSeconds == nil {
		return 5.0 // default
	}
	return *c.WindowSeconds
}

// GetFrameRate returns the frame_rate value or the default.
func (c *TuningConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return 30.0 // source material is 30fps
	}
	return *c.FrameRate
}

// GetFrameLimit returns the frame_limit value or 0 for no limit.
func (c *TuningConfig) GetFrameLimit() int {
	if c.FrameLimit == nil {
		return 0
	}
	return *c.FrameLimit
}

// GetIoUThreshold returns the iou_threshold value or the default.
func (c *TuningConfig) GetIoUThreshold() float64 {
	if c.IoUThreshold == nil {
		return 0.5
	}
	return *c.IoUThreshold
}

// GetMatcher returns the matcher value or the default.
func (c *TuningConfig) GetMatcher() string {
	if c.Matcher == nil {
		return "greedy"
	}
	return *c.Matcher
}

// GetBandwidthHighWatermark returns the bandwidth_high_watermark value or the
// default. Zero disables the high watermark trigger metric.
func (c *TuningConfig) GetBandwidthHighWatermark() float64 {
	if c.BandwidthHighWatermark == nil {
		return 0
	}
	return *c.BandwidthHighWatermark
}

// GetBandwidthLowWatermark returns the bandwidth_low_watermark value or the
// default. Zero disables the low watermark trigger metric.
func (c *TuningConfig) GetBandwidthLowWatermark() float64 {
	if c.BandwidthLowWatermark == nil {
		return 0
	}
	return *c.BandwidthLowWatermark
}

// GetAccuracyFloor returns the accuracy_floor value or the default.
// Zero disables the accuracy trigger metric.
func (c *TuningConfig) GetAccuracyFloor() float64 {
	if c.AccuracyFloor == nil {
		return 0
	}
	return *c.AccuracyFloor
}

// GetConsecutiveWindows returns the consecutive_windows_required value or the default.
func (c *TuningConfig) GetConsecutiveWindows() int {
	if c.ConsecutiveWindows == nil {
		return 2
	}
	return *c.ConsecutiveWindows
}

// GetCooldownWindows returns the cooldown_windows value or the default.
func (c *TuningConfig) GetCooldownWindows() int {
	if c.CooldownWindows == nil {
		return 3
	}
	return *c.CooldownWindows
}

// GetProfileDriftBandwidth returns the profile_drift_bandwidth value or the
// default. Zero disables the bandwidth half of the drift metric.
func (c *TuningConfig) GetProfileDriftBandwidth() float64 {
	if c.ProfileDriftBandwidth == nil {
		return 0
	}
	return *c.ProfileDriftBandwidth
}

// GetProfileDriftAccuracy returns the profile_drift_accuracy value or the
// default. Zero disables the accuracy half of the drift metric.
func (c *TuningConfig) GetProfileDriftAccuracy() float64 {
	if c.ProfileDriftAccuracy == nil {
		return 0
	}
	return *c.ProfileDriftAccuracy
}

// GetSelectionPolicy returns the candidate_selection_policy value or the default.
func (c *TuningConfig) GetSelectionPolicy() string {
	if c.SelectionPolicy == nil {
		return "nearest-bandwidth"
	}
	return *c.SelectionPolicy
}
