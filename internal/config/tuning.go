package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// TuningConfig represents the root configuration for extraction and
// cleaning tuning parameters. Fields are pointers so a partial JSON file
// overrides only the values it names; the Get* methods provide fallback
// defaults for anything left unset.
type TuningConfig struct {
	// Extraction params
	Workers       *int     `json:"workers,omitempty"`
	BatchSize     *int     `json:"batch_size,omitempty"`
	SampleRate    *int     `json:"sample_rate,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`

	// Detector params
	WhiteThreshold     *int     `json:"white_threshold,omitempty"`
	DebounceFrames     *int     `json:"debounce_frames,omitempty"`
	FuelJumpFraction   *float64 `json:"fuel_jump_fraction,omitempty"`
	GaugeBrightCutoff  *float64 `json:"gauge_bright_cutoff,omitempty"`
	GaugeRefDiffCutoff *float64 `json:"gauge_ref_diff_cutoff,omitempty"`

	// Cleaning params
	OutlierWindow    *int     `json:"outlier_window,omitempty"`
	OutlierMADFactor *float64 `json:"outlier_mad_factor,omitempty"`
	MaxGapFrames     *int     `json:"max_gap_frames,omitempty"`
	MaxAcceleration  *float64 `json:"max_acceleration,omitempty"`
	DeriveStride     *int     `json:"derive_stride,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields omitted
// from the JSON keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

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
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.BatchSize != nil && *c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", *c.BatchSize)
	}
	if c.SampleRate != nil && *c.SampleRate < 1 {
		return fmt.Errorf("sample_rate must be at least 1, got %d", *c.SampleRate)
	}
	if c.MinConfidence != nil {
		if *c.MinConfidence < 0 || *c.MinConfidence > 1 {
			return fmt.Errorf("min_confidence must be between 0 and 1, got %f", *c.MinConfidence)
		}
	}
	if c.WhiteThreshold != nil {
		if *c.WhiteThreshold < 0 || *c.WhiteThreshold > 255 {
			return fmt.Errorf("white_threshold must be between 0 and 255, got %d", *c.WhiteThreshold)
		}
	}
	if c.DebounceFrames != nil && *c.DebounceFrames < 1 {
		return fmt.Errorf("debounce_frames must be at least 1, got %d", *c.DebounceFrames)
	}
	if c.FuelJumpFraction != nil {
		if *c.FuelJumpFraction <= 0 || *c.FuelJumpFraction > 1 {
			return fmt.Errorf("fuel_jump_fraction must be in (0, 1], got %f", *c.FuelJumpFraction)
		}
	}
	if c.GaugeBrightCutoff != nil {
		if *c.GaugeBrightCutoff <= 0 || *c.GaugeBrightCutoff > 1 {
			return fmt.Errorf("gauge_bright_cutoff must be in (0, 1], got %f", *c.GaugeBrightCutoff)
		}
	}
	if c.OutlierWindow != nil && *c.OutlierWindow < 3 {
		return fmt.Errorf("outlier_window must be at least 3, got %d", *c.OutlierWindow)
	}
	if c.OutlierMADFactor != nil && *c.OutlierMADFactor <= 0 {
		return fmt.Errorf("outlier_mad_factor must be positive, got %f", *c.OutlierMADFactor)
	}
	if c.MaxGapFrames != nil && *c.MaxGapFrames < 0 {
		return fmt.Errorf("max_gap_frames must be non-negative, got %d", *c.MaxGapFrames)
	}
	if c.MaxAcceleration != nil && *c.MaxAcceleration <= 0 {
		return fmt.Errorf("max_acceleration must be positive, got %f", *c.MaxAcceleration)
	}
	if c.DeriveStride != nil && *c.DeriveStride < 1 {
		return fmt.Errorf("derive_stride must be at least 1, got %d", *c.DeriveStride)
	}
	return nil
}

// GetWorkers returns the worker pool size or the default (all cores).
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetBatchSize returns the batch size or the default.
func (c *TuningConfig) GetBatchSize() int {
	if c.BatchSize == nil {
		return 10 // default
	}
	return *c.BatchSize
}

// GetSampleRate returns the frame sampling rate (process every Nth frame).
func (c *TuningConfig) GetSampleRate() int {
	if c.SampleRate == nil {
		return 1 // default: every frame
	}
	return *c.SampleRate
}

// GetMinConfidence returns the recognition confidence floor. Readings
// below this are treated as failures, never as low-confidence values.
func (c *TuningConfig) GetMinConfidence() float64 {
	if c.MinConfidence == nil {
		return 0.5 // default
	}
	return *c.MinConfidence
}

// GetWhiteThreshold returns the per-channel brightness above which an
// engine indicator pixel counts as lit.
func (c *TuningConfig) GetWhiteThreshold() int {
	if c.WhiteThreshold == nil {
		return 240 // default
	}
	return *c.WhiteThreshold
}

// GetDebounceFrames returns the number of consecutive frames a state flip
// must persist before it is accepted.
func (c *TuningConfig) GetDebounceFrames() int {
	if c.DebounceFrames == nil {
		return 3 // default
	}
	return *c.DebounceFrames
}

// GetFuelJumpFraction returns the fraction change between adjacent frames
// above which a fuel reading is marked provisional.
func (c *TuningConfig) GetFuelJumpFraction() float64 {
	if c.FuelJumpFraction == nil {
		return 0.15 // default
	}
	return *c.FuelJumpFraction
}

// GetGaugeBrightCutoff returns the normalised brightness above which a
// gauge strip pixel counts as filled.
func (c *TuningConfig) GetGaugeBrightCutoff() float64 {
	if c.GaugeBrightCutoff == nil {
		return 0.9 // default
	}
	return *c.GaugeBrightCutoff
}

// GetGaugeRefDiffCutoff returns the minimum normalised difference between
// the gauge reference pixels for the gauge to be considered active.
func (c *TuningConfig) GetGaugeRefDiffCutoff() float64 {
	if c.GaugeRefDiffCutoff == nil {
		return 0.2 // default
	}
	return *c.GaugeRefDiffCutoff
}

// GetOutlierWindow returns the sliding window length for the MAD outlier
// filter.
func (c *TuningConfig) GetOutlierWindow() int {
	if c.OutlierWindow == nil {
		return 15 // default
	}
	return *c.OutlierWindow
}

// GetOutlierMADFactor returns the multiple of the window MAD beyond which
// a sample is rejected.
func (c *TuningConfig) GetOutlierMADFactor() float64 {
	if c.OutlierMADFactor == nil {
		return 3.5 // default
	}
	return *c.OutlierMADFactor
}

// GetMaxGapFrames returns the longest gap (in frames) that the cleaning
// stage will linearly interpolate. Longer gaps stay invalid.
func (c *TuningConfig) GetMaxGapFrames() int {
	if c.MaxGapFrames == nil {
		return 30 // default: one second at 30 fps
	}
	return *c.MaxGapFrames
}

// GetMaxAcceleration returns the plausibility ceiling for derived
// acceleration in m/s².
func (c *TuningConfig) GetMaxAcceleration() float64 {
	if c.MaxAcceleration == nil {
		return 100.0 // default
	}
	return *c.MaxAcceleration
}

// GetDeriveStride returns the sample distance used when differentiating
// the speed series.
func (c *TuningConfig) GetDeriveStride() int {
	if c.DeriveStride == nil {
		return 10 // default
	}
	return *c.DeriveStride
}
