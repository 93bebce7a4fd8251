package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/tofmotion/internal/tof"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the pipeline tuning parameters. Unset fields fall
// back to the built-in defaults through the Get* methods, so partial files
// are safe.
type TuningConfig struct {
	// Parser
	ConfidenceGate *float64 `json:"confidence_gate,omitempty"`

	// Frame windows
	DisplayWindow *int `json:"display_window,omitempty"`
	JudgeWindow   *int `json:"judge_window,omitempty"`

	// Trend classifier
	TrendFrames       *int     `json:"trend_frames,omitempty"`
	MinCentroids      *int     `json:"min_centroids,omitempty"`
	MovementThreshold *float64 `json:"movement_threshold,omitempty"`

	// Debouncer
	MinConsecutive *int `json:"min_consecutive,omitempty"`
	HistorySize    *int `json:"history_size,omitempty"`

	// Driving loop
	TickInterval *string `json:"tick_interval,omitempty"` // duration string like "50ms"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// built-in default.
func DefaultTuningConfig() *TuningConfig {
	d := tof.DefaultConfig()
	return &TuningConfig{
		ConfidenceGate:    ptrFloat64(d.ConfidenceGate),
		DisplayWindow:     ptrInt(d.DisplayWindow),
		JudgeWindow:       ptrInt(d.JudgeWindow),
		TrendFrames:       ptrInt(d.TrendFrames),
		MinCentroids:      ptrInt(d.MinCentroids),
		MovementThreshold: ptrFloat64(d.MovementThreshold),
		MinConsecutive:    ptrInt(d.MinConsecutive),
		HistorySize:       ptrInt(d.HistorySize),
		TickInterval:      ptrString("50ms"),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
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

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.ConfidenceGate != nil && *c.ConfidenceGate < 0 {
		return fmt.Errorf("confidence_gate must be non-negative, got %f", *c.ConfidenceGate)
	}

	positive := []struct {
		name string
		v    *int
	}{
		{"display_window", c.DisplayWindow},
		{"judge_window", c.JudgeWindow},
		{"trend_frames", c.TrendFrames},
		{"min_consecutive", c.MinConsecutive},
		{"history_size", c.HistorySize},
	}
	for _, p := range positive {
		if p.v != nil && *p.v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", p.name, *p.v)
		}
	}

	if c.MinCentroids != nil && *c.MinCentroids < 2 {
		return fmt.Errorf("min_centroids must be at least 2, got %d", *c.MinCentroids)
	}
	if c.GetMinCentroids() > c.GetTrendFrames() {
		return fmt.Errorf("min_centroids (%d) exceeds trend_frames (%d)", c.GetMinCentroids(), c.GetTrendFrames())
	}
	if c.GetTrendFrames() > c.GetJudgeWindow() {
		return fmt.Errorf("trend_frames (%d) exceeds judge_window (%d)", c.GetTrendFrames(), c.GetJudgeWindow())
	}

	if c.MovementThreshold != nil && *c.MovementThreshold < 0 {
		return fmt.Errorf("movement_threshold must be non-negative, got %f", *c.MovementThreshold)
	}

	if c.TickInterval != nil && *c.TickInterval != "" {
		d, err := time.ParseDuration(*c.TickInterval)
		if err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("tick_interval must be positive, got %s", d)
		}
	}

	return nil
}

// PipelineConfig converts the tuning values into a tof.Config.
func (c *TuningConfig) PipelineConfig() tof.Config {
	return tof.Config{
		ConfidenceGate:    c.GetConfidenceGate(),
		DisplayWindow:     c.GetDisplayWindow(),
		JudgeWindow:       c.GetJudgeWindow(),
		TrendFrames:       c.GetTrendFrames(),
		MinCentroids:      c.GetMinCentroids(),
		MovementThreshold: c.GetMovementThreshold(),
		MinConsecutive:    c.GetMinConsecutive(),
		HistorySize:       c.GetHistorySize(),
	}
}

// GetConfidenceGate returns the confidence_gate value or the default.
func (c *TuningConfig) GetConfidenceGate() float64 {
	if c.ConfidenceGate == nil {
		return tof.DefaultConfidenceGate
	}
	return *c.ConfidenceGate
}

// GetDisplayWindow returns the display_window value or the default.
func (c *TuningConfig) GetDisplayWindow() int {
	if c.DisplayWindow == nil {
		return 3
	}
	return *c.DisplayWindow
}

// GetJudgeWindow returns the judge_window value or the default.
func (c *TuningConfig) GetJudgeWindow() int {
	if c.JudgeWindow == nil {
		return 10
	}
	return *c.JudgeWindow
}

// GetTrendFrames returns the trend_frames value or the default.
func (c *TuningConfig) GetTrendFrames() int {
	if c.TrendFrames == nil {
		return 5
	}
	return *c.TrendFrames
}

// GetMinCentroids returns the min_centroids value or the default.
func (c *TuningConfig) GetMinCentroids() int {
	if c.MinCentroids == nil {
		return 3
	}
	return *c.MinCentroids
}

// GetMovementThreshold returns the movement_threshold value or the default.
func (c *TuningConfig) GetMovementThreshold() float64 {
	if c.MovementThreshold == nil {
		return 0.1
	}
	return *c.MovementThreshold
}

// GetMinConsecutive returns the min_consecutive value or the default.
func (c *TuningConfig) GetMinConsecutive() int {
	if c.MinConsecutive == nil {
		return 2
	}
	return *c.MinConsecutive
}

// GetHistorySize returns the history_size value or the default.
func (c *TuningConfig) GetHistorySize() int {
	if c.HistorySize == nil {
		return 5
	}
	return *c.HistorySize
}

// GetTickInterval parses and returns the TickInterval as a time.Duration.
func (c *TuningConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return 50 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil || d <= 0 {
		return 50 * time.Millisecond // default on parse error
	}
	return d
}
