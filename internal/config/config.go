package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
// This is the single source of truth for all default values.
const DefaultConfigPath = "config/polarview.defaults.json"

// PolarConfig is the root configuration for polarview. Every field is
// optional; the Get* methods supply defaults for anything omitted, so
// partial configs are safe.
type PolarConfig struct {
	// Processing
	Workers          *int     `json:"workers,omitempty"` // 0 means one per CPU
	IntensityScale   *float64 `json:"intensity_scale,omitempty"`
	StrictDimensions *bool    `json:"strict_dimensions,omitempty"`

	// Viewer
	StalePolicy    *string `json:"stale_policy,omitempty"`  // "sequence" or "arrival"
	TickInterval   *string `json:"tick_interval,omitempty"` // duration string like "16ms"
	DisplayUpscale *int    `json:"display_upscale,omitempty"`

	// Output
	OutputDir     *string `json:"output_dir,omitempty"`
	WriteHeatmaps *bool   `json:"write_heatmaps,omitempty"`
	WriteReport   *bool   `json:"write_report,omitempty"`

	// Optional services; empty disables them.
	JournalPath *string `json:"journal_path,omitempty"`
	MetricsAddr *string `json:"metrics_addr,omitempty"`
}

// Defaults used when a field is omitted.
const (
	defaultIntensityScale = 127.5
	defaultStalePolicy    = "sequence"
	defaultTickInterval   = 16 * time.Millisecond
	defaultDisplayUpscale = 4
	defaultOutputDir      = "out"
	maxDisplayUpscale     = 64
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a PolarConfig with all fields set to nil.
func EmptyConfig() *PolarConfig {
	return &PolarConfig{}
}

// DefaultConfig returns a PolarConfig with every field set to its default.
func DefaultConfig() *PolarConfig {
	return &PolarConfig{
		Workers:          ptrInt(0),
		IntensityScale:   ptrFloat64(defaultIntensityScale),
		StrictDimensions: ptrBool(false),
		StalePolicy:      ptrString(defaultStalePolicy),
		TickInterval:     ptrString(defaultTickInterval.String()),
		DisplayUpscale:   ptrInt(defaultDisplayUpscale),
		OutputDir:        ptrString(defaultOutputDir),
		WriteHeatmaps:    ptrBool(false),
		WriteReport:      ptrBool(false),
		JournalPath:      ptrString(""),
		MetricsAddr:      ptrString(""),
	}
}

// LoadConfig loads a PolarConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadConfig(path string) (*PolarConfig, error) {
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

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PolarConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/, cmd/polarview/
		"../../../" + DefaultConfigPath,    // from internal/polar/viewer/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *PolarConfig) Validate() error {
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	if c.IntensityScale != nil {
		s := *c.IntensityScale
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("intensity_scale must be positive and finite, got %v", s)
		}
	}

	if c.StalePolicy != nil && *c.StalePolicy != "" {
		switch *c.StalePolicy {
		case "sequence", "arrival":
		default:
			return fmt.Errorf("stale_policy must be \"sequence\" or \"arrival\", got %q", *c.StalePolicy)
		}
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

	if c.DisplayUpscale != nil && (*c.DisplayUpscale < 1 || *c.DisplayUpscale > maxDisplayUpscale) {
		return fmt.Errorf("display_upscale must be between 1 and %d, got %d", maxDisplayUpscale, *c.DisplayUpscale)
	}

	return nil
}

// GetWorkers returns the workers value or the default (0, one per CPU).
func (c *PolarConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetIntensityScale returns the intensity_scale value or the default.
func (c *PolarConfig) GetIntensityScale() float64 {
	if c.IntensityScale == nil {
		return defaultIntensityScale
	}
	return *c.IntensityScale
}

// GetStrictDimensions returns the strict_dimensions value or the default.
func (c *PolarConfig) GetStrictDimensions() bool {
	if c.StrictDimensions == nil {
		return false
	}
	return *c.StrictDimensions
}

// GetStalePolicy returns the stale_policy value or the default.
func (c *PolarConfig) GetStalePolicy() string {
	if c.StalePolicy == nil || *c.StalePolicy == "" {
		return defaultStalePolicy
	}
	return *c.StalePolicy
}

// GetTickInterval parses and returns the TickInterval as a time.Duration.
func (c *PolarConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return defaultTickInterval
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil || d <= 0 {
		return defaultTickInterval
	}
	return d
}

// GetDisplayUpscale returns the display_upscale value or the default.
func (c *PolarConfig) GetDisplayUpscale() int {
	if c.DisplayUpscale == nil {
		return defaultDisplayUpscale
	}
	return *c.DisplayUpscale
}

// GetOutputDir returns the output_dir value or the default.
func (c *PolarConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return defaultOutputDir
	}
	return *c.OutputDir
}

// GetWriteHeatmaps returns the write_heatmaps value or the default.
func (c *PolarConfig) GetWriteHeatmaps() bool {
	if c.WriteHeatmaps == nil {
		return false
	}
	return *c.WriteHeatmaps
}

// GetWriteReport returns the write_report value or the default.
func (c *PolarConfig) GetWriteReport() bool {
	if c.WriteReport == nil {
		return false
	}
	return *c.WriteReport
}

// GetJournalPath returns the journal_path value; empty disables the journal.
func (c *PolarConfig) GetJournalPath() string {
	if c.JournalPath == nil {
		return ""
	}
	return *c.JournalPath
}

// GetMetricsAddr returns the metrics_addr value; empty disables /metrics.
func (c *PolarConfig) GetMetricsAddr() string {
	if c.MetricsAddr == nil {
		return ""
	}
	return *c.MetricsAddr
}
