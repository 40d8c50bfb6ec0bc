package config

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root service configuration. Every field is optional;
// the Get* accessors fall back to built-in defaults for omitted fields.
type TuningConfig struct {
	// Tracker params
	MatchThreshold  *float64 `json:"match_threshold,omitempty"`   // pixels, exclusive
	MaxMissedFrames *int     `json:"max_missed_frames,omitempty"` // 0 disables eviction

	// Inference collaborators
	DetectorURL         *string  `json:"detector_url,omitempty"`
	ClassifierURL       *string  `json:"classifier_url,omitempty"`
	UpstreamTimeout     *string  `json:"upstream_timeout,omitempty"` // duration string like "10s"
	ClassifierInputSize *int     `json:"classifier_input_size,omitempty"`
	ClassNames          []string `json:"class_names,omitempty"`

	// HTTP surface
	MaxUploadBytes *int64 `json:"max_upload_bytes,omitempty"`
	FrameLogLimit  *int   `json:"frame_log_limit,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its built-in default.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	return &TuningConfig{
		MatchThreshold:      ptrFloat64(empty.GetMatchThreshold()),
		MaxMissedFrames:     ptrInt(empty.GetMaxMissedFrames()),
		DetectorURL:         ptrString(empty.GetDetectorURL()),
		ClassifierURL:       ptrString(empty.GetClassifierURL()),
		UpstreamTimeout:     ptrString(empty.GetUpstreamTimeout().String()),
		ClassifierInputSize: ptrInt(empty.GetClassifierInputSize()),
		ClassNames:          empty.GetClassNames(),
		MaxUploadBytes:      ptrInt64(empty.GetMaxUploadBytes()),
		FrameLogLimit:       ptrInt(empty.GetFrameLogLimit()),
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

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultConfigPath, // deeper packages
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
	if c.MatchThreshold != nil {
		if math.IsNaN(*c.MatchThreshold) || *c.MatchThreshold <= 0 {
			return fmt.Errorf("match_threshold must be positive, got %f", *c.MatchThreshold)
		}
	}

	if c.MaxMissedFrames != nil && *c.MaxMissedFrames < 0 {
		return fmt.Errorf("max_missed_frames must be non-negative, got %d", *c.MaxMissedFrames)
	}

	for name, raw := range map[string]*string{"detector_url": c.DetectorURL, "classifier_url": c.ClassifierURL} {
		if raw == nil || *raw == "" {
			continue
		}
		u, err := url.Parse(*raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid %s '%s': must be an absolute http(s) URL", name, *raw)
		}
	}

	if c.UpstreamTimeout != nil && *c.UpstreamTimeout != "" {
		if _, err := time.ParseDuration(*c.UpstreamTimeout); err != nil {
			return fmt.Errorf("invalid upstream_timeout '%s': %w", *c.UpstreamTimeout, err)
		}
	}

	if c.ClassifierInputSize != nil && *c.ClassifierInputSize <= 0 {
		return fmt.Errorf("classifier_input_size must be positive, got %d", *c.ClassifierInputSize)
	}

	if c.ClassNames != nil && len(c.ClassNames) == 0 {
		return fmt.Errorf("class_names must not be empty when set")
	}

	if c.MaxUploadBytes != nil && *c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", *c.MaxUploadBytes)
	}

	if c.FrameLogLimit != nil && *c.FrameLogLimit <= 0 {
		return fmt.Errorf("frame_log_limit must be positive, got %d", *c.FrameLogLimit)
	}

	return nil
}

// GetMatchThreshold returns the match_threshold value or the default.
func (c *TuningConfig) GetMatchThreshold() float64 {
	if c.MatchThreshold == nil {
		return 300.0
	}
	return *c.MatchThreshold
}

// GetMaxMissedFrames returns the max_missed_frames value or the default.
func (c *TuningConfig) GetMaxMissedFrames() int {
	if c.MaxMissedFrames == nil {
		return 0 // default: identities are kept until reset
	}
	return *c.MaxMissedFrames
}

// GetDetectorURL returns the detector_url value or the default.
func (c *TuningConfig) GetDetectorURL() string {
	if c.DetectorURL == nil {
		return ""
	}
	return *c.DetectorURL
}

// GetClassifierURL returns the classifier_url value or the default.
func (c *TuningConfig) GetClassifierURL() string {
	if c.ClassifierURL == nil {
		return ""
	}
	return *c.ClassifierURL
}

// GetUpstreamTimeout parses and returns the UpstreamTimeout as a time.Duration.
func (c *TuningConfig) GetUpstreamTimeout() time.Duration {
	if c.UpstreamTimeout == nil || *c.UpstreamTimeout == "" {
		return 10 * time.Second // default
	}
	d, err := time.ParseDuration(*c.UpstreamTimeout)
	if err != nil {
		return 10 * time.Second // default on parse error
	}
	return d
}

// GetClassifierInputSize returns the classifier_input_size value or the default.
func (c *TuningConfig) GetClassifierInputSize() int {
	if c.ClassifierInputSize == nil {
		return 224
	}
	return *c.ClassifierInputSize
}

// GetClassNames returns a copy of class_names or the default label table.
func (c *TuningConfig) GetClassNames() []string {
	if len(c.ClassNames) == 0 {
		return []string{"Lying", "Standing"}
	}
	out := make([]string, len(c.ClassNames))
	copy(out, c.ClassNames)
	return out
}

// GetMaxUploadBytes returns the max_upload_bytes value or the default.
func (c *TuningConfig) GetMaxUploadBytes() int64 {
	if c.MaxUploadBytes == nil {
		return 32 << 20 // 32 MiB
	}
	return *c.MaxUploadBytes
}

// GetFrameLogLimit returns the frame_log_limit value or the default.
func (c *TuningConfig) GetFrameLogLimit() int {
	if c.FrameLogLimit == nil {
		return 100
	}
	return *c.FrameLogLimit
}
