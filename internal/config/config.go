// Package config defines the daemon configuration: where state lives, the
// timing knobs for saving and restoring, and the identity rules. All values
// have working defaults; a missing config file is not an error.
package config

import (
	"fmt"
	"strings"
)

// ValidationError reports an invalid config value with its YAML path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Config is the daemon configuration schema.
type Config struct {
	// StatePath overrides where saved window sizes are stored.
	// Default: $XDG_DATA_HOME/sizekeep/windows.json.
	StatePath string `yaml:"state_path,omitempty"`

	// LogLevel controls daemon verbosity: debug, info, warning, error.
	LogLevel string `yaml:"log_level"`

	// MinSize is the floor below which window dimensions are never saved.
	MinSize int `yaml:"min_size"`

	// SaveDebounceMs is how long the store waits after the last change
	// before writing to disk.
	SaveDebounceMs int `yaml:"save_debounce_ms"`

	// SizeDebounceMs is how long a window must hold a size before that
	// size is recorded.
	SizeDebounceMs int `yaml:"size_debounce_ms"`

	// RestoreFallbackDelayMs is how long to wait for the first-frame
	// signal before falling back to timed restore attempts.
	RestoreFallbackDelayMs int `yaml:"restore_fallback_delay_ms"`
	// RestoreRetryDelayMs spaces the timed restore attempts.
	RestoreRetryDelayMs int `yaml:"restore_retry_delay_ms"`
	// RestoreMaxAttempts bounds the timed restore attempts.
	RestoreMaxAttempts int `yaml:"restore_max_attempts"`

	// IdentifyIntervalMs spaces identity re-checks for windows whose
	// application is not known yet; IdentifyMaxAttempts bounds them.
	IdentifyIntervalMs  int `yaml:"identify_interval_ms"`
	IdentifyMaxAttempts int `yaml:"identify_max_attempts"`

	// ProvisionalWaitMs and ProvisionalMaxAttempts bound the wait for a
	// provisional identity to be refined into a specific one.
	ProvisionalWaitMs      int `yaml:"provisional_wait_ms"`
	ProvisionalMaxAttempts int `yaml:"provisional_max_attempts"`

	// TolerancePx is the slack within which a window already counts as
	// being at its saved geometry.
	TolerancePx int `yaml:"tolerance_px"`

	// ReconcileIntervalSeconds spaces sweeps for windows that vanished
	// without a teardown event. Explicit 0 disables the sweep; unset
	// means the default.
	ReconcileIntervalSeconds *int `yaml:"reconcile_interval_seconds,omitempty"`

	// TransientIDPatterns are identity prefixes that mean "no application
	// associated yet" and are never used as record keys.
	TransientIDPatterns []string `yaml:"transient_id_patterns"`

	// ProvisionalIDs are identities known to be replaced by a more
	// specific one shortly after a window appears.
	ProvisionalIDs []string `yaml:"provisional_ids"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:                 "info",
		MinSize:                  50,
		SaveDebounceMs:           1000,
		SizeDebounceMs:           500,
		RestoreFallbackDelayMs:   50,
		RestoreRetryDelayMs:      50,
		RestoreMaxAttempts:       5,
		IdentifyIntervalMs:       100,
		IdentifyMaxAttempts:      50,
		ProvisionalWaitMs:        100,
		ProvisionalMaxAttempts:   5,
		TolerancePx:              5,
		ReconcileIntervalSeconds: intPtr(30),
		TransientIDPatterns:      []string{"window:"},
		ProvisionalIDs:           []string{"org.gnome.nautilus"},
	}
}

func intPtr(v int) *int { return &v }

// ReconcileInterval returns the sweep interval in seconds, applying the
// default when the config never mentions it.
func (c *Config) ReconcileInterval() int {
	if c.ReconcileIntervalSeconds == nil {
		return *DefaultConfig().ReconcileIntervalSeconds
	}
	return *c.ReconcileIntervalSeconds
}

// Validate checks value ranges. Zero-valued knobs were already replaced by
// defaults during load, so anything out of range here was set deliberately.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.MinSize < 1 {
		return &ValidationError{Path: "min_size", Err: fmt.Errorf("min_size must be >= 1")}
	}
	if c.SaveDebounceMs < 1 {
		return &ValidationError{Path: "save_debounce_ms", Err: fmt.Errorf("save_debounce_ms must be >= 1")}
	}
	if c.SizeDebounceMs < 1 {
		return &ValidationError{Path: "size_debounce_ms", Err: fmt.Errorf("size_debounce_ms must be >= 1")}
	}
	if c.RestoreFallbackDelayMs < 1 {
		return &ValidationError{Path: "restore_fallback_delay_ms", Err: fmt.Errorf("restore_fallback_delay_ms must be >= 1")}
	}
	if c.RestoreRetryDelayMs < 1 {
		return &ValidationError{Path: "restore_retry_delay_ms", Err: fmt.Errorf("restore_retry_delay_ms must be >= 1")}
	}
	if c.RestoreMaxAttempts < 1 {
		return &ValidationError{Path: "restore_max_attempts", Err: fmt.Errorf("restore_max_attempts must be >= 1")}
	}
	if c.IdentifyIntervalMs < 1 {
		return &ValidationError{Path: "identify_interval_ms", Err: fmt.Errorf("identify_interval_ms must be >= 1")}
	}
	if c.IdentifyMaxAttempts < 1 {
		return &ValidationError{Path: "identify_max_attempts", Err: fmt.Errorf("identify_max_attempts must be >= 1")}
	}
	if c.ProvisionalWaitMs < 1 {
		return &ValidationError{Path: "provisional_wait_ms", Err: fmt.Errorf("provisional_wait_ms must be >= 1")}
	}
	if c.ProvisionalMaxAttempts < 1 {
		return &ValidationError{Path: "provisional_max_attempts", Err: fmt.Errorf("provisional_max_attempts must be >= 1")}
	}
	if c.TolerancePx < 0 {
		return &ValidationError{Path: "tolerance_px", Err: fmt.Errorf("tolerance_px must be >= 0")}
	}
	if c.ReconcileIntervalSeconds != nil && *c.ReconcileIntervalSeconds < 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("reconcile_interval_seconds must be >= 0")}
	}
	for i, p := range c.TransientIDPatterns {
		if strings.TrimSpace(p) == "" {
			return &ValidationError{Path: fmt.Sprintf("transient_id_patterns[%d]", i), Err: fmt.Errorf("pattern must not be empty")}
		}
	}
	for i, id := range c.ProvisionalIDs {
		if strings.TrimSpace(id) == "" {
			return &ValidationError{Path: fmt.Sprintf("provisional_ids[%d]", i), Err: fmt.Errorf("identity must not be empty")}
		}
	}
	return nil
}

// applyDefaults fills zero values with the defaults, so a sparse config file
// only has to name what it changes.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.MinSize == 0 {
		c.MinSize = def.MinSize
	}
	if c.SaveDebounceMs == 0 {
		c.SaveDebounceMs = def.SaveDebounceMs
	}
	if c.SizeDebounceMs == 0 {
		c.SizeDebounceMs = def.SizeDebounceMs
	}
	if c.RestoreFallbackDelayMs == 0 {
		c.RestoreFallbackDelayMs = def.RestoreFallbackDelayMs
	}
	if c.RestoreRetryDelayMs == 0 {
		c.RestoreRetryDelayMs = def.RestoreRetryDelayMs
	}
	if c.RestoreMaxAttempts == 0 {
		c.RestoreMaxAttempts = def.RestoreMaxAttempts
	}
	if c.IdentifyIntervalMs == 0 {
		c.IdentifyIntervalMs = def.IdentifyIntervalMs
	}
	if c.IdentifyMaxAttempts == 0 {
		c.IdentifyMaxAttempts = def.IdentifyMaxAttempts
	}
	if c.ProvisionalWaitMs == 0 {
		c.ProvisionalWaitMs = def.ProvisionalWaitMs
	}
	if c.ProvisionalMaxAttempts == 0 {
		c.ProvisionalMaxAttempts = def.ProvisionalMaxAttempts
	}
	if c.TolerancePx == 0 {
		c.TolerancePx = def.TolerancePx
	}
	if c.TransientIDPatterns == nil {
		c.TransientIDPatterns = def.TransientIDPatterns
	}
	if c.ProvisionalIDs == nil {
		c.ProvisionalIDs = def.ProvisionalIDs
	}
}
