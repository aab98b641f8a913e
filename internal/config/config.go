// Package config loads and serves loop configuration. A Config snapshot is
// read once at thread-creation time; changing the live configuration never
// affects threads already in flight.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultProvider      = "anthropic"
	DefaultMaxIterations = 5
	DefaultMaxTokens     = 2048
	DefaultTemperature   = 0.2
	DefaultRetryAttempts = 3
	DefaultRetryBase     = Duration(500 * time.Millisecond)
)

// Duration wraps time.Duration so config files can use readable forms like
// "500ms" or "2s". A bare integer is taken as nanoseconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is one immutable configuration snapshot.
type Config struct {
	Provider      string        `yaml:"provider"`
	ModelID       string        `yaml:"model_id"`
	MaxIterations int           `yaml:"max_iterations"`
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   float64       `yaml:"temperature"`
	Domain        string        `yaml:"domain"`
	Region        string        `yaml:"region"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBase     Duration      `yaml:"retry_base"`

	// Guardrail identifies the automated-reasoning guardrail used for
	// validation. Both fields are required for live validation.
	GuardrailID      string `yaml:"guardrail_id"`
	GuardrailVersion string `yaml:"guardrail_version"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:         DefaultProvider,
		MaxIterations:    DefaultMaxIterations,
		MaxTokens:        DefaultMaxTokens,
		Temperature:      DefaultTemperature,
		RetryAttempts:    DefaultRetryAttempts,
		RetryBase:        DefaultRetryBase,
		GuardrailVersion: "DRAFT",
	}
}

// Load reads path (YAML) over the defaults, then applies GUARDLOOP_*
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays GUARDLOOP_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GUARDLOOP_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("GUARDLOOP_MODEL_ID"); v != "" {
		cfg.ModelID = v
	}
	if v := os.Getenv("GUARDLOOP_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxIterations = n
		}
	}
	if v := os.Getenv("GUARDLOOP_DOMAIN"); v != "" {
		cfg.Domain = v
	}
	if v := os.Getenv("GUARDLOOP_GUARDRAIL_ID"); v != "" {
		cfg.GuardrailID = v
	}
	if v := os.Getenv("GUARDLOOP_GUARDRAIL_VERSION"); v != "" {
		cfg.GuardrailVersion = v
	}
	if v := os.Getenv("GUARDLOOP_REGION"); v != "" {
		cfg.Region = v
	}
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("config: max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("config: temperature %v out of range [0, 2]", c.Temperature)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("config: retry_attempts must be at least 1, got %d", c.RetryAttempts)
	}
	return nil
}

// Manager serves the current configuration snapshot. It exists so the
// processor and CLI read config through one injected dependency instead of
// re-reading files.
type Manager struct {
	mu  sync.RWMutex
	cfg Config
}

// NewManager wraps an initial snapshot.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Current returns the current snapshot by value.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Apply replaces the current snapshot. In-flight threads keep the values
// copied at their creation.
func (m *Manager) Apply(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}
