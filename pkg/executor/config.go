package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"papertrade-api/pkg/confkit"
)

// Config controls runtime behaviour for the decision executor.
type Config struct {
	Model           string        `yaml:"model"`
	Temperature     *float64      `yaml:"temperature,omitempty"`
	MinConfidence   float64       `yaml:"min_confidence"`
	MaxSeriesPoints int           `yaml:"max_series_points"`
	TemplatePath    string        `yaml:"template_path"`
	DecisionTimeout time.Duration `yaml:"-"`

	DecisionTimeoutRaw string `yaml:"decision_timeout"`
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open executor config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read executor config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal executor config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	cfg.expandFields()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns a config with defaults applied, suitable for embedding.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	_ = cfg.parseDurations()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.DecisionTimeoutRaw) == "" {
		c.DecisionTimeoutRaw = "60s"
	}
	if c.MaxSeriesPoints <= 0 {
		c.MaxSeriesPoints = 24
	}
}

func (c *Config) parseDurations() error {
	timeout, err := time.ParseDuration(c.DecisionTimeoutRaw)
	if err != nil {
		return fmt.Errorf("executor config: invalid decision_timeout %q: %w", c.DecisionTimeoutRaw, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("executor config: decision_timeout must be positive, got %s", timeout)
	}
	c.DecisionTimeout = timeout
	return nil
}

func (c *Config) expandFields() {
	c.Model = strings.TrimSpace(os.ExpandEnv(c.Model))
	c.TemplatePath = strings.TrimSpace(os.ExpandEnv(c.TemplatePath))
}

// Validate ensures configuration sanity.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.New("executor config: min_confidence must be between 0 and 1")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return errors.New("executor config: temperature must be between 0 and 2")
	}
	return nil
}
