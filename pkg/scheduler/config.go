package scheduler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"papertrade-api/pkg/confkit"
	"papertrade-api/pkg/risk"
)

const (
	defaultTickInterval    = "1s"
	defaultAnalyticsEveryN = 6
	defaultInitialBalance  = 10000
)

// Config defines the scheduler configuration schema.
type Config struct {
	// TickInterval is the poll cadence of the manager loop; agents wake on
	// their own intervals, the tick only bounds scheduling latency.
	TickInterval    time.Duration `yaml:"-"`
	AnalyticsEveryN int           `yaml:"analytics_every_n"`
	JournalDir      string        `yaml:"journal_dir"`
	Agents          []AgentConfig `yaml:"agents"`

	TickIntervalRaw string `yaml:"tick_interval"`
}

// AgentConfig declares a single paper-trading agent.
type AgentConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Pair    string `yaml:"pair"`
	Venue   string `yaml:"venue"`
	Persona string `yaml:"persona"`

	Interval       Interval `yaml:"-"`
	InitialBalance float64  `yaml:"initial_balance"`
	// SlippagePct is a percentage per leg, e.g. 0.1 for 0.1%.
	SlippagePct    float64 `yaml:"slippage_pct"`
	MarketProvider string  `yaml:"market_provider"`
	AutoStart      bool    `yaml:"auto_start"`

	Risk risk.Config `yaml:"risk"`

	IntervalRaw string `yaml:"interval"`
}

// LoadConfig reads scheduler configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scheduler config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an arbitrary reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scheduler config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal scheduler config: %w", err)
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

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.TickIntervalRaw) == "" {
		c.TickIntervalRaw = defaultTickInterval
	}
	if c.AnalyticsEveryN <= 0 {
		c.AnalyticsEveryN = defaultAnalyticsEveryN
	}
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.InitialBalance <= 0 {
			a.InitialBalance = defaultInitialBalance
		}
		a.Interval = NormalizeInterval(a.IntervalRaw)
		a.Risk.ApplyDefaults()
	}
}

func (c *Config) parseDurations() error {
	d, err := time.ParseDuration(strings.TrimSpace(c.TickIntervalRaw))
	if err != nil {
		return fmt.Errorf("scheduler config: parse tick_interval %q: %w", c.TickIntervalRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("scheduler config: tick_interval must be positive, got %q", c.TickIntervalRaw)
	}
	c.TickInterval = d
	return nil
}

func (c *Config) expandFields() {
	c.JournalDir = strings.TrimSpace(os.ExpandEnv(c.JournalDir))
	for i := range c.Agents {
		a := &c.Agents[i]
		a.ID = strings.TrimSpace(a.ID)
		a.Name = strings.TrimSpace(a.Name)
		a.Pair = strings.ToUpper(strings.TrimSpace(os.ExpandEnv(a.Pair)))
		a.Venue = strings.TrimSpace(a.Venue)
		a.Persona = strings.TrimSpace(a.Persona)
		a.MarketProvider = strings.TrimSpace(a.MarketProvider)
	}
}

// Validate ensures configuration sanity.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return errors.New("scheduler config: at least one agent must be defined")
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.ID == "" {
			return fmt.Errorf("scheduler config: agents[%d].id is required", i)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("scheduler config: duplicate agent id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
		if a.Pair == "" {
			return fmt.Errorf("scheduler config: agents[%d].pair is required", i)
		}
		if a.SlippagePct < 0 || a.SlippagePct >= 100 {
			return fmt.Errorf("scheduler config: agents[%d].slippage_pct must be in [0,100), got %.2f", i, a.SlippagePct)
		}
		if err := a.Risk.Validate(); err != nil {
			return fmt.Errorf("scheduler config: agents[%d]: %w", i, err)
		}
	}
	return nil
}

// AgentIDs returns declared agent IDs in stable order.
func (c *Config) AgentIDs() []string {
	ids := make([]string, 0, len(c.Agents))
	for i := range c.Agents {
		ids = append(ids, c.Agents[i].ID)
	}
	sort.Strings(ids)
	return ids
}

// SlippageFraction converts the configured percentage into the fraction the
// ledger engine expects, e.g. slippage_pct 0.1 yields 0.001.
func (a AgentConfig) SlippageFraction() float64 {
	return a.SlippagePct / 100
}

// AgentByID finds an agent declaration by ID.
func (c *Config) AgentByID(id string) (AgentConfig, bool) {
	for i := range c.Agents {
		if c.Agents[i].ID == id {
			return c.Agents[i], true
		}
	}
	return AgentConfig{}, false
}
