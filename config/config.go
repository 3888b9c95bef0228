// Package config loads and validates the bot configuration. Files may be
// YAML or JSON; venue credentials never live in the file and are read from
// the environment instead.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradebot/risk"
	"github.com/rustyeddy/tradebot/signal"
	"github.com/rustyeddy/tradebot/xapi"
)

// Timeframes maps the config timeframe label to the venue's period in
// minutes.
var Timeframes = map[string]int{
	"1m":  xapi.PeriodM1,
	"5m":  xapi.PeriodM5,
	"15m": xapi.PeriodM15,
	"30m": xapi.PeriodM30,
	"1h":  xapi.PeriodH1,
	"4h":  xapi.PeriodH4,
	"1d":  xapi.PeriodD1,
}

// Config represents the complete bot configuration.
type Config struct {
	Venue    VenueConfig    `json:"venue" yaml:"venue"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	LogLevel string         `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// VenueConfig contains connection parameters. UserID and Password are
// populated from the environment, not the file.
type VenueConfig struct {
	URL               string             `json:"url,omitempty" yaml:"url,omitempty"`
	ReconnectInterval string             `json:"reconnect_interval,omitempty" yaml:"reconnect_interval,omitempty"`
	PriceScales       map[string]float64 `json:"price_scales,omitempty" yaml:"price_scales,omitempty"`

	UserID   string `json:"-" yaml:"-"`
	Password string `json:"-" yaml:"-"`
}

// StrategyConfig contains the instrument and evaluation parameters.
type StrategyConfig struct {
	Symbol        string `json:"symbol" yaml:"symbol"`
	Timeframe     string `json:"timeframe" yaml:"timeframe"`
	Lookback      int    `json:"lookback" yaml:"lookback"`
	Ruleset       string `json:"ruleset,omitempty" yaml:"ruleset,omitempty"`
	CycleInterval string `json:"cycle_interval,omitempty" yaml:"cycle_interval,omitempty"`
}

// RiskConfig mirrors risk.Policy in file form.
type RiskConfig struct {
	RiskPercent   float64 `json:"risk_percent" yaml:"risk_percent"`
	MinVolume     float64 `json:"min_volume,omitempty" yaml:"min_volume,omitempty"`
	LevelRule     string  `json:"level_rule,omitempty" yaml:"level_rule,omitempty"`
	StopPips      float64 `json:"stop_pips,omitempty" yaml:"stop_pips,omitempty"`
	TargetPips    float64 `json:"target_pips,omitempty" yaml:"target_pips,omitempty"`
	ATRPeriod     int     `json:"atr_period,omitempty" yaml:"atr_period,omitempty"`
	StopATRMult   float64 `json:"stop_atr_mult,omitempty" yaml:"stop_atr_mult,omitempty"`
	TargetATRMult float64 `json:"target_atr_mult,omitempty" yaml:"target_atr_mult,omitempty"`
}

// ServerConfig contains the HTTP status surface parameters.
type ServerConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// StoreConfig contains state persistence parameters.
type StoreConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Default returns a runnable demo configuration.
func Default() *Config {
	return &Config{
		Venue: VenueConfig{
			URL:               xapi.DemoURL,
			ReconnectInterval: "60s",
			PriceScales:       map[string]float64{"US500": 10000},
		},
		Strategy: StrategyConfig{
			Symbol:        "EURUSD",
			Timeframe:     "15m",
			Lookback:      100,
			Ruleset:       string(signal.RulesetSMARSI),
			CycleInterval: "60s",
		},
		Risk: RiskConfig{
			RiskPercent: 0.01,
			MinVolume:   0.01,
			LevelRule:   string(risk.RuleFixed),
			StopPips:    100,
			TargetPips:  200,
		},
		Server:   ServerConfig{Addr: ":8080"},
		Store:    StoreConfig{Path: "tradebot.db"},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON), overlays
// credentials from the environment, and validates.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.loadCredentials()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadCredentials pulls venue credentials from the environment, after
// loading a .env file when one is present.
func (c *Config) loadCredentials() {
	_ = godotenv.Load()
	c.Venue.UserID = os.Getenv("XTB_USER_ID")
	c.Venue.Password = os.Getenv("XTB_PASSWORD")
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Strategy.Symbol == "" {
		return fmt.Errorf("strategy symbol is required")
	}
	if _, ok := Timeframes[c.Strategy.Timeframe]; !ok {
		return fmt.Errorf("unknown timeframe %q", c.Strategy.Timeframe)
	}
	if c.Strategy.Lookback < signal.MinBars {
		return fmt.Errorf("lookback must be at least %d, got %d", signal.MinBars, c.Strategy.Lookback)
	}
	if c.Risk.RiskPercent <= 0 || c.Risk.RiskPercent > 0.1 {
		return fmt.Errorf("risk_percent must be in (0, 0.1], got %v", c.Risk.RiskPercent)
	}
	if _, err := c.CycleInterval(); err != nil {
		return fmt.Errorf("cycle_interval: %w", err)
	}
	if _, err := c.ReconnectInterval(); err != nil {
		return fmt.Errorf("reconnect_interval: %w", err)
	}
	switch risk.LevelRule(c.Risk.LevelRule) {
	case risk.RuleFixed, risk.RuleATR, "":
	default:
		return fmt.Errorf("unknown level_rule %q", c.Risk.LevelRule)
	}
	if _, err := signal.NewEvaluator(signal.Ruleset(c.Strategy.Ruleset)); err != nil {
		return err
	}
	return nil
}

// Period returns the venue chart period in minutes.
func (c *Config) Period() int { return Timeframes[c.Strategy.Timeframe] }

// CycleInterval returns the parsed loop cadence, defaulting to one minute.
func (c *Config) CycleInterval() (time.Duration, error) {
	return parseDuration(c.Strategy.CycleInterval, time.Minute)
}

// ReconnectInterval returns the parsed liveness threshold.
func (c *Config) ReconnectInterval() (time.Duration, error) {
	return parseDuration(c.Venue.ReconnectInterval, time.Minute)
}

// Policy converts the risk section into a risk.Policy, filling unset
// fields from the policy defaults.
func (c *Config) Policy() risk.Policy {
	p := risk.Default()
	p.RiskPct = c.Risk.RiskPercent
	if c.Risk.MinVolume > 0 {
		p.MinVolume = c.Risk.MinVolume
	}
	if c.Risk.LevelRule != "" {
		p.Rule = risk.LevelRule(c.Risk.LevelRule)
	}
	if c.Risk.StopPips > 0 {
		p.StopPips = c.Risk.StopPips
	}
	if c.Risk.TargetPips > 0 {
		p.TargetPips = c.Risk.TargetPips
	}
	if c.Risk.ATRPeriod > 0 {
		p.ATRPeriod = c.Risk.ATRPeriod
	}
	if c.Risk.StopATRMult > 0 {
		p.StopATRMult = c.Risk.StopATRMult
	}
	if c.Risk.TargetATRMult > 0 {
		p.TargetATRMult = c.Risk.TargetATRMult
	}
	return p
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
