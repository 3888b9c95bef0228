package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebot/risk"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "bot.yaml", `
strategy:
  symbol: BITCOIN
  timeframe: 1h
  lookback: 120
risk:
  risk_percent: 0.02
  stop_pips: 50
venue:
  price_scales:
    US500: 10000
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BITCOIN", cfg.Strategy.Symbol)
	assert.Equal(t, 60, cfg.Period())
	assert.Equal(t, 120, cfg.Strategy.Lookback)
	assert.Equal(t, 0.02, cfg.Risk.RiskPercent)
	assert.Equal(t, 10000.0, cfg.Venue.PriceScales["US500"])
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "bot.json", `{
  "strategy": {"symbol": "EURUSD", "timeframe": "5m", "lookback": 60},
  "risk": {"risk_percent": 0.01}
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Period())
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("XTB_USER_ID", "12345")
	t.Setenv("XTB_PASSWORD", "hunter2")

	path := writeConfig(t, "bot.yaml", `
strategy: {symbol: EURUSD, timeframe: 15m, lookback: 100}
risk: {risk_percent: 0.01}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "12345", cfg.Venue.UserID)
	assert.Equal(t, "hunter2", cfg.Venue.Password)
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing symbol", func(c *Config) { c.Strategy.Symbol = "" }},
		{"unknown timeframe", func(c *Config) { c.Strategy.Timeframe = "7m" }},
		{"short lookback", func(c *Config) { c.Strategy.Lookback = 10 }},
		{"zero risk", func(c *Config) { c.Risk.RiskPercent = 0 }},
		{"excessive risk", func(c *Config) { c.Risk.RiskPercent = 0.5 }},
		{"bad cycle interval", func(c *Config) { c.Strategy.CycleInterval = "soon" }},
		{"unknown level rule", func(c *Config) { c.Risk.LevelRule = "psychic" }},
		{"unknown ruleset", func(c *Config) { c.Strategy.Ruleset = "astrology" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestIntervals(t *testing.T) {
	cfg := Default()
	cfg.Strategy.CycleInterval = "30s"
	cfg.Venue.ReconnectInterval = ""

	cycle, err := cfg.CycleInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cycle)

	reconnect, err := cfg.ReconnectInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, reconnect)
}

func TestPolicyOverlay(t *testing.T) {
	cfg := Default()
	cfg.Risk = RiskConfig{
		RiskPercent: 0.02,
		LevelRule:   string(risk.RuleATR),
		ATRPeriod:   10,
		StopATRMult: 2,
	}

	p := cfg.Policy()
	assert.Equal(t, 0.02, p.RiskPct)
	assert.Equal(t, risk.RuleATR, p.Rule)
	assert.Equal(t, 10, p.ATRPeriod)
	assert.Equal(t, 2.0, p.StopATRMult)
	// Unset fields keep policy defaults.
	assert.Equal(t, risk.Default().TargetPips, p.TargetPips)
	assert.Equal(t, risk.Default().MinVolume, p.MinVolume)
}

func TestSaveAndReload(t *testing.T) {
	cfg := Default()
	cfg.Strategy.Symbol = "BITCOIN"
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BITCOIN", got.Strategy.Symbol)
}
