package config

import (
	"os"
	"path/filepath"
	"testing"

	"osaka/internal/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
storage:
  data_dir: /tmp/osaka-data
  sqlite_path: /tmp/osaka.db
logging:
  level: debug
  format: text
data:
  source: csv
  period: 1d
  size: 500
  revert: true
simulation:
  initial_cash: 50000
  maker_fee: 0.0002
  taker_fee: 0.0005
risk:
  max_leverage: 2
  aggressivity: 0.25
symbols:
  - name: BTCUSDT
    ticksize: 0.1
    strategy: stoikov
    params:
      risk_aversion: 0.5
  - name: ETHUSDT
    ticksize: 0.01
    strategy: tokyo
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/osaka-data" {
		t.Errorf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Data.Source != "csv" || cfg.Data.Size != 500 || !cfg.Data.Revert {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.Simulation.InitialCash != 50000 {
		t.Errorf("initial cash = %v", cfg.Simulation.InitialCash)
	}
	if cfg.Risk.MaxLeverage != 2 {
		t.Errorf("max leverage = %v", cfg.Risk.MaxLeverage)
	}
	// Unspecified risk fields keep their defaults.
	if cfg.Risk.MinOrderValueUSD != 10 {
		t.Errorf("min order value = %v, want the default 10", cfg.Risk.MinOrderValueUSD)
	}

	if len(cfg.Symbols) != 2 {
		t.Fatalf("got %d symbols, want 2", len(cfg.Symbols))
	}
	btc := cfg.Symbols[0]
	if btc.Name != "BTCUSDT" || btc.Strategy != "stoikov" || btc.Ticksize != 0.1 {
		t.Errorf("btc = %+v", btc)
	}
	// One override, everything else defaulted.
	if btc.Params.RiskAversion != 0.5 {
		t.Errorf("risk aversion = %v, want the 0.5 override", btc.Params.RiskAversion)
	}
	if want := strategy.DefaultParams().WindowVolatility; btc.Params.WindowVolatility != want {
		t.Errorf("window volatility = %v, want the default %v", btc.Params.WindowVolatility, want)
	}
	if want := strategy.DefaultParams(); cfg.Symbols[1].Params != want {
		t.Errorf("eth params = %+v, want pure defaults", cfg.Symbols[1].Params)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/override/data")
	t.Setenv("APCA_API_KEY_ID", "key-from-env")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DataDir != "/override/data" {
		t.Errorf("data dir = %q, want env override", cfg.Storage.DataDir)
	}
	if cfg.Alpaca.APIKey != "key-from-env" {
		t.Errorf("api key = %q, want env override", cfg.Alpaca.APIKey)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q, want env override", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Symbols = []SymbolConfig{{Name: "BTCUSDT", Ticksize: 0.1, Strategy: "stoikov"}}
		return cfg
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("baseline should validate: %v", err)
	}

	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cash", func(c *Config) { c.Simulation.InitialCash = 0 }},
		{"negative fee", func(c *Config) { c.Simulation.MakerFee = -1 }},
		{"zero leverage", func(c *Config) { c.Risk.MaxLeverage = 0 }},
		{"aggressivity above one", func(c *Config) { c.Risk.Aggressivity = 1.5 }},
		{"bad source", func(c *Config) { c.Data.Source = "ftp" }},
		{"no symbols", func(c *Config) { c.Symbols = nil }},
		{"unnamed symbol", func(c *Config) { c.Symbols[0].Name = "" }},
		{"negative ticksize", func(c *Config) { c.Symbols[0].Ticksize = -1 }},
		{"no strategy", func(c *Config) { c.Symbols[0].Strategy = "" }},
		{"duplicate symbol", func(c *Config) { c.Symbols = append(c.Symbols, c.Symbols[0]) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
