// Package config loads and validates the backtester's YAML configuration,
// with environment variable overrides for paths and credentials.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"osaka/internal/risk"
	"osaka/internal/strategy"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the osaka backtester.
type Config struct {
	Storage    Storage         `yaml:"storage"`
	Logging    Logging         `yaml:"logging"`
	Alpaca     Alpaca          `yaml:"alpaca"`
	Data       Data            `yaml:"data"`
	Simulation Simulation      `yaml:"simulation"`
	Risk       risk.Parameters `yaml:"risk"`
	Symbols    []SymbolConfig  `yaml:"symbols"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Data selects the bar data fed into a simulation.
type Data struct {
	// Source is "parquet", "csv", or "synthetic".
	Source string `yaml:"source"`
	Period string `yaml:"period"`
	// Size caps the number of bars used; 0 keeps everything.
	Size int `yaml:"size"`
	// Revert flips CSV files exported newest-first.
	Revert bool `yaml:"revert"`
}

// Simulation holds the portfolio-wide execution parameters.
type Simulation struct {
	InitialCash float64 `yaml:"initial_cash"`
	MakerFee    float64 `yaml:"maker_fee"`
	TakerFee    float64 `yaml:"taker_fee"`
}

// SymbolConfig configures one traded symbol: its strategy, parameters, and
// market microstructure.
type SymbolConfig struct {
	Name     string          `yaml:"name"`
	Ticksize float64         `yaml:"ticksize"`
	Strategy string          `yaml:"strategy"`
	Params   strategy.Params `yaml:"params"`
}

// UnmarshalYAML pre-fills the parameter set with defaults so a symbol block
// only needs to name the tunables it overrides.
func (s *SymbolConfig) UnmarshalYAML(value *yaml.Node) error {
	type raw SymbolConfig
	tmp := raw{Params: strategy.DefaultParams()}
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	*s = SymbolConfig(tmp)
	return nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a runnable baseline configuration.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/results.db",
		},
		Logging: Logging{Level: "info", Format: "json"},
		Data:    Data{Source: "parquet", Period: "1d"},
		Simulation: Simulation{
			InitialCash: 100000,
			MakerFee:    0.0002,
			TakerFee:    0.0005,
		},
		Risk: risk.DefaultParameters(),
	}
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fails fast on configuration that would make a run meaningless.
func (c *Config) Validate() error {
	if c.Simulation.InitialCash <= 0 {
		return fmt.Errorf("simulation.initial_cash must be positive, got %v", c.Simulation.InitialCash)
	}
	if c.Simulation.MakerFee < 0 || c.Simulation.TakerFee < 0 {
		return fmt.Errorf("fees must be non-negative")
	}
	if c.Risk.MaxLeverage <= 0 {
		return fmt.Errorf("risk.max_leverage must be positive, got %v", c.Risk.MaxLeverage)
	}
	if c.Risk.Aggressivity <= 0 || c.Risk.Aggressivity > 1 {
		return fmt.Errorf("risk.aggressivity must be in (0, 1], got %v", c.Risk.Aggressivity)
	}
	switch c.Data.Source {
	case "parquet", "csv", "synthetic":
	default:
		return fmt.Errorf("data.source must be parquet, csv, or synthetic, got %q", c.Data.Source)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol must be configured")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s.Name == "" {
			return fmt.Errorf("symbol with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate symbol %s", s.Name)
		}
		seen[s.Name] = true
		if s.Ticksize < 0 {
			return fmt.Errorf("symbol %s: ticksize must be non-negative, got %v", s.Name, s.Ticksize)
		}
		if s.Strategy == "" {
			return fmt.Errorf("symbol %s: no strategy configured", s.Name)
		}
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
