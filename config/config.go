package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DataDir     string    `toml:"DataDir"`
	NetworkName string    `toml:"NetworkName"`
	Rent        Rent      `toml:"rent"`
	Log         Log       `toml:"log"`
	Telemetry   Telemetry `toml:"telemetry"`
	Gateway     Gateway   `toml:"gateway"`
}

// Load loads the configuration from the given path, writing the defaults there
// first when the file does not exist yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "subledger-local"
	}
	if cfg.Gateway.Tokens == nil {
		cfg.Gateway.Tokens = map[string]TokenKeys{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration of a fresh local ledger.
func Default() *Config {
	return &Config{
		DataDir:     "./subledger-data",
		NetworkName: "subledger-local",
		Rent: Rent{
			LamportsPerByteYear: 3480,
			ExemptionYears:      2,
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Telemetry: Telemetry{
			ServiceName: "subledger",
			Endpoint:    "localhost:4318",
			Insecure:    true,
		},
		Gateway: Gateway{
			RequestsPerSecond: 20,
			Burst:             40,
			MinPlanPriceSOL:   "0.005",
			MaxRetries:        3,
			Tokens:            map[string]TokenKeys{},
		},
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
