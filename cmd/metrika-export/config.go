package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config is the file-level configuration. CLI flags override it.
type Config struct {
	API     APIConfig     `toml:"api"`
	Extract ExtractConfig `toml:"extract"`
	Redis   RedisConfig   `toml:"redis"`
	Upload  UploadConfig  `toml:"upload"`
	Log     LogConfig     `toml:"log"`
}

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	PaceIntervalMS int    `toml:"pace_interval_ms"`
}

type ExtractConfig struct {
	Split          bool   `toml:"split"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	BatchSize      int    `toml:"batch_size"`
	MaxRows        int    `toml:"max_rows"`
	Format         string `toml:"format"`
	Lang           string `toml:"lang"`
}

type RedisConfig struct {
	Addr            string `toml:"addr"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

type UploadConfig struct {
	Endpoint       string `toml:"endpoint"`
	ThresholdBytes int    `toml:"threshold_bytes"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// DefaultConfig returns the embedded example configuration.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadConfig reads and parses a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}
