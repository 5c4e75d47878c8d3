package config

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Config holds all sekgs configuration.
type Config struct {
	DataDir   string          `yaml:"data_directory" validate:"required"`
	Relations RelationsConfig `yaml:"relations"`
	Decay     DecayConfig     `yaml:"decay"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
}

type RelationsConfig struct {
	TopK          int     `yaml:"top_k" validate:"gte=1"`
	MinSimilarity float64 `yaml:"min_similarity" validate:"gte=0,lte=1"`
	Metric        string  `yaml:"metric" validate:"oneof=jaccard overlap bigram"`
	Workers       int     `yaml:"workers" validate:"gte=0"` // 0 means GOMAXPROCS
}

type DecayConfig struct {
	StaleDays    int     `yaml:"stale_days" validate:"gte=0"`
	DecayPercent float64 `yaml:"decay_percent" validate:"gte=0,lte=100"`
}

type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // defaults to <data_directory>/sekgs.db
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

type ServerConfig struct {
	Bind string `yaml:"bind" validate:"required"`
	Port int    `yaml:"port" validate:"gte=1,lte=65535"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		DataDir: "data",
		Relations: RelationsConfig{
			TopK:          3,
			MinSimilarity: 0.05,
			Metric:        "jaccard",
		},
		Decay: DecayConfig{
			StaleDays:    180,
			DecayPercent: 20,
		},
		Ledger: LedgerConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
	}
}

// NodesDir is the directory holding one JSON record per node.
func (c *Config) NodesDir() string {
	return filepath.Join(c.DataDir, "nodes")
}

// GraphPath is the persisted graph structure.
func (c *Config) GraphPath() string {
	return filepath.Join(c.DataDir, "graph.json")
}

// LedgerPath returns the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return filepath.Join(c.DataDir, "sekgs.db")
}

// Workers resolves the similarity scan concurrency.
func (c *Config) Workers() int {
	if c.Relations.Workers > 0 {
		return c.Relations.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
