package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the optional config file looked up inside the data directory.
const FileName = "sekgs.yaml"

var validate = validator.New()

// Load builds the configuration from, lowest priority first: defaults, the
// YAML file, a .env file in the working directory, process environment, then
// dataDir when non-empty. An explicit path must exist; the implicit
// <data_directory>/sekgs.yaml may not, and is looked up in the data
// directory that will be in effect for the run.
func Load(path, dataDir string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		dir := dataDir
		if dir == "" {
			dir = cfg.DataDir
			if v := envFirst("SEKGS_DATA_DIR", "DATA_DIR"); v != "" {
				dir = v
			}
		}
		path = filepath.Join(dir, FileName)
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv honours the SEKGS_* variables and the bare DATA_DIR / RELATIONS_*
// names the pipeline scripts export.
func applyEnv(cfg *Config) error {
	if v := envFirst("SEKGS_DATA_DIR", "DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RELATIONS_TOP_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RELATIONS_TOP_K: %w", err)
		}
		cfg.Relations.TopK = n
	}
	if v := os.Getenv("RELATIONS_MIN_SIM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RELATIONS_MIN_SIM: %w", err)
		}
		cfg.Relations.MinSimilarity = f
	}
	if v := os.Getenv("STALE_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STALE_DAYS: %w", err)
		}
		cfg.Decay.StaleDays = n
	}
	if v := os.Getenv("DECAY_PERCENT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DECAY_PERCENT: %w", err)
		}
		cfg.Decay.DecayPercent = f
	}
	if v := os.Getenv("SEKGS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SEKGS_LEDGER"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEKGS_LEDGER: %w", err)
		}
		cfg.Ledger.Enabled = enabled
	}
	return nil
}

func envFirst(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (%v)", e.Namespace(), e.Tag(), e.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
