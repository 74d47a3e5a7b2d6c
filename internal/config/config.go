package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Parser struct {
		SuppressErrors     bool `yaml:"suppress_errors" toml:"suppress_errors"`
		ValidateIntrinsics bool `yaml:"validate_intrinsics" toml:"validate_intrinsics"`
		MaxExpansionDepth  int  `yaml:"max_expansion_depth" toml:"max_expansion_depth"`
	} `yaml:"parser" toml:"parser"`
	Catalog struct {
		Path string `yaml:"path" toml:"path"`
	} `yaml:"catalog" toml:"catalog"`
	Watch struct {
		Debounce Duration `yaml:"debounce" toml:"debounce"`
	} `yaml:"watch" toml:"watch"`
	Check struct {
		Concurrency int `yaml:"concurrency" toml:"concurrency"`
	} `yaml:"check" toml:"check"`
	Log struct {
		Verbosity int `yaml:"verbosity" toml:"verbosity"`
	} `yaml:"log" toml:"log"`
}

// Duration is a time.Duration written as "250ms" in config files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Parser.ValidateIntrinsics = true
	cfg.Catalog.Path = "natvis.db"
	cfg.Watch.Debounce = Duration{200 * time.Millisecond}
	cfg.Check.Concurrency = 4
	return &cfg
}

// LoadConfig reads path over the defaults. YAML is assumed unless the file
// ends in .toml. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load config file
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		case strings.EqualFold(filepath.Ext(path), ".toml"):
			if _, err := toml.Decode(string(file), cfg); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if v := os.Getenv("NATVIS_SUPPRESS_ERRORS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid NATVIS_SUPPRESS_ERRORS: %w", err)
		}
		cfg.Parser.SuppressErrors = b
	}
	if v := os.Getenv("NATVIS_CATALOG"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("NATVIS_VERBOSITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid NATVIS_VERBOSITY: %w", err)
		}
		cfg.Log.Verbosity = n
	}

	return cfg, nil
}
