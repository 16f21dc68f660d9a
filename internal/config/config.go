// Package config reads the optional fertree TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/jsdoublel/fertree/internal/treeio"
)

const appName = "fertree"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Format   string `toml:"format"`
	LogLevel string `toml:"log_level"`
	Procs    int    `toml:"procs"`
	Writer   Writer `toml:"writer"`
}

type Writer struct {
	SciThreshold float64 `toml:"sci_threshold"`
}

func Default() Config {
	return Config{
		Format:   treeio.Newick.String(),
		LogLevel: log.InfoLevel.String(),
		Writer:   Writer{SciThreshold: treeio.DefaultSciThreshold},
	}
}

// Load reads the config at path. An empty path falls back to the default
// location, which may be absent.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return cfg, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("error reading config %s, %w", path, err)
	}
	if err := Parse(string(data), &cfg); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	log.Debug("loaded config", "path", path)
	return cfg, nil
}

// Parse decodes data over the values already in cfg and validates the result.
func Parse(data string, cfg *Config) error {
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return fmt.Errorf("%w, %s", ErrInvalidConfig, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w, unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	return cfg.validate()
}

func (cfg Config) validate() error {
	if _, err := cfg.InputFormat(); err != nil {
		return err
	}
	if _, err := cfg.Level(); err != nil {
		return err
	}
	if cfg.Procs < 0 {
		return fmt.Errorf("%w, procs must not be negative (%d)", ErrInvalidConfig, cfg.Procs)
	}
	if cfg.Writer.SciThreshold < 0 {
		return fmt.Errorf("%w, sci_threshold must not be negative (%g)", ErrInvalidConfig, cfg.Writer.SciThreshold)
	}
	return nil
}

func (cfg Config) InputFormat() (treeio.Format, error) {
	var f treeio.Format
	if err := f.Set(cfg.Format); err != nil {
		return f, fmt.Errorf("%w, %s", ErrInvalidConfig, err)
	}
	return f, nil
}

func (cfg Config) Level() (log.Level, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return level, fmt.Errorf("%w, %s", ErrInvalidConfig, err)
	}
	return level, nil
}

// DefaultPath follows the XDG convention (~/.config/fertree/config.toml).
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
