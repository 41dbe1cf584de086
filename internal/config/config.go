package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional migrate configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults. A nil field means the
// file did not set it.
type DefaultsConfig struct {
	Hash    *string `toml:"hash"`
	Workers *int    `toml:"workers"`
	Copier  *string `toml:"copier"`
	CopyCmd *string `toml:"copy_cmd"`
	LogDir  *string `toml:"log_dir"`
	BWLimit *string `toml:"bwlimit"`
	Resume  *bool   `toml:"resume"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "migrate", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path. Keys the file sets that
// Config does not know are an error, so typos are not silently ignored.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
	}
	if w := cfg.Defaults.Workers; w != nil && *w < 1 {
		return Config{}, fmt.Errorf("config %s: workers must be at least 1", path)
	}
	if b := cfg.Defaults.BWLimit; b != nil {
		if _, err := ParseSize(*b); err != nil {
			return Config{}, fmt.Errorf("config %s: bwlimit: %w", path, err)
		}
	}
	return cfg, nil
}
