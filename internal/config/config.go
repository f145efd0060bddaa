package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/tabfy/pkg/catalog"
)

// FileConfig is the on-disk configuration, in YAML or TOML.
type FileConfig struct {
	Delimiter      string               `yaml:"delimiter" toml:"delimiter"`
	Interpreter    InterpreterConfig    `yaml:"interpreter" toml:"interpreter"`
	Timeout        string               `yaml:"timeout" toml:"timeout"` // Go duration
	MaxOutputBytes int64                `yaml:"max_output_bytes" toml:"max_output_bytes"`
	Mode           string               `yaml:"mode" toml:"mode"` // record | per-key
	Strict         bool                 `yaml:"strict" toml:"strict"`
	Theme          string               `yaml:"theme" toml:"theme"`
	Format         string               `yaml:"format" toml:"format"`
	Debug          bool                 `yaml:"debug" toml:"debug"`
	Schemas        []catalog.Definition `yaml:"schemas" toml:"schemas"`
}

// InterpreterConfig describes the nested pipeline interpreter.
type InterpreterConfig struct {
	Command   string   `yaml:"command" toml:"command"`
	Args      []string `yaml:"args" toml:"args"`
	Serialize string   `yaml:"serialize" toml:"serialize"`
}

// File names searched for, in order.
var (
	localNames = []string{".tabfy.yaml", ".tabfy.yml", ".tabfy.toml"}
	userNames  = []string{"config.yaml", "config.yml", "config.toml"}
)

// Load reads the config file at path. An empty path searches the usual
// locations; finding nothing there is not an error and yields an empty
// config with an empty path.
func Load(path string) (*FileConfig, string, error) {
	if path == "" {
		path = findConfigPath()
		if path == "" {
			return &FileConfig{}, "", nil
		}
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFrom decodes a single file, choosing TOML or YAML by extension.
func LoadFrom(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 - user-selected config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse config %s: unknown key %q", path, undecoded[0].String())
		}
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// findConfigPath checks the working directory first, then the user config
// directory (honoring XDG_CONFIG_HOME).
func findConfigPath() string {
	for _, name := range localNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}

	configHome, err := os.UserConfigDir()
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	for _, name := range userNames {
		p := filepath.Join(configHome, "tabfy", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
