package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the config file without extension
	ConfigFileName = "ragcore"
	// ConfigFileExt is the config file extension
	ConfigFileExt = "yaml"
	// EnvPrefix prefixes environment overrides, e.g. RAGCORE_SEARCH_TOP_K.
	EnvPrefix = "RAGCORE"
	// DefaultDataDirName is the data directory created under the working
	// directory when none is given.
	DefaultDataDirName = ".ragcore"
)

// Loader handles configuration loading and saving for one data directory.
type Loader struct {
	dataDir    string
	configFile string
	v          *viper.Viper
}

// NewLoader creates a new config loader for the given data directory
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir: dataDir,
		v:       viper.New(),
	}
}

// DataDir returns the directory holding the config file and the database.
func (l *Loader) DataDir() string {
	return l.dataDir
}

// WithConfigFile reads and writes path instead of the config file in the
// data directory.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// ConfigPath returns the full path to the config file
func (l *Loader) ConfigPath() string {
	if l.configFile != "" {
		return l.configFile
	}
	return filepath.Join(l.dataDir, ConfigFileName+"."+ConfigFileExt)
}

// Exists returns true if a config file exists at the expected location
func (l *Loader) Exists() bool {
	_, err := os.Stat(l.ConfigPath())
	return err == nil
}

// Load reads the configuration. Values missing from the file keep their
// defaults, and RAGCORE_* environment variables override both. A missing
// file is not an error.
func (l *Loader) Load() (*Config, error) {
	// Create a fresh viper instance for each load to avoid stale state
	l.v = viper.New()
	l.v.SetConfigType(ConfigFileExt)
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := setDefaults(l.v, Default()); err != nil {
		return nil, err
	}

	if l.Exists() {
		l.v.SetConfigFile(l.ConfigPath())
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key of cfg with viper so that AutomaticEnv can
// override keys the config file does not mention.
func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	walkKeys("", tree, func(key string, value any) {
		v.SetDefault(key, value)
	})
	return nil
}

func walkKeys(prefix string, tree map[string]any, fn func(key string, value any)) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			walkKeys(key, sub, fn)
			continue
		}
		fn(key, val)
	}
}

// Save writes the configuration to disk, creating the data directory if
// needed.
func (l *Loader) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(l.ConfigPath()), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(l.ConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Init writes a default config file into the data directory. It fails if
// one already exists.
func (l *Loader) Init() (*Config, error) {
	if l.Exists() {
		return nil, fmt.Errorf("config already exists at %s", l.ConfigPath())
	}

	cfg := Default()
	if err := l.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Set loads the config, applies one dotted-key override and returns the
// result without saving it. Validation is left to the caller.
func (l *Loader) Set(key string, value any) (*Config, error) {
	if _, err := l.Load(); err != nil {
		return nil, err
	}
	if !l.v.IsSet(key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	l.v.Set(key, value)

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", key, err)
	}
	return cfg, nil
}

// Get returns the effective value of a dotted key.
func (l *Loader) Get(key string) (any, error) {
	if _, err := l.Load(); err != nil {
		return nil, err
	}
	if !l.v.IsSet(key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	return l.v.Get(key), nil
}
