package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pkgpush/pkgpush"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for pkgpush.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	History  HistoryConfig  `mapstructure:"history"`
	Log      LogConfig      `mapstructure:"log"`
}

// RegistryConfig holds the registry endpoint and credentials. Key and
// Secret stay empty until the user configures them; commands that sign
// requests reject missing credentials before any network use.
type RegistryConfig struct {
	URL    string `mapstructure:"url" validate:"required,url"`
	Key    string `mapstructure:"key"`
	Secret string `mapstructure:"secret"`
}

// HistoryConfig holds the local push-history settings.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// Credentials returns the registry credentials from the config.
func (c *Config) Credentials() pkgpush.Credentials {
	return pkgpush.Credentials{Key: c.Registry.Key, Secret: c.Registry.Secret}
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"registry":   "registry.url",
	"key":        "registry.key",
	"secret":     "registry.secret",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("registry.url", pkgpush.DefaultBaseURL)
	v.SetDefault("registry.key", "")
	v.SetDefault("registry.secret", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // empty means ~/.pkgpush/history.db

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier
//     ones); when empty, the default path is read if it exists
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else if path := DefaultConfigPath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("error reading config file", "file", path, "err", err)
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("PKGPUSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfigPath returns the default config file path (~/.pkgpush/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pkgpush", "config.yaml")
}

// PathFromEnv returns the config file path from the PKGPUSH_CONFIG
// environment variable.
func PathFromEnv() string {
	return os.Getenv("PKGPUSH_CONFIG")
}

// Settings is the on-disk shape of the config file written by
// `pkgpush configure`. Its keys match what Load reads.
type Settings struct {
	Registry RegistrySettings `yaml:"registry"`
	History  HistorySettings  `yaml:"history"`
	Log      LogSettings      `yaml:"log"`
}

// RegistrySettings holds the registry section of the config file.
type RegistrySettings struct {
	URL    string `yaml:"url"`
	Key    string `yaml:"key,omitempty"`
	Secret string `yaml:"secret,omitempty"`
}

// HistorySettings holds the history section of the config file.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// LogSettings holds the log section of the config file.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Save writes the settings to the specified path.
// Creates the parent directory if it doesn't exist. The file is written
// with owner-only permissions since it may carry credentials.
func (s *Settings) Save(path string) error {
	cleanPath := filepath.Clean(path)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// SettingsFromConfig builds the on-disk settings for a loaded config,
// used to seed the configure prompts with current values.
func SettingsFromConfig(cfg *Config) *Settings {
	if cfg == nil {
		return &Settings{}
	}
	return &Settings{
		Registry: RegistrySettings{
			URL:    cfg.Registry.URL,
			Key:    cfg.Registry.Key,
			Secret: cfg.Registry.Secret,
		},
		History: HistorySettings{
			Enabled: cfg.History.Enabled,
			Path:    cfg.History.Path,
		},
		Log: LogSettings{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		},
	}
}
