// Package config loads and validates the synfs configuration from file,
// environment and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultEndpoint is the production entity store API.
const DefaultEndpoint = "https://repo.synfs.io/v1"

// DefaultTokenEnv is the environment variable consulted when no token is
// configured explicitly.
const DefaultTokenEnv = "SYNFS_AUTH_TOKEN"

// Config represents the complete synfs configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SYNFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// The auth section is kept untyped here and decoded on demand (see
// ResolveToken), so secret material never has to appear in the file at
// all: the env and token-file fallbacks cover it.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Endpoint is the base URL of the entity store API
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`

	// Auth contains the credential configuration (see AuthConfig)
	Auth map[string]any `mapstructure:"auth"`

	// HTTP contains transport timeouts
	HTTP HTTPConfig `mapstructure:"http"`

	// Upload contains multipart upload tuning
	Upload UploadConfig `mapstructure:"upload"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// HTTPConfig contains transport timeouts. Timeout expiry surfaces as a
// transport failure, not a distinguished error kind.
type HTTPConfig struct {
	// ConnectTimeout bounds connection establishment
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"required,gt=0"`

	// RequestTimeout bounds one metadata/API round trip
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required,gt=0"`

	// PartUploadTimeout bounds the upload of a single part
	PartUploadTimeout time.Duration `mapstructure:"part_upload_timeout" validate:"required,gt=0"`
}

// UploadConfig contains multipart upload tuning.
type UploadConfig struct {
	// MinPartSize overrides the starting part size in bytes.
	// Zero uses the backend minimum (5 MiB).
	MinPartSize int64 `mapstructure:"min_part_size" validate:"gte=0"`
}

// AuthConfig is the typed form of the auth section.
type AuthConfig struct {
	// Token is the bearer credential itself. Prefer the env or file
	// fallbacks over embedding it in the config file.
	Token string `mapstructure:"token"`

	// TokenEnv names the environment variable holding the token.
	// Empty uses SYNFS_AUTH_TOKEN.
	TokenEnv string `mapstructure:"token_env"`

	// TokenFile is a file whose trimmed contents are the token.
	TokenFile string `mapstructure:"token_file"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses the default
//     location under the user config dir)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ResolveToken resolves the bearer credential through the fallback
// chain: explicit token, then environment variable, then token file.
func (c *Config) ResolveToken() (string, error) {
	var auth AuthConfig
	if err := mapstructure.Decode(c.Auth, &auth); err != nil {
		return "", fmt.Errorf("invalid auth config: %w", err)
	}

	if auth.Token != "" {
		return auth.Token, nil
	}

	envName := auth.TokenEnv
	if envName == "" {
		envName = DefaultTokenEnv
	}
	if token := os.Getenv(envName); token != "" {
		return token, nil
	}

	if auth.TokenFile != "" {
		data, err := os.ReadFile(auth.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("no auth token configured: set %s or auth.token_file", envName)
}

// setupViper configures viper with environment variables and config file
// settings. Environment variables use the SYNFS_ prefix, for example
// SYNFS_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SYNFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing
// file is acceptable; defaults cover everything but the token.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path, following
// XDG_CONFIG_HOME with a ~/.config fallback.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "synfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "synfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
