// Package config defines the application configuration and loads it from a
// YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/iwvelando/installment-calc/internal/store"
	"github.com/iwvelando/installment-calc/pkg/constants"
	"github.com/iwvelando/installment-calc/pkg/format"
	"github.com/iwvelando/installment-calc/pkg/loans"
	"github.com/iwvelando/installment-calc/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for installment-calc.
type Configuration struct {
	Logging  LoggingConfig       `yaml:"logging,omitempty" mapstructure:"logging"`
	Output   OutputConfig        `yaml:"output,omitempty" mapstructure:"output"`
	Store    StoreConfig         `yaml:"store,omitempty" mapstructure:"store"`
	Server   ServerConfig        `yaml:"server,omitempty" mapstructure:"server"`
	Defaults loans.PartialInputs `yaml:"defaults,omitempty" mapstructure:"defaults"`
	Presets  []loans.Preset      `yaml:"presets,omitempty" mapstructure:"presets"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format      string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, text
	Locale      string `yaml:"locale,omitempty" mapstructure:"locale"`
	Symbol      string `yaml:"symbol,omitempty" mapstructure:"symbol"`
	PreviewRows int    `yaml:"previewRows,omitempty" mapstructure:"previewRows"`
}

// StoreConfig selects where the loan record is persisted.
type StoreConfig struct {
	Backend       string `yaml:"backend,omitempty" mapstructure:"backend"` // memory, file, redis
	Key           string `yaml:"key,omitempty" mapstructure:"key"`
	Path          string `yaml:"path,omitempty" mapstructure:"path"`
	RedisAddr     string `yaml:"redisAddr,omitempty" mapstructure:"redisAddr"`
	RedisPassword string `yaml:"redisPassword,omitempty" mapstructure:"redisPassword"`
	RedisDB       int    `yaml:"redisDB,omitempty" mapstructure:"redisDB"`
	RedisPrefix   string `yaml:"redisPrefix,omitempty" mapstructure:"redisPrefix"`
}

// ServerConfig defines runtime parameters for the HTTP server.
type ServerConfig struct {
	Address     string `yaml:"address,omitempty" mapstructure:"address"`
	MaxBodySize string `yaml:"maxBodySize,omitempty" mapstructure:"maxBodySize"` // e.g. 64K
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. A missing file is not an error; defaults and
// environment overrides still apply.
func LoadConfiguration(configPath string) (*Configuration, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	v := newViper()
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file, %s", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file, %s", err)
		}
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("output.locale", "vi-VN")
	v.SetDefault("output.symbol", "")
	v.SetDefault("output.previewRows", constants.SchedulePreviewRows)
	v.SetDefault("store.backend", constants.StoreBackendFile)
	v.SetDefault("store.key", constants.DefaultStoreKey)
	v.SetDefault("store.path", constants.DefaultStorePath)
	v.SetDefault("store.redisAddr", constants.DefaultRedisAddr)
	v.SetDefault("store.redisPassword", "")
	v.SetDefault("store.redisDB", 0)
	v.SetDefault("store.redisPrefix", "")
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", "")
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Validate checks enumerated settings.
func (c *Configuration) Validate() error {
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	if err := validation.ValidateStoreBackend(c.Store.Backend); err != nil {
		return err
	}
	if _, err := validation.ParseSize(c.Server.MaxBodySize); err != nil {
		return err
	}
	if strings.TrimSpace(c.Store.Key) == "" {
		return fmt.Errorf("store key must not be empty")
	}
	for i, preset := range c.Presets {
		if strings.TrimSpace(preset.Name) == "" {
			return fmt.Errorf("preset %d has no name", i)
		}
	}
	return nil
}

// DefaultInputs returns the hardcoded defaults with the configured overrides
// applied and normalized.
func (c *Configuration) DefaultInputs() loans.Inputs {
	return loans.Normalize(c.Defaults, loans.DefaultInputs())
}

// AllPresets returns the built-in presets extended with the configured ones.
func (c *Configuration) AllPresets() []loans.Preset {
	return loans.MergePresets(loans.DefaultPresets(), c.Presets)
}

// StoreOptions converts the store section into backend options.
func (c *Configuration) StoreOptions() store.Options {
	return store.Options{
		Backend:       c.Store.Backend,
		Path:          c.Store.Path,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		RedisPrefix:   c.Store.RedisPrefix,
	}
}

// MaxBodyBytes returns the request body limit in bytes.
func (c *Configuration) MaxBodyBytes() int64 {
	size, err := validation.ParseSize(c.Server.MaxBodySize)
	if err != nil {
		return constants.DefaultMaxBodyBytes
	}
	return size
}

// Formatter returns the display formatter for the configured locale.
func (c *Configuration) Formatter() *format.Formatter {
	return format.NewFormatter(format.ParseLocale(c.Output.Locale), c.Output.Symbol)
}
