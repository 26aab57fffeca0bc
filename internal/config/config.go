package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the config file base name searched for when no file is given.
	AppName = "workflow"

	// EnvPrefix is the prefix for environment variables, e.g. WORKFLOW_DATABASE_URL.
	EnvPrefix = "WORKFLOW"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds the settings shared by the server and the CLI.
type Config struct {
	Listen      string `mapstructure:"listen"`
	DatabaseURL string `mapstructure:"database_url"`
	Store       string `mapstructure:"store"`
	EntryNode   string `mapstructure:"entry_node"`

	Log struct {
		Format string `mapstructure:"format"` // json or human
		Debug  bool   `mapstructure:"debug"`
	} `mapstructure:"log"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence. An empty cfgFile searches
// the working directory for workflow.{yaml,json,toml}; a missing file is fine.
func Load(cfgFile string) (*Config, error) {
	return LoadWith(viper.New(), cfgFile)
}

// LoadWith is Load on a caller-provided viper instance, so flags bound to it
// take part in the lookup.
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":3000")
	v.SetDefault("database_url", "")
	v.SetDefault("store", "")
	v.SetDefault("entry_node", "start")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.debug", false)
}

// validate fills in the store backend when unset and rejects unknown values.
func (c *Config) validate() error {
	if c.Store == "" {
		c.Store = StoreMemory
		if c.DatabaseURL != "" {
			c.Store = StorePostgres
		}
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: database_url is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if c.EntryNode == "" {
		return errors.New("config: entry_node cannot be empty")
	}
	switch c.Log.Format {
	case "json", "human":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}
