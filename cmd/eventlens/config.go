package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tinytelemetry/eventlens/internal/extract"
	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/tinytelemetry/eventlens/internal/timestamp"
)

const (
	defaultAPIAddr         = model.DefaultAPIAddr
	defaultTopN            = 0 // schema default
	defaultQueryTimeout    = model.DefaultQueryTimeout
	defaultDescribeTimeout = model.DefaultDescribeTimeout
	defaultExportDir       = "."
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Format          string        `mapstructure:"format"`
	Schema          string        `mapstructure:"schema"`
	TimeLayout      string        `mapstructure:"time-layout"`
	Timezone        string        `mapstructure:"timezone"`
	TopN            int           `mapstructure:"top-n"`
	APIAddr         string        `mapstructure:"api-addr"`
	APIUser         string        `mapstructure:"api-user"`
	APIPasswordHash string        `mapstructure:"api-password-hash"`
	QueryTimeout    time.Duration `mapstructure:"query-timeout"`
	DescribeURL     string        `mapstructure:"describe-url"`
	DescribeFile    string        `mapstructure:"describe-file"`
	DescribeTimeout time.Duration `mapstructure:"describe-timeout"`
	ExportDir       string        `mapstructure:"export-dir"`
	ConfigPath      string        `mapstructure:"-"` // not from config file
}

// boundFlags maps config keys to the cobra flags that may override them.
var boundFlags = []string{"format", "schema", "time-layout", "timezone", "top-n", "api-addr"}

// loadConfig merges defaults, the config file, EVENTLENS_* environment
// variables and any flags set on cmd, in increasing precedence.
func loadConfig(cmd *cobra.Command, configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("EVENTLENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("format", "")
	v.SetDefault("schema", "")
	v.SetDefault("time-layout", "")
	v.SetDefault("timezone", "")
	v.SetDefault("top-n", defaultTopN)
	v.SetDefault("api-addr", defaultAPIAddr)
	v.SetDefault("api-user", "")
	v.SetDefault("api-password-hash", "")
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("describe-url", "")
	v.SetDefault("describe-file", "")
	v.SetDefault("describe-timeout", defaultDescribeTimeout)
	v.SetDefault("export-dir", defaultExportDir)

	for _, name := range boundFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return cfg, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "eventlens", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if cfg.TopN < 0 {
		return cfg, fmt.Errorf("invalid top-n: %d", cfg.TopN)
	}
	if _, err := extract.ParseFormat(cfg.Format); err != nil {
		return cfg, err
	}
	if cfg.Schema != "" {
		if _, ok := model.SchemaByName(cfg.Schema); !ok {
			return cfg, fmt.Errorf("unknown schema %q (want scan or event)", cfg.Schema)
		}
	}

	// Expand ~ in paths
	cfg.DescribeFile = expandHome(cfg.DescribeFile, home)
	cfg.ExportDir = expandHome(cfg.ExportDir, home)

	return cfg, nil
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// parser builds the timestamp parser for the configured layout and zone.
func (cfg appConfig) parser() (*timestamp.Parser, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone: %w", err)
		}
		loc = l
	}
	return timestamp.NewParserIn(loc, cfg.TimeLayout), nil
}
