// Package config loads dupenet's defaults, config file, and environment
// overrides into a single Config struct via viper.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/duperemote/dupenet/internal/types"
)

// Config holds every tunable the CLI and remote server share.
type Config struct {
	Scan     Scan     `mapstructure:"scan"`
	Cache    Cache    `mapstructure:"cache"`
	Media    Media    `mapstructure:"media"`
	Remote   Remote   `mapstructure:"remote"`
	Logging  Logging  `mapstructure:"logging"`
}

type Scan struct {
	Algorithm         string `mapstructure:"algorithm"`
	Workers           int    `mapstructure:"workers"`
	SelectionStrategy string `mapstructure:"selection_strategy"`
	MinSize           string `mapstructure:"min_size"`
}

type Cache struct {
	Path     string `mapstructure:"path"`
	Enabled  bool   `mapstructure:"enabled"`
	FastMode bool   `mapstructure:"fast_mode"`
}

type Media struct {
	Enabled           bool `mapstructure:"enabled"`
	SimilarityThreshold int `mapstructure:"similarity_threshold"`
	AllPairs          bool `mapstructure:"all_pairs"`
}

type Remote struct {
	Port         int    `mapstructure:"port"`
	SSHBinary    string `mapstructure:"ssh_binary"`
	TunnelEnable bool   `mapstructure:"tunnel_enable"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

func defaultConfig() *Config {
	return &Config{
		Scan: Scan{
			Algorithm:         string(types.AlgoSHA256),
			Workers:           0, // auto-detect
			SelectionStrategy: "newest_modified",
			MinSize:           "1B",
		},
		Cache: Cache{
			Path:     "",
			Enabled:  true,
			FastMode: false,
		},
		Media: Media{
			Enabled:             false,
			SimilarityThreshold: 90,
			AllPairs:            false,
		},
		Remote: Remote{
			Port:         29876,
			SSHBinary:    "ssh",
			TunnelEnable: true,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads config.yaml from ".", "$HOME/.dupenet" and "/etc/dupenet",
// merges in DUPENET_-prefixed environment variables, and returns the
// result layered over defaultConfig(). A missing config file is not an
// error; a malformed one is.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.dupenet")
	viper.AddConfigPath("/etc/dupenet")

	viper.SetEnvPrefix("DUPENET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg := defaultConfig()
	setDefaults(cfg)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	viper.SetDefault("scan.algorithm", cfg.Scan.Algorithm)
	viper.SetDefault("scan.workers", cfg.Scan.Workers)
	viper.SetDefault("scan.selection_strategy", cfg.Scan.SelectionStrategy)
	viper.SetDefault("scan.min_size", cfg.Scan.MinSize)

	viper.SetDefault("cache.path", cfg.Cache.Path)
	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.fast_mode", cfg.Cache.FastMode)

	viper.SetDefault("media.enabled", cfg.Media.Enabled)
	viper.SetDefault("media.similarity_threshold", cfg.Media.SimilarityThreshold)
	viper.SetDefault("media.all_pairs", cfg.Media.AllPairs)

	viper.SetDefault("remote.port", cfg.Remote.Port)
	viper.SetDefault("remote.ssh_binary", cfg.Remote.SSHBinary)
	viper.SetDefault("remote.tunnel_enable", cfg.Remote.TunnelEnable)

	viper.SetDefault("logging.level", cfg.Logging.Level)
}

var validAlgorithms = []string{
	string(types.AlgoMD5), string(types.AlgoSHA1), string(types.AlgoSHA256),
	string(types.AlgoBlake3), string(types.AlgoXXHash), string(types.AlgoGxHash),
	string(types.AlgoFNV1a), string(types.AlgoCRC32),
}

var validStrategies = []string{"newest_modified", "oldest_modified", "shortest_path", "longest_path"}

func validate(cfg *Config) error {
	if !contains(validAlgorithms, cfg.Scan.Algorithm) {
		return fmt.Errorf("invalid scan.algorithm %q, must be one of %v", cfg.Scan.Algorithm, validAlgorithms)
	}
	if !contains(validStrategies, cfg.Scan.SelectionStrategy) {
		return fmt.Errorf("invalid scan.selection_strategy %q, must be one of %v", cfg.Scan.SelectionStrategy, validStrategies)
	}
	if cfg.Media.SimilarityThreshold < 0 || cfg.Media.SimilarityThreshold > 100 {
		return fmt.Errorf("media.similarity_threshold must be in [0, 100]")
	}
	if cfg.Remote.Port <= 0 || cfg.Remote.Port > 65535 {
		return fmt.Errorf("invalid remote.port %d", cfg.Remote.Port)
	}
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, strings.ToLower(cfg.Logging.Level)) {
		return fmt.Errorf("invalid logging.level %q, must be one of %v", cfg.Logging.Level, validLevels)
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// EffectiveWorkers returns Scan.Workers, or NumCPU if unset.
func (c *Config) EffectiveWorkers() int {
	if c.Scan.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Scan.Workers
}
