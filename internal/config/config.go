// Package config loads the per-vault and global settings:
// default_list_id, tag_routes, inbox_file per vault, and min_score,
// days_tolerance, include_completed, enable_deduplication,
// dedup_auto_apply globally. Built on github.com/spf13/viper.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/BoweyLou/obssync/internal/model"
)

// GlobalConfig holds the settings that apply across every vault.
type GlobalConfig struct {
	MinScore            float64 `mapstructure:"min_score"`
	DaysTolerance       int     `mapstructure:"days_tolerance"`
	IncludeCompleted    bool    `mapstructure:"include_completed"`
	EnableDeduplication bool    `mapstructure:"enable_deduplication"`
	DedupAutoApply      bool    `mapstructure:"dedup_auto_apply"`
}

// VaultConfig holds the settings scoped to a single vault.
type VaultConfig struct {
	VaultID       string            `mapstructure:"vault_id"`
	Path          string            `mapstructure:"path"`
	DefaultListID string            `mapstructure:"default_list_id"`
	TagRoutes     []model.TagRoute  `mapstructure:"tag_routes"`
	ListRoutes    []model.ListRoute `mapstructure:"list_routes"`
	InboxFile     string            `mapstructure:"inbox_file"`
}

// Config is the fully loaded configuration tree.
type Config struct {
	Global   GlobalConfig  `mapstructure:"global"`
	Vaults   []VaultConfig `mapstructure:"vaults"`
	LogLevel string        `mapstructure:"log_level"`
	LogFile  string        `mapstructure:"log_file"`
}

// defaults mirror the matcher's built-in thresholds plus reasonable
// defaults for everything else.
func defaults(v *viper.Viper) {
	v.SetDefault("global.min_score", 0.75)
	v.SetDefault("global.days_tolerance", 1)
	v.SetDefault("global.include_completed", false)
	v.SetDefault("global.enable_deduplication", true)
	v.SetDefault("global.dedup_auto_apply", false)
	v.SetDefault("log_level", "info")
}

// Load reads configuration from path (YAML, TOML, or JSON - any format
// viper supports) with environment overrides under the OBSSYNC_ prefix
// (e.g. OBSSYNC_GLOBAL_MIN_SCORE).
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("OBSSYNC")
	// Nested keys hold dots, which a shell variable name cannot: without
	// the replacer, global.min_score would map to OBSSYNC_GLOBAL.MIN_SCORE
	// and the documented OBSSYNC_GLOBAL_MIN_SCORE form would never fire.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	stampVaultIDs(&cfg)
	return &cfg, nil
}

// stampVaultIDs back-fills each route's VaultID - mapstructure can't
// populate a field tagged "-", and the router needs it for diagnostics.
func stampVaultIDs(cfg *Config) {
	for i := range cfg.Vaults {
		vault := &cfg.Vaults[i]
		for j := range vault.TagRoutes {
			vault.TagRoutes[j].VaultID = vault.VaultID
		}
		for j := range vault.ListRoutes {
			vault.ListRoutes[j].VaultID = vault.VaultID
		}
	}
}

// VaultByName looks up a vault's configuration by id.
func (c *Config) VaultByName(name string) (VaultConfig, bool) {
	for _, vault := range c.Vaults {
		if vault.VaultID == name {
			return vault, true
		}
	}
	return VaultConfig{}, false
}

// Watch enables live reload of tag routes and global settings via
// viper.WatchConfig, which is backed by fsnotify. The `watch`
// subcommand's sync loop uses this so a launch-agent process picks up
// edited tag routes without a restart.
func Watch(path string, onChange func(*Config)) error {
	v := viper.New()
	defaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		stampVaultIDs(&cfg)
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}
