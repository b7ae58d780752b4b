// Package config loads ambient defaults through viper, the way the
// teacher's internal/device.LoadDMGConfig does for DMG handling.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds defaults shared across the dmsetup, dump, and check
// commands.
type Config struct {
	DefaultKeyringName string `mapstructure:"default_keyring_name"`
	DefaultMapperName  string `mapstructure:"default_mapper_name"`
	ChunkSizeBytes     int64  `mapstructure:"chunk_size_bytes"`
	DefaultBlockSize   uint32 `mapstructure:"default_block_size"`
	StrictChecksums    bool   `mapstructure:"strict_checksums"`
	AllocationMapLimit int    `mapstructure:"allocation_map_limit"`
}

// Load reads fvde-core-config.{yaml,...} from the usual search paths,
// falling back to defaults when no file is present, with env override
// under the FVDE_CORE_ prefix.
func Load() (*Config, error) {
	viper.SetConfigName("fvde-core-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.fvde-core")
	viper.AddConfigPath("/etc/fvde-core")

	viper.SetDefault("default_keyring_name", "@s")
	viper.SetDefault("default_mapper_name", "fvde")
	viper.SetDefault("chunk_size_bytes", 64*1024)
	viper.SetDefault("default_block_size", 4096)
	viper.SetDefault("strict_checksums", false)
	viper.SetDefault("allocation_map_limit", 1000)

	viper.SetEnvPrefix("FVDE_CORE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}
