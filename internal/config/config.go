// Package config provides configuration loading for clawpm.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Port   int    `json:"port"    mapstructure:"port"`
	DBPath string `json:"db_path" mapstructure:"db_path"`
}

// Load reads configuration from an optional JSON file, a local .env file,
// and CLAWPM_* environment variables, in increasing precedence for env.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	viper.SetDefault("port", 3210)
	viper.SetDefault("db_path", "data/clawpm.db")
	viper.SetEnvPrefix("clawpm")
	viper.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			viper.SetConfigFile(path)
			viper.SetConfigType("json")
			if err := viper.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("db_path must not be empty")
	}
	return cfg, nil
}
