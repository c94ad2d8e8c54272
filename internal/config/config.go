package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Env               string
	ServerPort        string
	DatabaseType      string // sqlite, postgres, mysql
	DatabasePath      string // SQLite file path
	DatabaseURL       string // PostgreSQL/MySQL DSN
	JWTSecret         string // empty disables bearer verification
	RateLimitRPS      float64
	RateLimitBurst    int
	DefaultSprintDays int
	ShutdownTimeout   time.Duration
}

// Load reads configuration from .env, an optional config.yaml and environment
// variables, in increasing order of precedence.
func Load() *Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("app_env", "dev")
	v.SetDefault("port", "8080")
	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_path", "./studyplans.db")
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("rate_limit_rps", 20.0)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("default_sprint_days", 7)
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	}
	// config.yaml is optional; env vars alone are enough.
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		Env:               v.GetString("app_env"),
		ServerPort:        v.GetString("port"),
		DatabaseType:      v.GetString("db_type"),
		DatabasePath:      v.GetString("db_path"),
		DatabaseURL:       v.GetString("database_url"),
		JWTSecret:         v.GetString("jwt_secret"),
		RateLimitRPS:      v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:    v.GetInt("rate_limit_burst"),
		DefaultSprintDays: v.GetInt("default_sprint_days"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
	}
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}
