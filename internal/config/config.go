package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa toda la configuración del servicio.
// Se carga desde env (y .env si existe), con defaults razonables para dev.
type Config struct {
	Port      string `mapstructure:"PORT"`
	Env       string `mapstructure:"ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	AppName   string `mapstructure:"APP_NAME"`

	// Si DBDSN está vacío, el router usa repos in-memory (modo dev).
	DBDSN string `mapstructure:"DB_DSN"`

	AuthBaseURL string `mapstructure:"AUTH_BASE_URL"`
	AuthAPIKey  string `mapstructure:"AUTH_API_KEY"`

	CutoffDefaultMins int `mapstructure:"CUTOFF_DEFAULT_MINS"`
	DueCacheTTLSecs   int `mapstructure:"DUE_CACHE_TTL_SECS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("APP_NAME", "pet-med-tracker")
	v.SetDefault("CUTOFF_DEFAULT_MINS", 240)
	v.SetDefault("DUE_CACHE_TTL_SECS", 30)

	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT", "APP_NAME",
		"DB_DSN", "AUTH_BASE_URL", "AUTH_API_KEY",
		"CUTOFF_DEFAULT_MINS", "DUE_CACHE_TTL_SECS",
	} {
		_ = v.BindEnv(key)
	}

	// .env es opcional; si no está, seguimos con env puro.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.CutoffDefaultMins <= 0 {
		return nil, fmt.Errorf("config: CUTOFF_DEFAULT_MINS must be positive")
	}
	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	return cfg, nil
}

func (c *Config) DueCacheTTL() time.Duration {
	if c.DueCacheTTLSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.DueCacheTTLSecs) * time.Second
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}
