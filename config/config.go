package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the betting edge system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Odds      OddsConfig      `mapstructure:"odds"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address    string `mapstructure:"address"`
	JWTSecret  string `mapstructure:"jwt_secret"`
	IngestCron string `mapstructure:"ingest_cron"` // empty disables the refresh scheduler
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type       string              `mapstructure:"type"` // openai, local, etc.
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Models     map[string]LLMModel `mapstructure:"models"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Timeout    time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model to use for each pipeline stage
type LLMRoutingConfig struct {
	Interpret      string `mapstructure:"interpret"`      // free text -> structured intent
	Prediction     string `mapstructure:"prediction"`     // win probability estimates
	Verification   string `mapstructure:"verification"`   // value edge check
	Behavior       string `mapstructure:"behavior"`       // action tag selection
	Recommendation string `mapstructure:"recommendation"` // final synthesis
	Ethics         string `mapstructure:"ethics"`         // compliance check
	Fallback       string `mapstructure:"fallback"`
}

// ModelFor resolves the routed model for a stage, falling back when unset.
func (r LLMRoutingConfig) ModelFor(stage string) string {
	m := map[string]string{
		"interpret":      r.Interpret,
		"prediction":     r.Prediction,
		"verification":   r.Verification,
		"behavior":       r.Behavior,
		"recommendation": r.Recommendation,
		"ethics":         r.Ethics,
	}[stage]
	if m == "" {
		return r.Fallback
	}
	return m
}

// ProvidersConfig contains upstream sports data source configurations
type ProvidersConfig struct {
	Football          FootballDataConfig  `mapstructure:"football"`
	CollegeFootball   CollegeSportsConfig `mapstructure:"college_football"`
	CollegeBasketball CollegeSportsConfig `mapstructure:"college_basketball"`
}

// FootballDataConfig contains football-data.org settings
type FootballDataConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// DefaultCompetition is used when a request names a competition the
	// lookup table does not know. Ships as PL.
	DefaultCompetition string `mapstructure:"default_competition"`
}

// CollegeSportsConfig covers the collegefootballdata / collegebasketballdata APIs
type CollegeSportsConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OddsConfig contains The Odds API settings
type OddsConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Regions  string        `mapstructure:"regions"`
	Markets  string        `mapstructure:"markets"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a Postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Addr returns host:port for the go-redis client.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("general.default_timeout", 30*time.Second)
	viper.SetDefault("general.max_processing_time", 5*time.Minute)
	viper.SetDefault("server.address", ":10020")
	viper.SetDefault("providers.football.base_url", "https://api.football-data.org/v4")
	viper.SetDefault("providers.football.default_competition", "PL")
	viper.SetDefault("providers.college_football.base_url", "https://api.collegefootballdata.com")
	viper.SetDefault("providers.college_basketball.base_url", "https://api.collegebasketballdata.com")
	viper.SetDefault("odds.base_url", "https://api.the-odds-api.com/v4")
	viper.SetDefault("odds.regions", "us,eu")
	viper.SetDefault("odds.markets", "h2h")
	viper.SetDefault("odds.cache_ttl", 5*time.Minute)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("BETEDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	return &config
}
