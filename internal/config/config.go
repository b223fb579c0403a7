// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Analytics AnalyticsConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled         bool
	RedisURL        string
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	StatsTTLSeconds int
}

// AnalyticsConfig holds tunables for the usage calculation engine.
type AnalyticsConfig struct {
	DefaultLeadTimeDays     int
	DefaultSafetyStockWeeks int
	MaxConsecutiveFailures  int
	BreakerFailureThreshold int
	BreakerRecoverySeconds  int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 300)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "inventory")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_STATS_TTL_SECONDS", 60)
		viper.SetDefault("ANALYTICS_DEFAULT_LEAD_DAYS", 14)
		viper.SetDefault("ANALYTICS_DEFAULT_SAFETY_WEEKS", 2)
		viper.SetDefault("ANALYTICS_MAX_CONSECUTIVE_FAILURES", 5)
		viper.SetDefault("ANALYTICS_BREAKER_FAILURE_THRESHOLD", 5)
		viper.SetDefault("ANALYTICS_BREAKER_RECOVERY_SECONDS", 60)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:         viper.GetBool("CACHE_ENABLED"),
				RedisURL:        viper.GetString("REDIS_URL"),
				RedisHost:       viper.GetString("REDIS_HOST"),
				RedisPort:       viper.GetString("REDIS_PORT"),
				RedisPassword:   viper.GetString("REDIS_PASSWORD"),
				RedisDB:         viper.GetInt("REDIS_DB"),
				StatsTTLSeconds: viper.GetInt("CACHE_STATS_TTL_SECONDS"),
			},
			Analytics: AnalyticsConfig{
				DefaultLeadTimeDays:     viper.GetInt("ANALYTICS_DEFAULT_LEAD_DAYS"),
				DefaultSafetyStockWeeks: viper.GetInt("ANALYTICS_DEFAULT_SAFETY_WEEKS"),
				MaxConsecutiveFailures:  viper.GetInt("ANALYTICS_MAX_CONSECUTIVE_FAILURES"),
				BreakerFailureThreshold: viper.GetInt("ANALYTICS_BREAKER_FAILURE_THRESHOLD"),
				BreakerRecoverySeconds:  viper.GetInt("ANALYTICS_BREAKER_RECOVERY_SECONDS"),
			},
		}
	})

	return instance
}
