package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	MarketData MarketDataConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration for the raw trade audit
// archive. The engine's own state is in-memory; only the immutable broker
// stream is archived.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers         []string
	TradeTopic      string
	MarketDataTopic string
	GroupID         string
}

// RedisConfig holds the warm cache tier configuration. An empty Addr
// disables redis and keeps the warm tier in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MarketDataConfig holds the price acceptance filter thresholds and leg
// cache TTLs. The filter constants are configuration, not literals, so they
// can be tuned independently of the algorithm.
type MarketDataConfig struct {
	FilterBasePct         decimal.Decimal
	FilterIVCoefficient   decimal.Decimal
	FilterUnknownIVVolPct decimal.Decimal
	FilterBetaMin         decimal.Decimal
	FilterBetaMax         decimal.Decimal
	LegCacheHotTTL        time.Duration
	LegCacheWarmTTL       time.Duration
	TargetWinProb         int
	DTEWindow             string
	BridgeURL             string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "wheelledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:         []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			TradeTopic:      getEnv("KAFKA_TRADE_TOPIC", "broker-executions"),
			MarketDataTopic: getEnv("KAFKA_MARKET_DATA_TOPIC", "market-data-events"),
			GroupID:         getEnv("KAFKA_GROUP_ID", "wheel-ledger"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		MarketData: MarketDataConfig{
			FilterBasePct:         getEnvDecimal("MD_FILTER_BASE_PCT", "0.0005"),
			FilterIVCoefficient:   getEnvDecimal("MD_FILTER_IV_COEFFICIENT", "0.002"),
			FilterUnknownIVVolPct: getEnvDecimal("MD_FILTER_UNKNOWN_IV_VOL_PCT", "0.001"),
			FilterBetaMin:         getEnvDecimal("MD_FILTER_BETA_MIN", "0.5"),
			FilterBetaMax:         getEnvDecimal("MD_FILTER_BETA_MAX", "2"),
			LegCacheHotTTL:        getEnvDuration("MD_LEG_CACHE_HOT_TTL", time.Minute),
			LegCacheWarmTTL:       getEnvDuration("MD_LEG_CACHE_WARM_TTL", 6*time.Hour),
			TargetWinProb:         getEnvInt("MD_TARGET_WIN_PROB", 70),
			DTEWindow:             getEnv("MD_DTE_WINDOW", ""),
			BridgeURL:             getEnv("MD_BRIDGE_URL", ""),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	parsed, _ := decimal.NewFromString(defaultValue)
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
