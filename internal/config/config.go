package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Reward dispatch modes.
const (
	RewardModeOffChain = "off_chain"
	RewardModeOnChain  = "on_chain"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Chain    ChainConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret        string
	LogLevel         string
	RewardMode       string
	SyncInterval     time.Duration
	StakingAccrual   time.Duration
	LeaderboardSync  time.Duration
	LeaderboardLimit int
}

// ChainConfig holds EVM chain settings for the on-chain claim flow
type ChainConfig struct {
	RPCURL           string
	ChainID          int64
	RewardContract   string
	TokenContract    string
	SignerPrivateKey string
	ConversionRate   string
	ConfirmTimeout   time.Duration
}

// RedisConfig holds Redis settings for the points leaderboard
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds Kafka settings for point-event publishing
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "owatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:        getEnv("JWT_SECRET", ""),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			RewardMode:       getEnv("REWARD_MODE", RewardModeOffChain),
			SyncInterval:     getEnvDuration("PROGRESS_SYNC_INTERVAL", 10*time.Second),
			StakingAccrual:   getEnvDuration("STAKING_ACCRUAL_INTERVAL", 24*time.Hour),
			LeaderboardSync:  getEnvDuration("LEADERBOARD_SYNC_INTERVAL", 5*time.Minute),
			LeaderboardLimit: getEnvInt("LEADERBOARD_LIMIT", 100),
		},
		Chain: ChainConfig{
			RPCURL:           getEnv("CHAIN_RPC_URL", ""),
			ChainID:          int64(getEnvInt("CHAIN_ID", 5003)), // Mantle testnet
			RewardContract:   getEnv("WATCH_REWARD_ADDRESS", ""),
			TokenContract:    getEnv("WATCH_TOKEN_ADDRESS", ""),
			SignerPrivateKey: getEnv("CLAIM_SIGNER_PRIVATE_KEY", ""),
			ConversionRate:   getEnv("POINT_CONVERSION_RATE", "1"),
			ConfirmTimeout:   getEnvDuration("CLAIM_CONFIRM_TIMEOUT", 2*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:   getEnv("KAFKA_TOPIC", "owatch.points"),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.App.RewardMode != RewardModeOffChain && config.App.RewardMode != RewardModeOnChain {
		return nil, fmt.Errorf("REWARD_MODE must be %q or %q", RewardModeOffChain, RewardModeOnChain)
	}

	if config.App.RewardMode == RewardModeOnChain && config.Chain.RPCURL == "" {
		return nil, fmt.Errorf("CHAIN_RPC_URL is required when REWARD_MODE=%s", RewardModeOnChain)
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
