package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Discord  DiscordConfig
	Sync     SyncConfig
	Admin    AdminConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type DiscordConfig struct {
	Token      string
	GatewayURL string
	APIBase    string
}

type SyncConfig struct {
	DedupTTL          time.Duration
	ExecMarkTTL       time.Duration
	ActionsPerSecond  float64
	Burst             int
	MaxAttempts       int
	ReconcileInterval time.Duration
	APIRateLimitRPS   int
}

type AdminConfig struct {
	Email       string
	DisplayName string
	Password    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "bansync"),
			Password: getEnv("DB_PASSWORD", "bansync_password"),
			DBName:   getEnv("DB_NAME", "bansync_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-this-secret-key"),
			ExpiryHours: getEnvInt("JWT_EXPIRY_HOURS", 168),
		},
		Discord: DiscordConfig{
			Token:      getEnv("DISCORD_TOKEN", ""),
			GatewayURL: getEnv("DISCORD_GATEWAY_URL", "wss://gateway.discord.gg/?v=10&encoding=json"),
			APIBase:    getEnv("DISCORD_API_BASE", ""),
		},
		Sync: SyncConfig{
			DedupTTL:          time.Duration(getEnvInt("SYNC_DEDUP_TTL_SECONDS", 60)) * time.Second,
			ExecMarkTTL:       time.Duration(getEnvInt("SYNC_EXEC_MARK_TTL_SECONDS", 30)) * time.Second,
			ActionsPerSecond:  getEnvFloat("SYNC_ACTIONS_PER_SECOND", 2),
			Burst:             getEnvInt("SYNC_BURST", 4),
			MaxAttempts:       getEnvInt("SYNC_MAX_ATTEMPTS", 5),
			ReconcileInterval: time.Duration(getEnvInt("SYNC_RECONCILE_INTERVAL_MINUTES", 15)) * time.Minute,
			APIRateLimitRPS:   getEnvInt("API_RATE_LIMIT_RPS", 10),
		},
		Admin: AdminConfig{
			Email:       getEnv("ADMIN_EMAIL", "admin@bansync.local"),
			DisplayName: getEnv("ADMIN_DISPLAY_NAME", "Operator"),
			Password:    getEnv("ADMIN_PASSWORD", "change-this-password"),
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
	}

	// Validate required fields
	if cfg.Server.Env == "production" {
		if cfg.JWT.Secret == "change-this-secret-key" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		if cfg.Admin.Password == "change-this-password" {
			return nil, fmt.Errorf("ADMIN_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// GetDSN returns the database connection string
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

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}
