package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Redis         RedisConfig
	Mail          MailConfig
	Scheduling    SchedulingConfig
	Notifications NotificationConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path string
}

type AuthConfig struct {
	JWTSecret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MailConfig struct {
	SMTPHost         string
	SMTPPort         string
	From             string
	AdminNotifyEmail string
}

type SchedulingConfig struct {
	Timezone  string
	SweepCron string
}

type NotificationConfig struct {
	Workers     int
	MaxAttempts int
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 15),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./fablab.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Mail: MailConfig{
			SMTPHost:         getEnv("SMTP_HOST", ""),
			SMTPPort:         getEnv("SMTP_PORT", "25"),
			From:             getEnv("SMTP_FROM", "no-reply@fablab.local"),
			AdminNotifyEmail: getEnv("ADMIN_NOTIFY_EMAIL", ""),
		},
		Scheduling: SchedulingConfig{
			Timezone:  getEnv("APP_TIMEZONE", "Asia/Riyadh"),
			SweepCron: getEnv("SWEEP_CRON", "*/15 * * * *"),
		},
		Notifications: NotificationConfig{
			Workers:     getEnvAsInt("NOTIFICATION_WORKERS", 2),
			MaxAttempts: getEnvAsInt("NOTIFICATION_MAX_ATTEMPTS", 3),
		},
	}

	return nil
}

// Location returns the wall-clock location used for "today" and weekday
// calculations. Unknown zone names fall back to the process local zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduling.Timezone)
	if err != nil {
		log.Printf("Unknown APP_TIMEZONE %q, using local time", c.Scheduling.Timezone)
		return time.Local
	}
	return loc
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
