package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type KafkaConfig struct {
	Brokers  []string
	Topics   TopicConfig
	MockMode bool
	Enabled  bool
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type TopicConfig struct {
	BookingCreated   string
	BookingCancelled string
	ShowtimeCreated  string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled: getEnvBool("REDIS_ENABLED", false),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "booking_user"),
			Password:     getEnv("DB_PASSWORD", "booking_pass"),
			Database:     getEnv("DB_NAME", "moviebooking"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:  []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled:  getEnvBool("KAFKA_ENABLED", false),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
			Topics: TopicConfig{
				BookingCreated:   getEnv("KAFKA_TOPIC_BOOKING_CREATED", "booking.created"),
				BookingCancelled: getEnv("KAFKA_TOPIC_BOOKING_CANCELLED", "booking.cancelled"),
				ShowtimeCreated:  getEnv("KAFKA_TOPIC_SHOWTIME_CREATED", "showtime.created"),
			},
		},
	}
}

// DSN builds the lib/pq connection string for the configured database.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
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
