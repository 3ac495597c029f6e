package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	AppEnv     string
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	JWTSecret  string
	JWTExpiry  time.Duration
	RedisAddr  string
	RedisPass  string

	// Reservation engine knobs.
	CartTTL       time.Duration
	SweepInterval time.Duration
	TxTimeout     time.Duration
	TxMaxRetries  int
}

var AppConfig *Config

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn(".env file not found, using system environment variables")
	}

	AppConfig = &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		Port:       getEnv("APP_PORT", getEnv("PORT", "8080")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "farmfresh"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		JWTExpiry:  getDuration("JWT_EXPIRY", 24*time.Hour),
		RedisAddr:  getEnv("REDIS_ADDR", ""),
		RedisPass:  getEnv("REDIS_PASSWORD", ""),

		CartTTL:       getDuration("CART_TTL", 24*time.Hour),
		SweepInterval: getDuration("CART_SWEEP_INTERVAL", 10*time.Minute),
		TxTimeout:     getDuration("TX_TIMEOUT", 5*time.Second),
		TxMaxRetries:  getInt("TX_MAX_RETRIES", 3),
	}

	logrus.WithFields(logrus.Fields{
		"env":  AppConfig.AppEnv,
		"port": AppConfig.Port,
	}).Info("configuration loaded")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("invalid duration %q, using default %s", value, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("invalid integer %q, using default %d", value, defaultValue)
		return defaultValue
	}
	return n
}
