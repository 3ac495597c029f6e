package config

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisClient is nil when Redis is unavailable; callers treat nil as
// "no cache" and keep working.
var RedisClient *redis.Client

func InitRedis() {
	if AppConfig.RedisAddr == "" {
		logrus.Info("REDIS_ADDR not set, running without cache")
		return
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     AppConfig.RedisAddr,
		Password: AppConfig.RedisPass,
		DB:       0,
	})

	if _, err := RedisClient.Ping(context.Background()).Result(); err != nil {
		logrus.WithError(err).Warn("redis connection failed, running without cache")
		RedisClient = nil
		return
	}
	logrus.Info("redis connected")
}
