package config

import (
	"log"
	"os"

	"scorta/pkg/logger"
	"scorta/pkg/storage"
	"scorta/pkg/util"
)

type Config struct {
	DBDriver  string `env:"DB_DRIVER"`
	DSN       string `env:"DSN"`
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	APIPrefix string `env:"API_PREFIX"`

	JWTSecret string `env:"JWT_SECRET"`

	Log   logger.LogConfig
	Minio storage.MinioConfig

	CacheType     string `env:"CACHE_TYPE"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	// SOS orchestration knobs
	LocationPushIntervalSec int    `env:"SOS_LOCATION_PUSH_INTERVAL"` // default 5
	AudioChunkSeconds       int    `env:"SOS_AUDIO_CHUNK_SECONDS"`    // default 5
	SignedURLTTLSec         int    `env:"SOS_SIGNED_URL_TTL"`         // default 3600
	FanoutWorkers           int    `env:"SOS_FANOUT_WORKERS"`         // default 4
	FanoutRetries           int    `env:"SOS_FANOUT_RETRIES"`         // default 3
	PermissionSweepSpec     string `env:"SOS_PERMISSION_SWEEP_CRON"`  // default every 5m
	DefaultLanguage         string `env:"DEFAULT_LANGUAGE"`           // "it" in production
}

var GlobalConfig *Config

func Load() error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	GlobalConfig = &Config{
		DBDriver:  util.GetEnv("DB_DRIVER"),
		DSN:       util.GetEnv("DSN"),
		Addr:      util.GetEnvDefault("ADDR", ":8080"),
		Mode:      util.GetEnv("MODE"),
		APIPrefix: util.GetEnvDefault("API_PREFIX", "/api"),
		JWTSecret: util.GetEnv("JWT_SECRET"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Minio: storage.MinioConfig{
			Endpoint:  util.GetEnv("MINIO_ENDPOINT"),
			AccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
			SecretKey: util.GetEnv("MINIO_SECRET_KEY"),
			Bucket:    util.GetEnvDefault("MINIO_BUCKET", "sos-audio-recordings"),
			UseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
		},
		CacheType:     util.GetEnvDefault("CACHE_TYPE", "local"),
		RedisAddr:     util.GetEnv("REDIS_ADDR"),
		RedisPassword: util.GetEnv("REDIS_PASSWORD"),
		RedisDB:       int(util.GetIntEnv("REDIS_DB")),

		LocationPushIntervalSec: intDefault("SOS_LOCATION_PUSH_INTERVAL", 5),
		AudioChunkSeconds:       intDefault("SOS_AUDIO_CHUNK_SECONDS", 5),
		SignedURLTTLSec:         intDefault("SOS_SIGNED_URL_TTL", 3600),
		FanoutWorkers:           intDefault("SOS_FANOUT_WORKERS", 4),
		FanoutRetries:           intDefault("SOS_FANOUT_RETRIES", 3),
		PermissionSweepSpec:     util.GetEnvDefault("SOS_PERMISSION_SWEEP_CRON", "@every 5m"),
		DefaultLanguage:         util.GetEnvDefault("DEFAULT_LANGUAGE", "en"),
	}
	return nil
}

func intDefault(key string, def int) int {
	if v := int(util.GetIntEnv(key)); v > 0 {
		return v
	}
	return def
}
