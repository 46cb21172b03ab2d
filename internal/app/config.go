package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/mediavault-backend/internal/data/db"
	"github.com/yungbote/mediavault-backend/internal/platform/eventbus"
	"github.com/yungbote/mediavault-backend/internal/platform/objectstore"
	"github.com/yungbote/mediavault-backend/internal/services"
)

type EventsMode string

const (
	EventsNone  EventsMode = "none"
	EventsRedis EventsMode = "redis"
	EventsKafka EventsMode = "kafka"
)

type Config struct {
	HTTPAddr    string
	LogMode     string
	Environment string
	Version     string
	CORSOrigins []string

	Postgres db.PostgresConfig
	Storage  objectstore.Config

	MaxFileBytes     int64
	MaxBatchFiles    int
	BatchConcurrency int
	SignedURLTTL     time.Duration
	StagingDir       string

	FFmpegPath   string
	FFprobePath  string
	ProbeTimeout time.Duration

	JWTSecretKey string

	EventsMode EventsMode
	Redis      eventbus.RedisConfig
	Kafka      eventbus.KafkaConfig

	MetricsEnabled bool
	OtelEnabled    bool
	OtelEndpoint   string
	OtelHeaders    string
	OtelInsecure   bool
	OtelSampler    float64
}

// NewViper returns a viper instance reading the environment, plus configFile
// when it is non-empty.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("OBJECT_STORAGE_USE_SSL", true)
	v.SetDefault("UPLOAD_MAX_FILE_BYTES", services.DefaultMaxFileBytes)
	v.SetDefault("UPLOAD_MAX_BATCH_FILES", services.DefaultMaxBatchFiles)
	v.SetDefault("UPLOAD_BATCH_CONCURRENCY", services.DefaultBatchConcurrency)
	v.SetDefault("SIGNED_URL_TTL_SECONDS", int(services.DefaultSignedURLTTL/time.Second))
	v.SetDefault("FFMPEG_PATH", "ffmpeg")
	v.SetDefault("FFPROBE_PATH", "ffprobe")
	v.SetDefault("PROBE_TIMEOUT_SECONDS", 60)
	v.SetDefault("EVENTS_MODE", string(EventsNone))
	v.SetDefault("REDIS_CHANNEL", eventbus.DefaultRedisChannel)
	v.SetDefault("KAFKA_TOPIC", eventbus.DefaultKafkaTopic)
	v.SetDefault("KAFKA_CLIENT_ID", "mediavault")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("OTEL_SAMPLER_RATIO", 0.1)
}

func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		LogMode:     v.GetString("LOG_MODE"),
		Environment: v.GetString("ENVIRONMENT"),
		Version:     v.GetString("VERSION"),
		CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		Postgres: db.PostgresConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			Name:     v.GetString("POSTGRES_NAME"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Storage: objectstore.Config{
			Mode:            objectstore.Mode(v.GetString("OBJECT_STORAGE_MODE")),
			Bucket:          v.GetString("OBJECT_STORAGE_BUCKET"),
			Region:          v.GetString("OBJECT_STORAGE_REGION"),
			Endpoint:        v.GetString("OBJECT_STORAGE_ENDPOINT"),
			AccessKey:       v.GetString("OBJECT_STORAGE_ACCESS_KEY"),
			SecretKey:       v.GetString("OBJECT_STORAGE_SECRET_KEY"),
			UseSSL:          v.GetBool("OBJECT_STORAGE_USE_SSL"),
			PublicBaseURL:   v.GetString("OBJECT_STORAGE_PUBLIC_BASE_URL"),
			EmulatorHost:    v.GetString("STORAGE_EMULATOR_HOST"),
			CredentialsJSON: v.GetString("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		},

		MaxFileBytes:     v.GetInt64("UPLOAD_MAX_FILE_BYTES"),
		MaxBatchFiles:    v.GetInt("UPLOAD_MAX_BATCH_FILES"),
		BatchConcurrency: v.GetInt("UPLOAD_BATCH_CONCURRENCY"),
		SignedURLTTL:     time.Duration(v.GetInt("SIGNED_URL_TTL_SECONDS")) * time.Second,
		StagingDir:       v.GetString("STAGING_DIR"),

		FFmpegPath:   v.GetString("FFMPEG_PATH"),
		FFprobePath:  v.GetString("FFPROBE_PATH"),
		ProbeTimeout: time.Duration(v.GetInt("PROBE_TIMEOUT_SECONDS")) * time.Second,

		JWTSecretKey: v.GetString("JWT_SECRET_KEY"),

		EventsMode: EventsMode(strings.ToLower(strings.TrimSpace(v.GetString("EVENTS_MODE")))),
		Redis: eventbus.RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  v.GetString("REDIS_CHANNEL"),
		},
		Kafka: eventbus.KafkaConfig{
			Brokers:  splitList(v.GetString("KAFKA_BROKERS")),
			Topic:    v.GetString("KAFKA_TOPIC"),
			ClientID: v.GetString("KAFKA_CLIENT_ID"),
		},

		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		OtelEnabled:    v.GetBool("OTEL_ENABLED"),
		OtelEndpoint:   v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelHeaders:    v.GetString("OTEL_EXPORTER_OTLP_HEADERS"),
		OtelInsecure:   v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		OtelSampler:    v.GetFloat64("OTEL_SAMPLER_RATIO"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate rejects settings that would make the process unusable. Object
// storage problems are deliberately not checked here; they surface per request.
func (c Config) validate() error {
	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILE_BYTES must be positive, got %d", c.MaxFileBytes)
	}
	if c.MaxBatchFiles <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BATCH_FILES must be positive, got %d", c.MaxBatchFiles)
	}
	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL_SECONDS must be positive")
	}
	switch c.EventsMode {
	case EventsNone, EventsRedis, EventsKafka:
	case "":
		return fmt.Errorf("EVENTS_MODE is empty")
	default:
		return fmt.Errorf("invalid EVENTS_MODE=%q (allowed: %q, %q, %q)", c.EventsMode, EventsNone, EventsRedis, EventsKafka)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
