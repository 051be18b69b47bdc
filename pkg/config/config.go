package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Engine   EngineConfig
	Cache    CacheConfig
	Exports  ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig carries generation defaults and the outer run timeout.
// Times are "HH:MM"; the engine parses and validates them on construction.
type EngineConfig struct {
	LessonDuration       int
	BreakDuration        int
	MaxLessonsPerDay     int
	MaxSameSubjectPerDay int
	LunchStart           string
	LunchEnd             string
	WorkStart            string
	WorkEnd              string
	CoreSubjects         []string
	GenerationTimeout    time.Duration
}

// CacheConfig tunes the Redis payload cache.
type CacheConfig struct {
	Enabled       bool
	ScheduleTTL   time.Duration
	ValidationTTL time.Duration
}

// ExportsConfig configures asynchronous timetable exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	TokenSecret       string
	TokenTTL          time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		LessonDuration:       v.GetInt("ENGINE_LESSON_DURATION"),
		BreakDuration:        v.GetInt("ENGINE_BREAK_DURATION"),
		MaxLessonsPerDay:     v.GetInt("ENGINE_MAX_LESSONS_PER_DAY"),
		MaxSameSubjectPerDay: v.GetInt("ENGINE_MAX_SAME_SUBJECT_PER_DAY"),
		LunchStart:           v.GetString("ENGINE_LUNCH_START"),
		LunchEnd:             v.GetString("ENGINE_LUNCH_END"),
		WorkStart:            v.GetString("ENGINE_WORK_START"),
		WorkEnd:              v.GetString("ENGINE_WORK_END"),
		CoreSubjects:         splitAndTrim(v.GetString("ENGINE_CORE_SUBJECTS")),
		GenerationTimeout:    parseDuration(v.GetString("ENGINE_GENERATION_TIMEOUT"), 30*time.Second),
	}

	cfg.Cache = CacheConfig{
		Enabled:       v.GetBool("ENABLE_CACHE"),
		ScheduleTTL:   parseDuration(v.GetString("CACHE_SCHEDULE_TTL"), 5*time.Minute),
		ValidationTTL: parseDuration(v.GetString("CACHE_VALIDATION_TTL"), time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		TokenSecret:       v.GetString("EXPORTS_TOKEN_SECRET"),
		TokenTTL:          parseDuration(v.GetString("EXPORTS_TOKEN_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "schedule_builder")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENGINE_LESSON_DURATION", 45)
	v.SetDefault("ENGINE_BREAK_DURATION", 10)
	v.SetDefault("ENGINE_MAX_LESSONS_PER_DAY", 8)
	v.SetDefault("ENGINE_MAX_SAME_SUBJECT_PER_DAY", 2)
	v.SetDefault("ENGINE_LUNCH_START", "12:00")
	v.SetDefault("ENGINE_LUNCH_END", "13:00")
	v.SetDefault("ENGINE_WORK_START", "08:15")
	v.SetDefault("ENGINE_WORK_END", "16:00")
	v.SetDefault("ENGINE_CORE_SUBJECTS", "")
	v.SetDefault("ENGINE_GENERATION_TIMEOUT", "30s")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_SCHEDULE_TTL", "5m")
	v.SetDefault("CACHE_VALIDATION_TTL", "1m")

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_TOKEN_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_TOKEN_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
