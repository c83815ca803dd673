package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env     string
	Server  ServerConfig
	DB      DBConfig
	Cohere  CohereConfig
	Answer  AnswerConfig
	Segment SegmentConfig
	Cache   CacheConfig
}

type ServerConfig struct {
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
	MinConns int32
}

// DSN renders the pgx connection string for this database.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type CohereConfig struct {
	APIKey         string
	BaseURL        string
	EmbedModel     string
	ChatModel      string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
	RateLimit      float64
	RateBurst      int
}

type AnswerConfig struct {
	MaxUnits         int
	ScoreFloor       float64
	StreamChunkRunes int
}

type SegmentConfig struct {
	MaxRunes     int
	OverlapWords int
}

type CacheConfig struct {
	Size int
	TTL  int
}

func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port: getEnv("PORT", "9010"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "book-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "book_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "book_password"),
			Name:     getEnv("DB_NAME", "book_db"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Cohere: CohereConfig{
			APIKey:         getSecret("COHERE_API_KEY", "COHERE_API_KEY_FILE", getEnv("CO_API_KEY", "")),
			BaseURL:        getEnvWithAlt("COHERE_BASE_URL", "CO_API_URL", "https://api.cohere.ai/compatibility/v1"),
			EmbedModel:     getEnv("COHERE_EMBED_MODEL", "embed-english-v3.0"),
			ChatModel:      getEnv("COHERE_CHAT_MODEL", "command-a-03-2025"),
			Temperature:    getEnvFloat64("COHERE_TEMPERATURE", 0.3),
			MaxTokens:      getEnvInt("COHERE_MAX_TOKENS", 1000),
			TimeoutSeconds: getEnvInt("COHERE_TIMEOUT_SECONDS", 60),
			RateLimit:      getEnvFloat64("COHERE_RATE_LIMIT", 10),
			RateBurst:      getEnvInt("COHERE_RATE_BURST", 5),
		},
		Answer: AnswerConfig{
			MaxUnits:         getEnvInt("ANSWER_DEFAULT_MAX_UNITS", 5),
			ScoreFloor:       getEnvFloat64("ANSWER_SCORE_FLOOR", 0.4),
			StreamChunkRunes: getEnvInt("ANSWER_STREAM_CHUNK_RUNES", 24),
		},
		Segment: SegmentConfig{
			MaxRunes:     getEnvInt("SEGMENT_MAX_RUNES", 500),
			OverlapWords: getEnvInt("SEGMENT_OVERLAP_WORDS", 50),
		},
		Cache: CacheConfig{
			Size: getEnvInt("EMBED_CACHE_SIZE", 256),
			TTL:  getEnvInt("EMBED_CACHE_TTL_MINUTES", 0),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	// 1. Try direct environment variable
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	// 2. Try reading from file specified by fileEnvKey
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
