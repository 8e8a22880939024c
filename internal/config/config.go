package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Env         string
	FrontendURL string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	AllowAdminSignup bool

	// Inference
	InferenceBackend string
	InferenceURL     string
	InferenceToken   string
	InferenceTimeout time.Duration
	GeminiAPIKey     string
	GeminiModel      string

	// Media
	FetchTimeout      time.Duration
	YouTubeDownloader string
	YtDlpPath         string
	FFmpegPath        string
	VideoSampleEvery  int
	VideoMaxSamples   int

	// Workers
	WorkerCount int

	// Logging
	LogLevel string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),

		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),

		JWTSecret:        mustGetEnv("JWT_SECRET"),
		AccessTokenTTL:   getEnvAsDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getEnvAsDurationOrDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		AllowAdminSignup: getEnvAsBoolOrDefault("ALLOW_ADMIN_SIGNUP", false),

		InferenceBackend: getEnvOrDefault("INFERENCE_BACKEND", "http"),
		InferenceURL:     getEnvOrDefault("INFERENCE_URL", ""),
		InferenceToken:   getEnvOrDefault("INFERENCE_TOKEN", ""),
		InferenceTimeout: getEnvAsDurationOrDefault("INFERENCE_TIMEOUT", 30*time.Second),
		GeminiAPIKey:     getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),

		FetchTimeout:      getEnvAsDurationOrDefault("FETCH_TIMEOUT", 20*time.Second),
		YouTubeDownloader: getEnvOrDefault("YOUTUBE_DOWNLOADER", "ytdlp"),
		YtDlpPath:         getEnvOrDefault("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:        getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		VideoSampleEvery:  getEnvAsIntOrDefault("VIDEO_SAMPLE_EVERY", 15),
		VideoMaxSamples:   getEnvAsIntOrDefault("VIDEO_MAX_SAMPLES", 12),

		WorkerCount: getEnvAsIntOrDefault("WORKER_COUNT", 3),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
	}

	return cfg
}

// IsProduction reports whether the server runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvAsDurationOrDefault accepts Go durations ("90s", "15m") and bare
// integers, which are read as seconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
