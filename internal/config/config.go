package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Session  SessionConfig
	Latency  LatencyConfig
	VAD      VADConfig
	Scoring  ScoringConfig
	Provider ProviderConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	RealtimeLogPath    string
	CorsAllowedOrigins string
	RealtimeURL        string // public websocket endpoint, derived from the request when empty
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Driver     string // "postgres", "sqlite" or "" for the in-memory store
	Connection string
}

type APIKeys struct {
	JWTSecret     string // access tokens issued by the account service
	SessionSecret string // realtime session tokens
}

type SessionConfig struct {
	TokenTTL    time.Duration
	IdleTimeout time.Duration
	Issuer      string
	Audience    string
}

type LatencyConfig struct {
	EarToMouth       time.Duration
	TTSStart         time.Duration
	RoundTrip        time.Duration
	BargeIn          time.Duration
	AvatarRender     time.Duration
	AvatarBreachTrip int
}

type VADConfig struct {
	Threshold float64
	MinSpeech time.Duration
}

type ScoringConfig struct {
	FollowUpMinChars int
	RubricVersion    string
}

type ProviderConfig struct {
	FailureThreshold int
	Timeout          time.Duration
	LLMProvider      string // "ollama" or "none"
	OllamaBaseURL    string
	LLMModel         string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_FILE_PATH", "logs/realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RealtimeURL:        getEnv("REALTIME_URL", ""),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", ""),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			SessionSecret: getEnv("SESSION_SECRET", "dev-session-secret"),
		},
		Session: SessionConfig{
			TokenTTL:    getEnvAsDuration("SESSION_TOKEN_TTL", 2*time.Hour),
			IdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			Issuer:      getEnv("SESSION_TOKEN_ISSUER", "interviewer-api"),
			Audience:    getEnv("SESSION_TOKEN_AUDIENCE", "interviewer-realtime"),
		},
		Latency: LatencyConfig{
			EarToMouth:       getEnvAsDuration("LATENCY_EAR_TO_MOUTH_BUDGET", 400*time.Millisecond),
			TTSStart:         getEnvAsDuration("LATENCY_TTS_START_BUDGET", 300*time.Millisecond),
			RoundTrip:        getEnvAsDuration("LATENCY_ROUND_TRIP_BUDGET", 1200*time.Millisecond),
			BargeIn:          getEnvAsDuration("LATENCY_BARGE_IN_BUDGET", 150*time.Millisecond),
			AvatarRender:     getEnvAsDuration("LATENCY_AVATAR_BUDGET", 300*time.Millisecond),
			AvatarBreachTrip: getEnvAsInt("LATENCY_AVATAR_BREACH_TRIP", 3),
		},
		VAD: VADConfig{
			Threshold: getEnvAsFloat("VAD_THRESHOLD", 0.5),
			MinSpeech: time.Duration(getEnvAsInt("VAD_MIN_SPEECH_MS", 250)) * time.Millisecond,
		},
		Scoring: ScoringConfig{
			FollowUpMinChars: getEnvAsInt("SCORING_FOLLOWUP_MIN_CHARS", 80),
			RubricVersion:    getEnv("SCORING_RUBRIC_VERSION", "v1"),
		},
		Provider: ProviderConfig{
			FailureThreshold: getEnvAsInt("PROVIDER_FAILURE_THRESHOLD", 3),
			Timeout:          getEnvAsDuration("PROVIDER_TIMEOUT", 5*time.Second),
			LLMProvider:      getEnv("LLM_PROVIDER", "none"),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMModel:         getEnv("LLM_MODEL", "llama3"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
