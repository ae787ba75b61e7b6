package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string

	LLMProvider           string
	LLMModel              string
	LLMAPIKey             string
	LLMTemperature        float64
	LLMMaxTokens          int64
	GenerationTimeout     time.Duration
	GenerationMaxAttempts int

	CompilerCmd    []string
	CompileTimeout time.Duration
	WorkDir        string
	OutputDir      string

	MaxInFlight        int
	JobTimeout         time.Duration
	RequestTimeout     time.Duration
	ShutdownGrace      time.Duration
	FallbackUntailored bool

	BundleRetention time.Duration
	JanitorInterval time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// DefaultCompilerCmd is the latexmk invocation used when COMPILER_CMD is unset.
var DefaultCompilerCmd = []string{"latexmk", "-pdf", "-interaction=nonstopmode", "-halt-on-error"}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	provider := normalizeProvider(getEnv("LLM_PROVIDER", "openai"))

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,

		LLMProvider:           provider,
		LLMModel:              getEnv("LLM_MODEL", defaultModel(provider)),
		LLMAPIKey:             apiKeyFor(provider),
		LLMTemperature:        getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:          int64(getEnvInt("LLM_MAX_TOKENS", 8000)),
		GenerationTimeout:     getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		GenerationMaxAttempts: getEnvInt("GENERATION_MAX_ATTEMPTS", 3),

		CompilerCmd:    compilerCmd(getEnv("COMPILER_CMD", "")),
		CompileTimeout: getEnvDuration("COMPILE_TIMEOUT", 20*time.Second),
		WorkDir:        getEnv("WORK_DIR", os.TempDir()),
		OutputDir:      getEnv("OUTPUT_DIR", "./data/out"),

		MaxInFlight:        getEnvInt("MAX_IN_FLIGHT", 4),
		JobTimeout:         getEnvDuration("JOB_TIMEOUT", 2*time.Minute),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 3*time.Minute),
		ShutdownGrace:      getEnvDuration("SHUTDOWN_GRACE", 2*time.Second),
		FallbackUntailored: getEnvBool("FALLBACK_UNTAILORED", false),

		BundleRetention: getEnvDuration("BUNDLE_RETENTION", 7*24*time.Hour),
		JanitorInterval: getEnvDuration("JANITOR_INTERVAL", 10*time.Minute),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 0.5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 5),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config env %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config env %s invalid bool: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func compilerCmd(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return append([]string(nil), DefaultCompilerCmd...)
	}
	return fields
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "google", "gemini":
		return "google"
	case "anthropic", "claude":
		return "anthropic"
	case "none", "disabled":
		return "none"
	default:
		return "openai"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "google":
		return "gemini-2.5-pro"
	case "anthropic":
		return "claude-sonnet-4-5"
	default:
		return "gpt-4o-mini"
	}
}

func apiKeyFor(provider string) string {
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		return key
	}
	switch provider {
	case "google":
		return os.Getenv("GEMINI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}
