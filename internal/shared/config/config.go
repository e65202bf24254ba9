package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration. It is read once at startup and not mutated after.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	ConfigFile      string

	LLMProvider string
	LLMModel    string
	LLMBaseURL  string
	LLMAPIKey   string
	LLMTimeout  time.Duration

	Matcher Matcher

	BudgetLimit     int
	BudgetScope     string
	BudgetLedgerKey string
	DatabaseURL     string
	RedisURL        string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string

	EventsBackend     string
	RabbitMQURL       string
	EventsExchange    string
	EventsSQSQueueURL string
}

// Matcher holds batch and extraction settings.
type Matcher struct {
	MaxDocuments      int
	Concurrency       int
	AllowedExtensions []string
	IncludeSkills     bool
	FileBacked        bool
	SkillIndicators   []string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:            "8080",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LLMProvider:     "groq",
		LLMTimeout:      120 * time.Second,
		Matcher: Matcher{
			MaxDocuments:      3,
			Concurrency:       1,
			AllowedExtensions: []string{".pdf"},
		},
		BudgetLimit:     15000,
		BudgetScope:     "batch",
		BudgetLedgerKey: "default",
		ObjectStoreType: "local",
		LocalStoreDir:   "./data",
		EventsBackend:   "none",
		EventsExchange:  "batch_updates",
	}
}

// Load reads configuration from .env files, an optional YAML file named by MATCH_CONFIG_FILE,
// then environment variables. Later sources win.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()
	cfg.ConfigFile = strings.TrimSpace(os.Getenv("MATCH_CONFIG_FILE"))
	if cfg.ConfigFile != "" {
		if err := ApplyFile(&cfg, cfg.ConfigFile); err != nil {
			log.Printf("config: ignoring %s: %v", cfg.ConfigFile, err)
		}
	}
	applyEnv(&cfg)

	if cfg.Env == "production" && cfg.DatabaseURL == "" && cfg.BudgetScope == "postgres" {
		log.Printf("DATABASE_URL is required for BUDGET_SCOPE=postgres")
	}
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = normalizeEnv(getEnv("ENV", cfg.Env))
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	}

	cfg.LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMTimeout = getSeconds("LLM_TIMEOUT_SECONDS", cfg.LLMTimeout)
	cfg.LLMAPIKey = APIKeyFor(cfg.LLMProvider)

	cfg.Matcher.MaxDocuments = getInt("MATCH_MAX_DOCUMENTS", cfg.Matcher.MaxDocuments)
	cfg.Matcher.Concurrency = getInt("MATCH_CONCURRENCY", cfg.Matcher.Concurrency)
	if raw := os.Getenv("MATCH_ALLOWED_EXTENSIONS"); raw != "" {
		cfg.Matcher.AllowedExtensions = splitAndTrim(raw)
	}
	cfg.Matcher.IncludeSkills = getBool("MATCH_INCLUDE_SKILLS", cfg.Matcher.IncludeSkills)
	cfg.Matcher.FileBacked = getBool("EXTRACT_FILE_BACKED", cfg.Matcher.FileBacked)

	cfg.BudgetLimit = getInt("BUDGET_LIMIT", cfg.BudgetLimit)
	cfg.BudgetScope = strings.ToLower(getEnv("BUDGET_SCOPE", cfg.BudgetScope))
	cfg.BudgetLedgerKey = getEnv("BUDGET_LEDGER_KEY", cfg.BudgetLedgerKey)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)

	cfg.ObjectStoreType = normalizeStoreType(getEnv("OBJECT_STORE", cfg.ObjectStoreType))
	cfg.LocalStoreDir = getEnv("LOCAL_STORE_DIR", cfg.LocalStoreDir)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Prefix = getEnv("S3_PREFIX", cfg.S3Prefix)

	cfg.EventsBackend = normalizeEventsBackend(getEnv("EVENTS_BACKEND", cfg.EventsBackend))
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.EventsExchange = getEnv("EVENTS_EXCHANGE", cfg.EventsExchange)
	cfg.EventsSQSQueueURL = getEnv("EVENTS_SQS_QUEUE_URL", cfg.EventsSQSQueueURL)
}

// APIKeyFor returns the credential for provider, e.g. GROQ_API_KEY for "groq".
// The gemini provider reads GOOGLE_API_KEY.
func APIKeyFor(provider string) string {
	switch provider {
	case "gemini", "google":
		return strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	case "":
		return ""
	default:
		return strings.TrimSpace(os.Getenv(strings.ToUpper(provider) + "_API_KEY"))
	}
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s=%q is not an integer; using %d", key, raw, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config: %s=%q is not a boolean; using %t", key, raw, def)
		return def
	}
	return b
}

func getSeconds(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("config: %s=%q is not a positive number of seconds; using %s", key, raw, def)
		return def
	}
	return time.Duration(n) * time.Second
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

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
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

func normalizeEventsBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "amqp", "rabbitmq":
		return "amqp"
	case "sqs":
		return "sqs"
	default:
		return "none"
	}
}
