package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by POLICYGATE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("POLICYGATE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL returns the Postgres connection string. When empty, the
// service runs on the in-memory policy index and the SQLite audit log.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// AuditDBPath returns the SQLite file for the audit log.
// Defaults to "audit.db".
func AuditDBPath() string {
	p := os.Getenv("AUDIT_DB_PATH")
	if p == "" {
		return "audit.db"
	}
	return p
}

// PolicyDir returns the directory of static policy files to ingest at
// startup. Defaults to "policies".
func PolicyDir() string {
	p := os.Getenv("POLICY_DIR")
	if p == "" {
		return "policies"
	}
	return p
}

// IngestSchedule returns the cron expression for periodic re-ingestion.
// Empty means no schedule (ingest once at startup and on demand).
func IngestSchedule() string {
	return os.Getenv("INGEST_SCHEDULE")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// GenerationProvider returns the primary generation provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, gemini, cerebras, mock
func GenerationProvider() string {
	p := os.Getenv("GENERATION_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// FallbackProvider returns the fallback generation provider.
// Defaults to "anthropic" if not set.
func FallbackProvider() string {
	p := os.Getenv("FALLBACK_PROVIDER")
	if p == "" {
		return "anthropic"
	}
	return p
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "openai" if not set.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

func providerAPIKey(provider string) string {
	switch provider {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// GenerationAPIKey returns the API key for the primary provider.
func GenerationAPIKey() string {
	return providerAPIKey(GenerationProvider())
}

// FallbackAPIKey returns the API key for the fallback provider.
func FallbackAPIKey() string {
	return providerAPIKey(FallbackProvider())
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// TopK returns how many policies are retrieved per moderation request.
// Defaults to 5.
func TopK() int {
	k, err := strconv.Atoi(os.Getenv("TOP_K"))
	if err != nil || k <= 0 {
		return 5
	}
	return k
}

// PromptCharBudget caps the size of the augmented prompt. Lowest-scoring
// policies are dropped first when over budget. Defaults to 12000.
func PromptCharBudget() int {
	b, err := strconv.Atoi(os.Getenv("PROMPT_CHAR_BUDGET"))
	if err != nil || b <= 0 {
		return 12000
	}
	return b
}

// GenerationRetries returns how many times the primary provider is retried
// on transient failure before falling over. Defaults to 2.
func GenerationRetries() int {
	r, err := strconv.Atoi(os.Getenv("GENERATION_RETRIES"))
	if err != nil || r < 0 {
		return 2
	}
	return r
}

// GenerationTimeout is the per-attempt timeout for one provider call.
// Defaults to 15s.
func GenerationTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("GENERATION_TIMEOUT"))
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// DecideBudget is the total wall-clock ceiling for one decide call,
// covering all retries and the fallback attempt. Defaults to 60s.
func DecideBudget() time.Duration {
	d, err := time.ParseDuration(os.Getenv("DECIDE_BUDGET"))
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// IngestConcurrency bounds concurrent embedding calls during ingestion.
// Defaults to 4.
func IngestConcurrency() int {
	n, err := strconv.Atoi(os.Getenv("INGEST_CONCURRENCY"))
	if err != nil || n <= 0 {
		return 4
	}
	return n
}

// APIKey returns the static key required on authenticated routes.
// Empty disables auth (local development).
func APIKey() string {
	return os.Getenv("API_KEY")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
