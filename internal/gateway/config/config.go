// Package config loads gateway settings from the environment, after merging
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"codelens/internal/logging"
)

type Config struct {
	Port    string
	Env     string
	Log     logging.Config
	LLM     LLMConfig
	Store   StoreConfig
	Archive ArchiveConfig
	Learn   LearnConfig
}

type LLMConfig struct {
	GeminiAPIKey string
	GroqAPIKey   string
	GeminiModel  string
	GroqModel    string
	GroqBaseURL  string
	// Fake answers every call offline with canned replies.
	Fake    bool
	RPS     float64
	Burst   int
	Retries int
}

type StoreConfig struct {
	Path        string
	PostgresDSN string
}

// ArchiveConfig selects where run artifacts go: memory, s3 or postgres.
type ArchiveConfig struct {
	Backend     string
	Endpoint    string
	Region      string
	AccessKey   string
	SecretKey   string
	Bucket      string
	UseSSL      bool
	PostgresDSN string
}

type LearnConfig struct {
	MaxFiles     int
	MaxDepth     int
	PreviewChars int
}

// Load reads .env, when present, and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Unset values take their defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := env{get: getenv, errs: new([]error)}
	cfg := &Config{
		Port: normalizePort(firstNonEmpty(e.str("PORT"), ":8081")),
		Env:  firstNonEmpty(e.str("APP_ENV"), "local"),
		Log: logging.Config{
			Level:  firstNonEmpty(e.str("LOG_LEVEL"), "info"),
			Format: firstNonEmpty(e.str("LOG_FORMAT"), "json"),
		},
		LLM: LLMConfig{
			GeminiAPIKey: e.str("GEMINI_API_KEY"),
			GroqAPIKey:   e.str("GROQ_API_KEY"),
			GeminiModel:  e.str("GEMINI_MODEL"),
			GroqModel:    e.str("GROQ_MODEL"),
			GroqBaseURL:  e.str("GROQ_BASE_URL"),
			Fake:         e.boolean("LLM_FAKE", false),
			RPS:          e.float("LLM_RPS", 1),
			Burst:        e.integer("LLM_BURST", 2),
			Retries:      e.integer("LLM_RETRIES", 3),
		},
		Store: StoreConfig{
			Path:        firstNonEmpty(e.str("PROJECT_STATE_PATH"), "tmp/project_state.json"),
			PostgresDSN: e.str("PROJECT_STORE_PG_DSN"),
		},
		Learn: LearnConfig{
			MaxFiles:     e.integer("LEARN_MAX_FILES", 20),
			MaxDepth:     e.integer("LEARN_MAX_DEPTH", 3),
			PreviewChars: e.integer("LEARN_PREVIEW_CHARS", 1000),
		},
	}
	cfg.Archive = loadArchiveConfig(e, cfg.Env)
	if err := e.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadArchiveConfig(e env, appEnv string) ArchiveConfig {
	local := strings.EqualFold(appEnv, "local")
	a := ArchiveConfig{
		Backend:     strings.ToLower(firstNonEmpty(e.str("ARTIFACT_BACKEND"), "memory")),
		Endpoint:    e.str("ARTIFACT_S3_ENDPOINT"),
		Region:      firstNonEmpty(e.str("ARTIFACT_S3_REGION"), "us-east-1"),
		AccessKey:   firstNonEmpty(e.str("ARTIFACT_S3_ACCESS_KEY"), e.str("MINIO_ROOT_USER")),
		SecretKey:   firstNonEmpty(e.str("ARTIFACT_S3_SECRET_KEY"), e.str("MINIO_ROOT_PASSWORD")),
		Bucket:      firstNonEmpty(e.str("ARTIFACT_S3_BUCKET"), "codelens-artifacts"),
		UseSSL:      e.boolean("ARTIFACT_S3_USE_SSL", !local),
		PostgresDSN: firstNonEmpty(e.str("ARTIFACT_PG_DSN"), e.str("PROJECT_STORE_PG_DSN")),
	}
	if local {
		a = withLocalArchiveDefaults(a)
	}
	return a
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// env reads typed values and collects every malformed one.
type env struct {
	get  func(string) string
	errs *[]error
}

func (e env) str(key string) string { return strings.TrimSpace(e.get(key)) }

func (e env) fail(key, raw string, err error) {
	*e.errs = append(*e.errs, fmt.Errorf("config: %s=%q: %w", key, raw, err))
}

func (e env) integer(key string, def int) int {
	raw := e.str(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, raw, err)
		return def
	}
	return v
}

func (e env) float(key string, def float64) float64 {
	raw := e.str(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.fail(key, raw, err)
		return def
	}
	return v
}

func (e env) boolean(key string, def bool) bool {
	raw := e.str(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, raw, err)
		return def
	}
	return v
}

func (e env) err() error { return errors.Join(*e.errs...) }
