package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trialgraph/internal/logging"
	"trialgraph/internal/retryutil"
	"trialgraph/internal/telemetry"
)

// Load reads configuration from an optional YAML file (CONFIG_FILE, default
// "config.yaml") and then applies environment-variable overrides, following
// the teacher's own "YAML base, env wins" precedent in config.go/loader.go —
// narrowed here to a single deterministic pass instead of the teacher's much
// larger field set.
func Load() (Config, error) {
	// Overload so a local .env can override inherited shell env during
	// development, matching the teacher's bootstrap call in cmd/ entrypoints.
	_ = godotenv.Overload()

	cfg := Config{
		WorkspaceID: "default",
		LLM:         LLMConfig{Temperature: 0.0},
		Retry:       retryutil.Default(),
		Telemetry:   telemetry.Config{ServiceName: "trialgraph"},
		LogLevel:    "info",
	}

	path := firstNonEmpty(strings.TrimSpace(os.Getenv("CONFIG_FILE")), "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	} else {
		logging.Log.Info().Str("path", path).Msg("no config file found, using defaults + environment")
	}

	applyEnvOverrides(&cfg)

	if cfg.RequiredFactKeys == nil {
		cfg.RequiredFactKeys = defaultRequiredFactKeys
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "trialgraph"
	}

	return cfg, nil
}

// defaultRequiredFactKeys mirrors §4.13's minimum coverage set for the
// quality gate when a deployment does not override it.
var defaultRequiredFactKeys = []string{
	"study_id",
	"phase",
	"primary_endpoint",
	"sample_size",
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("WORKSPACE_ID")); v != "" {
		cfg.WorkspaceID = v
	}
	if v := strings.TrimSpace(os.Getenv("POSTGRES_DSN")); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_HOST")); v != "" {
		cfg.Qdrant.Host = v
		cfg.Qdrant.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Qdrant.Port = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")); v != "" {
		cfg.Qdrant.Collection = v
	}

	if v := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.LLM.Anthropic.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL")); v != "" {
		cfg.LLM.Anthropic.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); v != "" {
		cfg.LLM.Anthropic.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.LLM.OpenAI.APIKey = v
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		cfg.LLM.OpenAI.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); v != "" {
		cfg.LLM.OpenAI.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); v != "" {
		cfg.LLM.Google.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_MODEL")); v != "" {
		cfg.LLM.Google.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_BASE_URL")); v != "" {
		cfg.LLM.Google.BaseURL = v
	}

	if v := strings.TrimSpace(os.Getenv("EMBEDDING_BASE_URL")); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")); v != "" {
		cfg.Embedding.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY")); v != "" {
		cfg.Embedding.APIKey = v
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); v != "" {
		cfg.Telemetry.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
