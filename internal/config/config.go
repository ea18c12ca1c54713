// Package config holds the single immutable Config struct every cmd/
// entrypoint loads once at process start, per SPEC_FULL §1's
// "Configuration" ambient-stack entry. Shape and yaml-tag style follow the
// teacher's config.go; the field set itself is rebuilt for this domain
// (LLM/embedding providers, persistence DSNs, zone rulebook/fact catalog,
// retry/telemetry knobs) since the teacher's own Config describes a
// different product.
package config

import (
	"trialgraph/internal/facts"
	"trialgraph/internal/retryutil"
	"trialgraph/internal/telemetry"
	"trialgraph/internal/zones"
)

// AnthropicConfig configures the internal/llm/anthropic provider.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// OpenAIConfig configures the internal/llm/openai provider, used both as an
// alternate Chat provider and as the default embedding backend.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// GoogleConfig configures the internal/llm/google (Gemini) provider.
type GoogleConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// LLMConfig selects the §4.9 value-normalization Chat provider and its
// shared sampling knob. Provider names match the keys
// internal/llm/providers.Build dispatches on.
type LLMConfig struct {
	Provider    string          `yaml:"provider"` // "anthropic" | "openai" | "google" | "" (disabled)
	Temperature float64         `yaml:"temperature"`
	Anthropic   AnthropicConfig `yaml:"anthropic"`
	OpenAI      OpenAIConfig    `yaml:"openai"`
	Google      GoogleConfig    `yaml:"google"`
}

// EmbeddingConfig configures the HTTP-backed embedding client in
// internal/embedding. Mirrors the teacher's config.EmbeddingConfig shape
// (host/api_key/dimensions) plus the path/header/timeout fields the
// teacher's internal/embedding/client.go reads directly.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Path       string `yaml:"path"`
	APIHeader  string `yaml:"api_header"` // "Authorization" or a custom header name
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Timeout    int    `yaml:"timeout_seconds"`
}

// PostgresConfig is the pgxpool DSN for internal/store.PostgresStore.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// QdrantConfig enables the alternate vector-store backend for chunk
// embeddings; disabled (Postgres-only) by default.
type QdrantConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// RedisConfig enables the optional idempotency/dedup fast-path cache in
// front of the Postgres ingestion_runs lookup; Postgres remains the system
// of record regardless of whether this is enabled.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// Config is the fully-resolved process configuration, loaded once via Load
// and passed by value (or pointer) to every collaborator that needs it.
type Config struct {
	WorkspaceID      string   `yaml:"workspace_id"`
	RequiredFactKeys []string `yaml:"required_fact_keys"`

	Postgres  PostgresConfig  `yaml:"postgres"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Redis     RedisConfig     `yaml:"redis"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`

	Retry     retryutil.Config  `yaml:"-"`
	Telemetry telemetry.Config  `yaml:"telemetry"`

	LogLevel string `yaml:"log_level"`
}

// Rulebook returns the zone-classification rulebook this config's pipeline
// runs use. The rulebook is a fixed Go value (compiled regex patterns, not
// YAML-serializable data), matching §6's resolution that the rule set is
// versioned in code and contributes to pipeline_config_hash via its own
// Hash method rather than via a config file diff.
func (c Config) Rulebook() zones.Rulebook {
	return zones.DefaultRulebook()
}

// FactCatalog returns the rules-based extraction catalog, for the same
// reason Rulebook is fixed: ParseValue closures cannot round-trip through
// YAML.
func (c Config) FactCatalog() []facts.Rule {
	return facts.DefaultCatalog()
}
