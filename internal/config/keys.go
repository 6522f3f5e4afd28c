package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
	kDuration
)

const envAPIKey = "FOLIOCHAT_COMPLETION_API_KEY"

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "FOLIOCHAT_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "FOLIOCHAT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "FOLIOCHAT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "FOLIOCHAT_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "completion.provider", typ: kString, env: "FOLIOCHAT_COMPLETION_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Completion.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Provider },
	},
	{
		key: "completion.base_url", typ: kString, env: "FOLIOCHAT_COMPLETION_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Completion.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.BaseURL },
	},
	{
		key: "completion.model", typ: kString, env: "FOLIOCHAT_COMPLETION_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Completion.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Model },
	},
	{
		key: "completion.temperature", typ: kFloat, env: "FOLIOCHAT_COMPLETION_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Completion.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Completion.Temperature },
	},
	{
		key: "completion.timeout", typ: kDuration, env: "FOLIOCHAT_COMPLETION_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Completion.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Completion.Timeout },
	},
	{
		key: "completion.api_key", typ: kString, env: envAPIKey,
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Completion.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.APIKey },
	},
	{
		key: "chat.max_messages", typ: kInt, env: "FOLIOCHAT_CHAT_MAX_MESSAGES",
		apply:   func(cfg *Config, v any) { cfg.Chat.MaxMessages = v.(int) },
		extract: func(cfg Config) any { return cfg.Chat.MaxMessages },
	},
	{
		key: "chat.max_chars", typ: kInt, env: "FOLIOCHAT_CHAT_MAX_CHARS",
		apply:   func(cfg *Config, v any) { cfg.Chat.MaxChars = v.(int) },
		extract: func(cfg Config) any { return cfg.Chat.MaxChars },
	},
	{
		key: "data.profile_path", typ: kString, env: "FOLIOCHAT_DATA_PROFILE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Data.ProfilePath = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.ProfilePath },
	},
	{
		key: "data.resume_pdf", typ: kString, env: "FOLIOCHAT_DATA_RESUME_PDF",
		apply:   func(cfg *Config, v any) { cfg.Data.ResumePDF = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.ResumePDF },
	},
	{
		key: "data.catalog_path", typ: kString, env: "FOLIOCHAT_DATA_CATALOG_PATH",
		apply:   func(cfg *Config, v any) { cfg.Data.CatalogPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.CatalogPath },
	},
	{
		key: "data.catalog_source", typ: kString, env: "FOLIOCHAT_DATA_CATALOG_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Data.CatalogSource = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.CatalogSource },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOLIOCHAT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
}

// parse converts raw into the Go type of s.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, s.key, raw, err)
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
