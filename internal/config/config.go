package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Completion CompletionConfig
	Chat       ChatConfig
	Data       DataConfig
	Storage    StorageConfig
}

type ServerConfig struct {
	Host string `validate:"required"`
	Port int    `validate:"min=1,max=65535"`
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json"`
}

// CompletionConfig selects and tunes the hosted model.
type CompletionConfig struct {
	Provider    string        `validate:"oneof=openai gemini"`
	BaseURL     string        `validate:"omitempty,url"`
	Model       string        `validate:"required"`
	Temperature float64       `validate:"gte=0,lte=2"`
	Timeout     time.Duration `validate:"gt=0"`
	APIKey      string
}

// ChatConfig bounds the conversation window.
type ChatConfig struct {
	MaxMessages int `validate:"min=1"`
	MaxChars    int `validate:"min=1"`
}

type DataConfig struct {
	ProfilePath   string `validate:"required"`
	ResumePDF     string
	CatalogPath   string `validate:"required_if=CatalogSource file"`
	CatalogSource string `validate:"oneof=file sqlite"`
}

type StorageConfig struct {
	DataDir string `validate:"required"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	CatalogFromFile   = "file"
	CatalogFromSQLite = "sqlite"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Completion: CompletionConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			Timeout:     60 * time.Second,
		},
		Chat: ChatConfig{
			MaxMessages: 12,
			MaxChars:    6000,
		},
		Data: DataConfig{
			ProfilePath:   "profile.json",
			CatalogPath:   "repos.json",
			CatalogSource: CatalogFromFile,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
	}
}

// Load reads configuration from the YAML file at
// $XDG_CONFIG_HOME/foliochat/config.yaml, then applies FOLIOCHAT_*
// environment overrides. The completion API key is never read from the
// config file: it comes from FOLIOCHAT_COMPLETION_API_KEY or, failing that,
// the secrets file under the data directory.
func Load() (Config, error) {
	b, err := newFileBackend(configFilePath())
	if err != nil {
		return Config{}, err
	}
	return loadWith(b, secretsFile{})
}

// keychain abstracts secret lookup for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

const (
	secretService    = "foliochat"
	secretAPIKeyName = "completion_api_key"
)

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Completion.APIKey == "" {
		if key, err := kc.Get(secretService, secretAPIKeyName); err == nil && key != "" {
			cfg.Completion.APIKey = strings.TrimSpace(key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints. It does not require an API key; use
// RequireAPIKey where a completion client is actually built.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// RequireAPIKey reports a descriptive error when no completion key is set.
func (c Config) RequireAPIKey() error {
	if c.Completion.APIKey != "" {
		return nil
	}
	return fmt.Errorf("missing required config: completion API key. "+
		"Set it via environment variable %s or `foliochat config set-secret`", envAPIKey)
}
