package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// secretsFile reads secrets from a JSON file laid out as
// {"service": {"account": "value"}}, readable only by the owner.
type secretsFile struct {
	path string
}

func (s secretsFile) file() string {
	if s.path != "" {
		return s.path
	}
	return secretsFilePath()
}

func (s secretsFile) load() (map[string]map[string]string, error) {
	data, err := os.ReadFile(s.file())
	if err != nil {
		return nil, fmt.Errorf("secrets file not available: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func (s secretsFile) Get(service, account string) (string, error) {
	secrets, err := s.load()
	if err != nil {
		return "", err
	}
	svc, ok := secrets[service]
	if !ok {
		return "", fmt.Errorf("service %q not found", service)
	}
	val, ok := svc[account]
	if !ok {
		return "", fmt.Errorf("account %q not found in service %q", account, service)
	}
	return strings.TrimSpace(val), nil
}

func (s secretsFile) Set(service, account, value string) error {
	secrets, _ := s.load()
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	p := s.file()
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, out, 0o600)
}

// SetSecret stores the completion API key in the secrets file.
func SetSecret(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: empty API key", ErrInvalid)
	}
	return secretsFile{}.Set(secretService, secretAPIKeyName, value)
}
