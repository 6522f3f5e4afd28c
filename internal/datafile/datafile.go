// Package datafile reads the static JSON or YAML documents the server is
// seeded with (profile, repository catalog).
package datafile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Read decodes the file at path into v. Files ending in .yaml or .yml are
// parsed as YAML and re-encoded as JSON first, so v only needs json tags.
func Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(path, data, v)
}

// Decode is Read for bytes already in memory; name selects the format.
func Decode(name string, data []byte, v any) error {
	if IsYAML(name) {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("converting %s to json: %w", name, err)
		}
		data = converted
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// IsYAML reports whether name has a YAML extension.
func IsYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
