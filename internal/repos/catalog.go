// Package repos holds the read-only repository catalog and the keyword
// matcher that turns a tool query into repository links.
package repos

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lionelhu/foliochat/internal/datafile"
)

// Repo is one entry of the catalog.
type Repo struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name" validate:"required"`
	URL  string   `json:"url" yaml:"url" validate:"required,url"`
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Link is what the matcher returns to the page.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Catalog is an immutable list of repositories. It is safe for concurrent
// use because nothing mutates it after construction.
type Catalog struct {
	repos []Repo
}

var validate = validator.New()

// NewCatalog validates entries and copies them into a Catalog. Entries
// without an ID get a random UUID.
func NewCatalog(entries []Repo) (*Catalog, error) {
	out := make([]Repo, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, r := range entries {
		r.Name = strings.TrimSpace(r.Name)
		r.URL = strings.TrimSpace(r.URL)
		if err := validate.Struct(r); err != nil {
			return nil, fmt.Errorf("repo %d (%q): %w", i, r.Name, err)
		}
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("repo %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		r.Tags = append([]string(nil), r.Tags...)
		out = append(out, r)
	}
	return &Catalog{repos: out}, nil
}

// LoadFile reads a catalog from a JSON or YAML file. The document may be a
// bare array of repos or an object with a "repos" array.
func LoadFile(path string) (*Catalog, error) {
	var raw json.RawMessage
	if err := datafile.Read(path, &raw); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	var entries []Repo
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			Repos []Repo `json:"repos"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
		}
		entries = wrapped.Repos
	}

	c, err := NewCatalog(entries)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Repos returns a copy of the catalog entries in their original order.
func (c *Catalog) Repos() []Repo {
	if c == nil {
		return []Repo{}
	}
	out := make([]Repo, len(c.repos))
	for i, r := range c.repos {
		r.Tags = append([]string(nil), r.Tags...)
		out[i] = r
	}
	return out
}

// Len reports the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.repos)
}

// Match runs the keyword matcher over the catalog.
func (c *Catalog) Match(query string) []Link {
	if c == nil {
		return []Link{}
	}
	return Match(c.repos, query)
}
