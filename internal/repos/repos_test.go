package repos

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func sampleCatalog() []Repo {
	return []Repo{
		{ID: "1", Name: "UFOgram", URL: "https://github.com/lionelhu/ufogram", Tags: []string{"web", "nextjs"}},
		{ID: "2", Name: "ufogram-api", URL: "https://github.com/lionelhu/ufogram-api", Tags: []string{"go", "backend"}},
		{ID: "3", Name: "photo-site", URL: "https://github.com/lionelhu/photo-site", Tags: []string{"ufogram", "gallery"}},
		{ID: "4", Name: "dotfiles", URL: "https://github.com/lionelhu/dotfiles"},
	}
}

func names(links []Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Name
	}
	return out
}

func TestMatch_ScoreOrdering(t *testing.T) {
	got := Match(sampleCatalog(), "UFOgram")

	// exact+contains (5), contains (2), tag (1)
	want := []string{"UFOgram", "ufogram-api", "photo-site"}
	if !slices.Equal(names(got), want) {
		t.Fatalf("names = %v, want %v", names(got), want)
	}
	if got[0].URL != "https://github.com/lionelhu/ufogram" {
		t.Errorf("URL = %q", got[0].URL)
	}
}

func TestMatch_CaseInsensitive(t *testing.T) {
	lower := names(Match(sampleCatalog(), "ufogram"))
	upper := names(Match(sampleCatalog(), "UFOGRAM"))
	if !slices.Equal(lower, upper) {
		t.Errorf("lower = %v, upper = %v", lower, upper)
	}
	if got := names(Match(sampleCatalog(), "BACKEND")); !slices.Equal(got, []string{"ufogram-api"}) {
		t.Errorf("tag match = %v", got)
	}
}

func TestMatch_NoHits(t *testing.T) {
	got := Match(sampleCatalog(), "nonexistent-project-xyz")
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
}

func TestMatch_BlankQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		got := Match(sampleCatalog(), q)
		if got == nil || len(got) != 0 {
			t.Errorf("Match(%q) = %#v, want empty non-nil slice", q, got)
		}
	}
}

func TestMatch_TrimsQuery(t *testing.T) {
	got := names(Match(sampleCatalog(), "  UFOgram\t"))
	want := names(Match(sampleCatalog(), "UFOgram"))
	if !slices.Equal(got, want) {
		t.Errorf("padded query = %v, want %v", got, want)
	}
	if len(got) == 0 || got[0] != "UFOgram" {
		t.Errorf("padded query should still score the exact name first: %v", got)
	}
}

func TestMatch_CapsResults(t *testing.T) {
	var catalog []Repo
	for i := 0; i < 9; i++ {
		catalog = append(catalog, Repo{ID: fmt.Sprint(i), Name: fmt.Sprintf("tool-%d", i), URL: "https://example.com"})
	}

	got := Match(catalog, "tool")

	if len(got) != MaxResults {
		t.Fatalf("got %d links, want %d", len(got), MaxResults)
	}
	// Equal scores keep catalog order.
	want := []string{"tool-0", "tool-1", "tool-2", "tool-3", "tool-4"}
	if !slices.Equal(names(got), want) {
		t.Errorf("names = %v, want %v", names(got), want)
	}
}

func TestMatch_TagScoredOnce(t *testing.T) {
	catalog := []Repo{
		{Name: "a", URL: "https://example.com/a", Tags: []string{"go", "golang", "go-kit"}},
		{Name: "go", URL: "https://example.com/go"},
	}

	got := Match(catalog, "go")

	// "go" scores 5 by name; "a" scores 1 regardless of how many tags hit.
	if !slices.Equal(names(got), []string{"go", "a"}) {
		t.Errorf("names = %v", names(got))
	}
}

func TestMatch_Deterministic(t *testing.T) {
	catalog := sampleCatalog()
	first := Match(catalog, "o")
	for i := 0; i < 20; i++ {
		if again := Match(catalog, "o"); !slices.Equal(again, first) {
			t.Fatalf("run %d: %v, want %v", i, again, first)
		}
	}
}

func TestNewCatalog_AssignsIDsAndValidates(t *testing.T) {
	c, err := NewCatalog([]Repo{{Name: " UFOgram ", URL: "https://github.com/lionelhu/ufogram"}})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}

	r := c.Repos()[0]
	if r.ID == "" {
		t.Error("expected a generated ID")
	}
	if r.Name != "UFOgram" {
		t.Errorf("Name = %q", r.Name)
	}

	invalid := map[string][]Repo{
		"bad url":      {{Name: "broken", URL: "not a url"}},
		"missing name": {{URL: "https://example.com"}},
		"duplicate id": {
			{ID: "x", Name: "a", URL: "https://example.com/a"},
			{ID: "x", Name: "b", URL: "https://example.com/b"},
		},
	}
	for name, rs := range invalid {
		if _, err := NewCatalog(rs); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCatalog_ReposReturnsCopy(t *testing.T) {
	c, err := NewCatalog(sampleCatalog())
	if err != nil {
		t.Fatal(err)
	}

	got := c.Repos()
	got[0].Name = "mutated"
	got[0].Tags[0] = "mutated"

	if name := c.Repos()[0].Name; name != "UFOgram" {
		t.Errorf("catalog name changed to %q", name)
	}
	want := []Link{{Name: "UFOgram", URL: "https://github.com/lionelhu/ufogram"}}
	if links := c.Match("web"); !slices.Equal(links, want) {
		t.Errorf("Match(web) = %v, want %v", links, want)
	}
}

func TestCatalog_NilIsEmpty(t *testing.T) {
	var c *Catalog
	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}
	if len(c.Repos()) != 0 {
		t.Errorf("Repos = %v", c.Repos())
	}
	if c.Match("anything") == nil {
		t.Error("Match on nil catalog returned nil")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"array.json":   `[{"id":"1","name":"UFOgram","url":"https://github.com/lionelhu/ufogram","tags":["web"]}]`,
		"wrapped.json": `{"repos":[{"id":"1","name":"UFOgram","url":"https://github.com/lionelhu/ufogram"}]}`,
		"array.yaml":   "- id: \"1\"\n  name: UFOgram\n  url: https://github.com/lionelhu/ufogram\n",
		"wrapped.yml":  "repos:\n  - name: UFOgram\n    url: https://github.com/lionelhu/ufogram\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}

			c, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if c.Len() != 1 {
				t.Fatalf("Len = %d", c.Len())
			}
			if got := c.Repos()[0].Name; got != "UFOgram" {
				t.Errorf("Name = %q", got)
			}
		})
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`"just a string"`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for a non-catalog document")
	}
}
