package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/lionelhu/foliochat/internal/repos"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRepos() []repos.Repo {
	return []repos.Repo{
		{ID: "ufogram", Name: "UFOgram", URL: "https://github.com/lionelhu/ufogram", Tags: []string{"web", "nextjs"}},
		{ID: "photo", Name: "photo-site", URL: "https://github.com/lionelhu/photo-site"},
		{ID: "api", Name: "ufogram-api", URL: "https://github.com/lionelhu/ufogram-api", Tags: []string{"go"}},
	}
}

// TestMigrationsIdempotent opens the same database twice and verifies the
// schema version is unchanged by the second Open.
func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if err := s1.ReplaceRepos(ctx, sampleRepos()); err != nil {
		t.Fatalf("ReplaceRepos: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v1 != v2 || v1 < 1 {
		t.Errorf("schema version %d -> %d", v1, v2)
	}

	got, err := s2.ListRepos(ctx)
	if err != nil {
		t.Fatalf("ListRepos: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("repos after reopen = %d, want 3", len(got))
	}
}

func TestReplaceRepos_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.ReplaceRepos(ctx, sampleRepos()); err != nil {
		t.Fatalf("ReplaceRepos: %v", err)
	}
	got, err := s.ListRepos(ctx)
	if err != nil {
		t.Fatalf("ListRepos: %v", err)
	}

	want := []string{"ufogram", "photo", "api"}
	if len(got) != len(want) {
		t.Fatalf("got %d repos, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("repo %d = %q, want %q", i, got[i].ID, id)
		}
	}
	if len(got[0].Tags) != 2 || got[0].Tags[1] != "nextjs" {
		t.Errorf("tags = %v", got[0].Tags)
	}
	if got[1].Tags != nil {
		t.Errorf("empty tags = %#v, want nil", got[1].Tags)
	}

	// A second replace drops everything from the first.
	if err := s.ReplaceRepos(ctx, sampleRepos()[:1]); err != nil {
		t.Fatalf("ReplaceRepos: %v", err)
	}
	got, err = s.ListRepos(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("repos after replace = %d, want 1", len(got))
	}
}

func TestReplaceRepos_DuplicateIDRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.ReplaceRepos(ctx, sampleRepos()); err != nil {
		t.Fatal(err)
	}
	dup := []repos.Repo{
		{ID: "x", Name: "a", URL: "https://example.com/a"},
		{ID: "x", Name: "b", URL: "https://example.com/b"},
	}
	if err := s.ReplaceRepos(ctx, dup); err == nil {
		t.Fatal("expected error for duplicate id")
	}

	got, err := s.ListRepos(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("catalog changed after failed replace: %d repos", len(got))
	}
}

func TestUpsertRepo(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.ReplaceRepos(ctx, sampleRepos()[:2]); err != nil {
		t.Fatal(err)
	}

	// New id goes to the end.
	if err := s.UpsertRepo(ctx, sampleRepos()[2]); err != nil {
		t.Fatalf("UpsertRepo(new): %v", err)
	}
	// Existing id is updated in place.
	updated := sampleRepos()[0]
	updated.URL = "https://github.com/lionelhu/ufogram-v2"
	if err := s.UpsertRepo(ctx, updated); err != nil {
		t.Fatalf("UpsertRepo(existing): %v", err)
	}

	got, err := s.ListRepos(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "ufogram" || got[2].ID != "api" {
		t.Fatalf("order = %+v", got)
	}
	if got[0].URL != "https://github.com/lionelhu/ufogram-v2" {
		t.Errorf("URL = %q", got[0].URL)
	}

	if err := s.UpsertRepo(ctx, repos.Repo{Name: "no id"}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestGetAndDeleteRepo(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.ReplaceRepos(ctx, sampleRepos()); err != nil {
		t.Fatal(err)
	}

	r, err := s.GetRepo(ctx, "photo")
	if err != nil {
		t.Fatalf("GetRepo: %v", err)
	}
	if r.Name != "photo-site" {
		t.Errorf("Name = %q", r.Name)
	}

	if err := s.DeleteRepo(ctx, "photo"); err != nil {
		t.Fatalf("DeleteRepo: %v", err)
	}
	if _, err := s.GetRepo(ctx, "photo"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRepo after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteRepo(ctx, "photo"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteRepo: err = %v, want ErrNotFound", err)
	}
}

func TestLoadCatalog(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.ReplaceRepos(ctx, sampleRepos()); err != nil {
		t.Fatal(err)
	}

	c, err := s.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	links := c.Match("ufogram")
	if len(links) != 2 || links[0].Name != "UFOgram" {
		t.Errorf("Match = %+v", links)
	}
}
