// Package storage keeps the repository catalog in SQLite so it can be
// curated from the CLI instead of a hand-edited file.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/lionelhu/foliochat/internal/repos"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

const dbFile = "foliochat.db"

// Store wraps the catalog database.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database in dataDir and applies pending
// migrations. Pass ":memory:" for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, dbFile)
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory database
	// exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := applyMigrations(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT version FROM schema_migrations LIMIT 1"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

type repoRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	URL      string `db:"url"`
	Tags     string `db:"tags"`
	Position int    `db:"position"`
}

func toRow(r repos.Repo, position int) (repoRow, error) {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return repoRow{}, fmt.Errorf("encoding tags: %w", err)
	}
	return repoRow{ID: r.ID, Name: r.Name, URL: r.URL, Tags: string(b), Position: position}, nil
}

func (row repoRow) repo() (repos.Repo, error) {
	var tags []string
	if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
		return repos.Repo{}, fmt.Errorf("decoding tags of %s: %w", row.ID, err)
	}
	if len(tags) == 0 {
		tags = nil
	}
	return repos.Repo{ID: row.ID, Name: row.Name, URL: row.URL, Tags: tags}, nil
}

// ListRepos returns every repo in catalog order.
func (s *Store) ListRepos(ctx context.Context) ([]repos.Repo, error) {
	var rows []repoRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, url, tags, position FROM repos ORDER BY position ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	out := make([]repos.Repo, 0, len(rows))
	for _, row := range rows {
		r, err := row.repo()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// GetRepo returns the repo with the given id or ErrNotFound.
func (s *Store) GetRepo(ctx context.Context, id string) (repos.Repo, error) {
	var row repoRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, url, tags, position FROM repos WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return repos.Repo{}, ErrNotFound
	}
	if err != nil {
		return repos.Repo{}, fmt.Errorf("getting repo %s: %w", id, err)
	}
	return row.repo()
}

// UpsertRepo inserts r at the end of the catalog, or updates it in place if
// its id already exists. r.ID must be set.
func (s *Store) UpsertRepo(ctx context.Context, r repos.Repo) error {
	if r.ID == "" {
		return errors.New("upserting repo: empty id")
	}
	row, err := toRow(r, 0)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO repos (id, name, url, tags, position)
		VALUES (:id, :name, :url, :tags, (SELECT COALESCE(MAX(position), -1) + 1 FROM repos))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			tags = excluded.tags,
			updated_at = CURRENT_TIMESTAMP`, row)
	if err != nil {
		return fmt.Errorf("upserting repo %s: %w", r.ID, err)
	}
	return nil
}

// ReplaceRepos swaps the whole catalog for rs in a single transaction,
// keeping the order of rs.
func (s *Store) ReplaceRepos(ctx context.Context, rs []repos.Repo) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM repos`); err != nil {
		return fmt.Errorf("clearing repos: %w", err)
	}
	for i, r := range rs {
		row, err := toRow(r, i)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO repos (id, name, url, tags, position)
			VALUES (:id, :name, :url, :tags, :position)`, row); err != nil {
			return fmt.Errorf("inserting repo %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteRepo removes a repo by id.
func (s *Store) DeleteRepo(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM repos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting repo %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadCatalog reads all repos into an immutable catalog.
func (s *Store) LoadCatalog(ctx context.Context) (*repos.Catalog, error) {
	rs, err := s.ListRepos(ctx)
	if err != nil {
		return nil, err
	}
	return repos.NewCatalog(rs)
}
