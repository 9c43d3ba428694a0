package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"compilatio/internal/config"
)

// Store manages aggregate persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the configured aggregate database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.Paths.Database)
}

// OpenPath connects to the database at path, creating parent directories as
// needed. Import runs use this for --db and --test overrides.
func OpenPath(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database answers queries; the API health endpoint uses it.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// EnsureRepository returns the id for the repository with the seed's short
// name, inserting the row on first contact. Identity fields are written only
// at creation.
func (s *Store) EnsureRepository(ctx context.Context, seed RepositorySeed) (int64, error) {
	if strings.TrimSpace(seed.ShortName) == "" {
		return 0, errors.New("repository short name required")
	}
	if strings.TrimSpace(seed.Name) == "" {
		return 0, errors.New("repository name required")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM repositories WHERE short_name = ?`, seed.ShortName).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find repository: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO repositories (name, short_name, logo_url, catalogue_url) VALUES (?, ?, ?, ?)`,
		seed.Name,
		seed.ShortName,
		nullableString(seed.LogoURL),
		nullableString(seed.CatalogueURL),
	)
	if err != nil {
		return 0, fmt.Errorf("insert repository: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// FindRepositoryID looks up a repository by short name without creating it.
// Returns 0 when absent. Dry runs use this so previewing an import never
// writes a repository row.
func (s *Store) FindRepositoryID(ctx context.Context, shortName string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM repositories WHERE short_name = ?`, shortName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find repository: %w", err)
	}
	return id, nil
}

// FindManuscript fetches a manuscript by its natural key. Returns nil when
// absent.
func (s *Store) FindManuscript(ctx context.Context, repositoryID int64, shelfmark string) (*Manuscript, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+manuscriptColumns+` FROM manuscripts WHERE repository_id = ? AND shelfmark = ?`,
		repositoryID,
		shelfmark,
	)
	m, err := scanManuscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find manuscript: %w", err)
	}
	return m, nil
}

// InsertManuscript persists a new manuscript and returns it with its id and
// timestamps populated.
func (s *Store) InsertManuscript(ctx context.Context, m *Manuscript) (*Manuscript, error) {
	if err := validateManuscript(m); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO manuscripts (
            repository_id, shelfmark, collection, title, date_display,
            date_start, date_end, contents, provenance, language, folios,
            iiif_manifest_url, thumbnail_url, source_url, image_count,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RepositoryID,
		m.Shelfmark,
		nullableString(m.Collection),
		nullableString(m.Title),
		nullableString(m.DateDisplay),
		nullableInt(m.DateStart),
		nullableInt(m.DateEnd),
		nullableString(m.Contents),
		nullableString(m.Provenance),
		nullableString(m.Language),
		nullableString(m.Folios),
		m.IIIFManifestURL,
		nullableString(m.ThumbnailURL),
		nullableString(m.SourceURL),
		m.ImageCount,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert manuscript: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetManuscript(ctx, id)
}

// UpdateManuscript persists changes to an existing manuscript by id.
func (s *Store) UpdateManuscript(ctx context.Context, m *Manuscript) error {
	if m == nil {
		return errors.New("manuscript is nil")
	}
	if m.ID == 0 {
		return errors.New("manuscript id required")
	}
	if err := validateManuscript(m); err != nil {
		return err
	}

	m.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE manuscripts
         SET shelfmark = ?, collection = ?, title = ?, date_display = ?,
             date_start = ?, date_end = ?, contents = ?, provenance = ?,
             language = ?, folios = ?, iiif_manifest_url = ?, thumbnail_url = ?,
             source_url = ?, image_count = ?, updated_at = ?
         WHERE id = ?`,
		m.Shelfmark,
		nullableString(m.Collection),
		nullableString(m.Title),
		nullableString(m.DateDisplay),
		nullableInt(m.DateStart),
		nullableInt(m.DateEnd),
		nullableString(m.Contents),
		nullableString(m.Provenance),
		nullableString(m.Language),
		nullableString(m.Folios),
		m.IIIFManifestURL,
		nullableString(m.ThumbnailURL),
		nullableString(m.SourceURL),
		m.ImageCount,
		m.UpdatedAt.Format(time.RFC3339Nano),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("update manuscript: %w", err)
	}
	return nil
}

// DeleteManuscript removes a manuscript row; only duplicate resolution uses
// this.
func (s *Store) DeleteManuscript(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM manuscripts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete manuscript: %w", err)
	}
	return nil
}

func validateManuscript(m *Manuscript) error {
	if m == nil {
		return errors.New("manuscript is nil")
	}
	if m.RepositoryID == 0 {
		return errors.New("manuscript repository id required")
	}
	if strings.TrimSpace(m.Shelfmark) == "" {
		return errors.New("manuscript shelfmark required")
	}
	if strings.TrimSpace(m.IIIFManifestURL) == "" {
		return errors.New("manuscript iiif manifest url required")
	}
	if m.ImageCount < 0 {
		return fmt.Errorf("manuscript image count %d is negative", m.ImageCount)
	}
	if m.DateStart != nil && m.DateEnd != nil && *m.DateStart > *m.DateEnd {
		return fmt.Errorf("manuscript date range inverted: %d > %d", *m.DateStart, *m.DateEnd)
	}
	return nil
}
