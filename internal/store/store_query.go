package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ListRepositories returns every repository with its manuscript count,
// ordered by name.
func (s *Store) ListRepositories(ctx context.Context) ([]*Repository, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.id, r.name, r.short_name, r.logo_url, r.catalogue_url, COUNT(m.id)
        FROM repositories r
        LEFT JOIN manuscripts m ON m.repository_id = r.id
        GROUP BY r.id
        ORDER BY r.name`)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []*Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}
	return repos, nil
}

// GetRepository fetches one repository with its manuscript count. Returns
// nil when absent.
func (s *Store) GetRepository(ctx context.Context, id int64) (*Repository, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT r.id, r.name, r.short_name, r.logo_url, r.catalogue_url, COUNT(m.id)
        FROM repositories r
        LEFT JOIN manuscripts m ON m.repository_id = r.id
        WHERE r.id = ?
        GROUP BY r.id`, id)
	repo, err := scanRepository(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return repo, nil
}

// ListCollections returns the derived collections within a repository and
// their manuscript counts, ordered by name.
func (s *Store) ListCollections(ctx context.Context, repositoryID int64) ([]CollectionCount, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT collection, COUNT(*)
        FROM manuscripts
        WHERE repository_id = ? AND collection IS NOT NULL AND collection != ''
        GROUP BY collection
        ORDER BY collection`, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []CollectionCount
	for rows.Next() {
		var c CollectionCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return collections, nil
}

// ListManuscripts returns one page of manuscripts matching the filter plus
// the unwindowed total.
func (s *Store) ListManuscripts(ctx context.Context, filter Filter) (*Page, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	conditions := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.RepositoryID != 0 {
		conditions = append(conditions, "m.repository_id = ?")
		args = append(args, filter.RepositoryID)
	}
	if filter.Collection != "" {
		conditions = append(conditions, "m.collection = ?")
		args = append(args, filter.Collection)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM manuscripts m` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count manuscripts: %w", err)
	}

	listArgs := append(append([]any{}, args...), limit, offset)
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+manuscriptJoinColumns+`
        FROM manuscripts m
        JOIN repositories r ON r.id = m.repository_id`+where+`
        ORDER BY r.name, m.shelfmark
        LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list manuscripts: %w", err)
	}
	defer rows.Close()

	var manuscripts []*Manuscript
	for rows.Next() {
		m, err := scanManuscriptJoined(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manuscript: %w", err)
		}
		manuscripts = append(manuscripts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manuscripts: %w", err)
	}

	return &Page{Manuscripts: manuscripts, Total: total, Limit: limit, Offset: offset}, nil
}

// GetManuscript fetches one manuscript with its repository identity joined.
// Returns nil when absent.
func (s *Store) GetManuscript(ctx context.Context, id int64) (*Manuscript, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+manuscriptJoinColumns+`
        FROM manuscripts m
        JOIN repositories r ON r.id = m.repository_id
        WHERE m.id = ?`, id)
	m, err := scanManuscriptJoined(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get manuscript: %w", err)
	}
	return m, nil
}

// FeaturedManuscript returns one random manuscript that has a thumbnail, or
// nil when none qualifies.
func (s *Store) FeaturedManuscript(ctx context.Context) (*Manuscript, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+manuscriptJoinColumns+`
        FROM manuscripts m
        JOIN repositories r ON r.id = m.repository_id
        WHERE m.thumbnail_url IS NOT NULL AND m.thumbnail_url != ''
        ORDER BY RANDOM()
        LIMIT 1`)
	m, err := scanManuscriptJoined(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("featured manuscript: %w", err)
	}
	return m, nil
}

// ManuscriptsMatchingGlob returns a repository's manuscripts whose shelfmark
// matches the SQLite GLOB pattern, ordered by shelfmark. Duplicate
// resolution uses this to find rows keyed by fallback identifiers.
func (s *Store) ManuscriptsMatchingGlob(ctx context.Context, repositoryID int64, pattern string) ([]*Manuscript, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+manuscriptColumns+`
        FROM manuscripts
        WHERE repository_id = ? AND shelfmark GLOB ?
        ORDER BY shelfmark`, repositoryID, pattern)
	if err != nil {
		return nil, fmt.Errorf("match shelfmarks: %w", err)
	}
	defer rows.Close()

	var manuscripts []*Manuscript
	for rows.Next() {
		m, err := scanManuscript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manuscript: %w", err)
		}
		manuscripts = append(manuscripts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manuscripts: %w", err)
	}
	return manuscripts, nil
}

// Stats aggregates per-repository coverage counts, ordered by name.
func (s *Store) Stats(ctx context.Context) ([]RepositoryStats, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.name, r.short_name,
               COUNT(m.id),
               COUNT(m.date_start),
               SUM(CASE WHEN m.image_count > 0 THEN 1 ELSE 0 END),
               SUM(CASE WHEN m.thumbnail_url IS NOT NULL AND m.thumbnail_url != '' THEN 1 ELSE 0 END)
        FROM repositories r
        LEFT JOIN manuscripts m ON m.repository_id = r.id
        GROUP BY r.id
        ORDER BY r.name`)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	defer rows.Close()

	var stats []RepositoryStats
	for rows.Next() {
		var (
			st         RepositoryStats
			withImages sql.NullInt64
			withThumbs sql.NullInt64
		)
		if err := rows.Scan(&st.RepositoryName, &st.ShortName, &st.Total, &st.Dated, &withImages, &withThumbs); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		st.WithImages = int(withImages.Int64)
		st.WithThumbnails = int(withThumbs.Int64)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

func scanRepository(scanner interface{ Scan(dest ...any) error }) (*Repository, error) {
	var (
		id           sql.NullInt64
		name         sql.NullString
		shortName    sql.NullString
		logoURL      sql.NullString
		catalogueURL sql.NullString
		count        sql.NullInt64
	)
	if err := scanner.Scan(&id, &name, &shortName, &logoURL, &catalogueURL, &count); err != nil {
		return nil, err
	}
	return &Repository{
		ID:              id.Int64,
		Name:            name.String,
		ShortName:       shortName.String,
		LogoURL:         logoURL.String,
		CatalogueURL:    catalogueURL.String,
		ManuscriptCount: int(count.Int64),
	}, nil
}

const manuscriptJoinColumns = "m.id, m.repository_id, m.shelfmark, m.collection, m.title, m.date_display, m.date_start, m.date_end, m.contents, m.provenance, m.language, m.folios, m.iiif_manifest_url, m.thumbnail_url, m.source_url, m.image_count, m.created_at, m.updated_at, r.name, r.short_name"

func scanManuscriptJoined(scanner interface{ Scan(dest ...any) error }) (*Manuscript, error) {
	var (
		id           int64
		repositoryID int64
		shelfmark    string
		collection   sql.NullString
		title        sql.NullString
		dateDisplay  sql.NullString
		dateStart    sql.NullInt64
		dateEnd      sql.NullInt64
		contents     sql.NullString
		provenance   sql.NullString
		languageCol  sql.NullString
		folios       sql.NullString
		manifestURL  string
		thumbnailURL sql.NullString
		sourceURL    sql.NullString
		imageCount   sql.NullInt64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		repoName     string
		repoShort    string
	)

	if err := scanner.Scan(
		&id,
		&repositoryID,
		&shelfmark,
		&collection,
		&title,
		&dateDisplay,
		&dateStart,
		&dateEnd,
		&contents,
		&provenance,
		&languageCol,
		&folios,
		&manifestURL,
		&thumbnailURL,
		&sourceURL,
		&imageCount,
		&createdRaw,
		&updatedRaw,
		&repoName,
		&repoShort,
	); err != nil {
		return nil, err
	}

	m := &Manuscript{
		ID:                  id,
		RepositoryID:        repositoryID,
		Shelfmark:           shelfmark,
		Collection:          collection.String,
		Title:               title.String,
		DateDisplay:         dateDisplay.String,
		Contents:            contents.String,
		Provenance:          provenance.String,
		Language:            languageCol.String,
		Folios:              folios.String,
		IIIFManifestURL:     manifestURL,
		ThumbnailURL:        thumbnailURL.String,
		SourceURL:           sourceURL.String,
		RepositoryName:      repoName,
		RepositoryShortName: repoShort,
	}
	if dateStart.Valid {
		v := int(dateStart.Int64)
		m.DateStart = &v
	}
	if dateEnd.Valid {
		v := int(dateEnd.Int64)
		m.DateEnd = &v
	}
	if imageCount.Valid {
		m.ImageCount = int(imageCount.Int64)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		m.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		m.UpdatedAt = updated
	}
	return m, nil
}
