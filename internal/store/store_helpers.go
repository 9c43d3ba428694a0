package store

import (
	"database/sql"
	"errors"
	"time"
)

const manuscriptColumns = "id, repository_id, shelfmark, collection, title, date_display, date_start, date_end, contents, provenance, language, folios, iiif_manifest_url, thumbnail_url, source_url, image_count, created_at, updated_at"

func scanManuscript(scanner interface{ Scan(dest ...any) error }) (*Manuscript, error) {
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
	); err != nil {
		return nil, err
	}

	m := &Manuscript{
		ID:              id,
		RepositoryID:    repositoryID,
		Shelfmark:       shelfmark,
		Collection:      collection.String,
		Title:           title.String,
		DateDisplay:     dateDisplay.String,
		Contents:        contents.String,
		Provenance:      provenance.String,
		Language:        languageCol.String,
		Folios:          folios.String,
		IIIFManifestURL: manifestURL,
		ThumbnailURL:    thumbnailURL.String,
		SourceURL:       sourceURL.String,
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

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
