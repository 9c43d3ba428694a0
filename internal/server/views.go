package server

import (
	"time"

	"compilatio/internal/store"
)

type healthResponse struct {
	Status string `json:"status"`
}

type repositoryView struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ShortName       string `json:"short_name"`
	LogoURL         string `json:"logo_url,omitempty"`
	CatalogueURL    string `json:"catalogue_url,omitempty"`
	ManuscriptCount int    `json:"manuscript_count"`
}

type collectionView struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type manuscriptView struct {
	ID              int64  `json:"id"`
	RepositoryID    int64  `json:"repository_id"`
	Shelfmark       string `json:"shelfmark"`
	Collection      string `json:"collection,omitempty"`
	Title           string `json:"title,omitempty"`
	DateDisplay     string `json:"date_display,omitempty"`
	DateStart       *int   `json:"date_start,omitempty"`
	DateEnd         *int   `json:"date_end,omitempty"`
	Contents        string `json:"contents,omitempty"`
	Provenance      string `json:"provenance,omitempty"`
	Language        string `json:"language,omitempty"`
	Folios          string `json:"folios,omitempty"`
	IIIFManifestURL string `json:"iiif_manifest_url"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	ImageCount      int    `json:"image_count"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`

	RepositoryName      string `json:"repository_name,omitempty"`
	RepositoryShortName string `json:"repository_short_name,omitempty"`
}

type repositoryListResponse struct {
	Repositories []repositoryView `json:"repositories"`
}

type repositoryDetailResponse struct {
	Repository  repositoryView   `json:"repository"`
	Collections []collectionView `json:"collections"`
}

type manuscriptListResponse struct {
	Total       int              `json:"total"`
	Limit       int              `json:"limit"`
	Offset      int              `json:"offset"`
	Manuscripts []manuscriptView `json:"manuscripts"`
}

type manuscriptResponse struct {
	Manuscript manuscriptView `json:"manuscript"`
}

func fromRepository(r *store.Repository) repositoryView {
	return repositoryView{
		ID:              r.ID,
		Name:            r.Name,
		ShortName:       r.ShortName,
		LogoURL:         r.LogoURL,
		CatalogueURL:    r.CatalogueURL,
		ManuscriptCount: r.ManuscriptCount,
	}
}

func fromRepositories(repos []*store.Repository) []repositoryView {
	out := make([]repositoryView, 0, len(repos))
	for _, r := range repos {
		out = append(out, fromRepository(r))
	}
	return out
}

func fromCollections(collections []store.CollectionCount) []collectionView {
	out := make([]collectionView, 0, len(collections))
	for _, c := range collections {
		out = append(out, collectionView{Name: c.Name, Count: c.Count})
	}
	return out
}

func fromManuscript(m *store.Manuscript) manuscriptView {
	view := manuscriptView{
		ID:                  m.ID,
		RepositoryID:        m.RepositoryID,
		Shelfmark:           m.Shelfmark,
		Collection:          m.Collection,
		Title:               m.Title,
		DateDisplay:         m.DateDisplay,
		DateStart:           m.DateStart,
		DateEnd:             m.DateEnd,
		Contents:            m.Contents,
		Provenance:          m.Provenance,
		Language:            m.Language,
		Folios:              m.Folios,
		IIIFManifestURL:     m.IIIFManifestURL,
		ThumbnailURL:        m.ThumbnailURL,
		SourceURL:           m.SourceURL,
		ImageCount:          m.ImageCount,
		RepositoryName:      m.RepositoryName,
		RepositoryShortName: m.RepositoryShortName,
	}
	if !m.CreatedAt.IsZero() {
		view.CreatedAt = m.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !m.UpdatedAt.IsZero() {
		view.UpdatedAt = m.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func fromManuscripts(list []*store.Manuscript) []manuscriptView {
	out := make([]manuscriptView, 0, len(list))
	for _, m := range list {
		out = append(out, fromManuscript(m))
	}
	return out
}
