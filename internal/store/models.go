package store

import "time"

// RepositorySeed is the identity a source adapter declares for its holding
// institution. EnsureRepository turns it into a row exactly once; identity
// never changes after creation.
type RepositorySeed struct {
	Name         string
	ShortName    string
	LogoURL      string
	CatalogueURL string
}

// Repository represents a holding institution.
type Repository struct {
	ID           int64
	Name         string
	ShortName    string
	LogoURL      string
	CatalogueURL string

	// ManuscriptCount is populated by list queries.
	ManuscriptCount int
}

// Manuscript represents one digitized manuscript. The natural key is
// (RepositoryID, Shelfmark); IIIFManifestURL is mandatory.
type Manuscript struct {
	ID              int64
	RepositoryID    int64
	Shelfmark       string
	Collection      string
	Title           string
	DateDisplay     string
	DateStart       *int
	DateEnd         *int
	Contents        string
	Provenance      string
	Language        string
	Folios          string
	IIIFManifestURL string
	ThumbnailURL    string
	SourceURL       string
	ImageCount      int
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Joined repository identity, populated by detail and featured queries.
	RepositoryName      string
	RepositoryShortName string
}

// Filter narrows manuscript list queries.
type Filter struct {
	RepositoryID int64
	Collection   string
	Limit        int
	Offset       int
}

// MaxPageSize caps list queries; DefaultPageSize applies when the caller
// asks for nothing.
const (
	MaxPageSize     = 200
	DefaultPageSize = 50
)

// Page is one window of a manuscript list plus the unwindowed total.
type Page struct {
	Manuscripts []*Manuscript
	Total       int
	Limit       int
	Offset      int
}

// CollectionCount pairs a derived collection name with its manuscript count
// within one repository.
type CollectionCount struct {
	Name  string
	Count int
}

// RepositoryStats aggregates per-repository coverage numbers for status
// displays and run notifications.
type RepositoryStats struct {
	RepositoryName string
	ShortName      string
	Total          int
	Dated          int
	WithImages     int
	WithThumbnails int
}
