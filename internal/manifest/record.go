package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// MaxContentsRunes caps the contents field; catalogue summaries can run to
// many paragraphs and the aggregate stores only a teaser.
const MaxContentsRunes = 1000

// Record is one normalized manuscript description, ready for reconciliation
// against the aggregate store. Shelfmark and ManifestURL are mandatory;
// everything else is best-effort.
type Record struct {
	Shelfmark    string
	Collection   string
	Title        string
	DateDisplay  string
	DateStart    *int
	DateEnd      *int
	Contents     string
	Provenance   string
	Language     string
	Folios       string
	ManifestURL  string
	ThumbnailURL string
	SourceURL    string
	ImageCount   int
}

// Validate reports the first gate the record fails, or nil when the record
// is importable.
func (r *Record) Validate() error {
	if r == nil {
		return errors.New("record is nil")
	}
	if strings.TrimSpace(r.Shelfmark) == "" {
		return errors.New("record shelfmark required")
	}
	if strings.TrimSpace(r.ManifestURL) == "" {
		return errors.New("record manifest url required")
	}
	if r.ImageCount < 0 {
		return fmt.Errorf("record image count %d is negative", r.ImageCount)
	}
	if r.DateStart != nil && r.DateEnd != nil && *r.DateStart > *r.DateEnd {
		return fmt.Errorf("record date range inverted: %d > %d", *r.DateStart, *r.DateEnd)
	}
	return nil
}
