package manifest

import (
	"errors"
	"fmt"
	"strings"

	"compilatio/internal/iiif"
	"compilatio/internal/language"
	"compilatio/internal/textutil"
)

// DefaultThumbnailWidth is the IIIF Image API width requested for derived
// thumbnails.
const DefaultThumbnailWidth = 200

// Field names a canonical Record field that metadata labels can map onto.
type Field int

const (
	FieldTitle Field = iota
	FieldShelfmark
	FieldDateDisplay
	FieldContents
	FieldProvenance
	FieldLanguage
	FieldFolios
)

// defaultSynonyms maps lowercased metadata labels to canonical fields. The
// table covers the labels shared across catalogues; adapters extend or
// override it per source through WithSynonym.
func defaultSynonyms() map[string]Field {
	return map[string]Field{
		"title":                FieldTitle,
		"date of creation":     FieldDateDisplay,
		"date":                 FieldDateDisplay,
		"date statement":       FieldDateDisplay,
		"origin date":          FieldDateDisplay,
		"provenance":           FieldProvenance,
		"former owner(s)":      FieldProvenance,
		"origin":               FieldProvenance,
		"place of origin":      FieldProvenance,
		"language(s)":          FieldLanguage,
		"language":             FieldLanguage,
		"summary":              FieldContents,
		"contents":             FieldContents,
		"abstract":             FieldContents,
		"extent":               FieldFolios,
		"physical description": FieldFolios,
	}
}

type options struct {
	synonyms       map[string]Field
	shelfmark      func(label string) string
	provisional    string
	thumbnailWidth int
	facsimileHost  string
}

// Option adjusts how FromIIIF and FromTEI interpret a document.
type Option func(*options)

// WithSynonym maps an additional metadata label onto a canonical field,
// overriding the default table when the label is already present.
func WithSynonym(label string, field Field) Option {
	return func(o *options) {
		o.synonyms[strings.ToLower(strings.TrimSpace(label))] = field
	}
}

// WithShelfmarkFunc installs a source-specific extractor that pulls a
// classmark out of the manifest label. An empty return leaves the shelfmark
// to the metadata table or the provisional value.
func WithShelfmarkFunc(fn func(label string) string) Option {
	return func(o *options) {
		o.shelfmark = fn
	}
}

// WithProvisionalShelfmark supplies the discovery-time shelfmark that stands
// when the document itself yields none.
func WithProvisionalShelfmark(shelfmark string) Option {
	return func(o *options) {
		o.provisional = strings.TrimSpace(shelfmark)
	}
}

// WithThumbnailWidth overrides DefaultThumbnailWidth for derived thumbnails.
func WithThumbnailWidth(width int) Option {
	return func(o *options) {
		if width > 0 {
			o.thumbnailWidth = width
		}
	}
}

// WithFacsimileHost names the host substring identifying the source's
// facsimile viewer. FromTEI uses it to pick the source URL among surrogate
// refs and, absent any explicit digitisation marker, to treat a viewer link
// as evidence of a digitized copy.
func WithFacsimileHost(host string) Option {
	return func(o *options) {
		o.facsimileHost = strings.TrimSpace(host)
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		synonyms:       defaultSynonyms(),
		thumbnailWidth: DefaultThumbnailWidth,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FromIIIF maps a parsed IIIF Presentation manifest into a Record. Metadata
// labels resolve through the synonym table with the first non-empty value
// winning per field; the manifest label backs the title when no metadata
// supplies one; the thumbnail comes from the declared thumbnail property or
// the first canvas image service, never from the manifest's own identifier.
func FromIIIF(doc *iiif.Document, opts ...Option) (*Record, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	if doc.IsCollection() {
		return nil, fmt.Errorf("document %s is a collection, not a manifest", doc.ID())
	}
	o := buildOptions(opts)

	fields := make(map[Field]string)
	for _, pair := range doc.Metadata() {
		field, ok := o.synonyms[strings.ToLower(strings.TrimSpace(pair.Label))]
		if !ok || pair.Value == "" {
			continue
		}
		if _, taken := fields[field]; taken {
			continue
		}
		fields[field] = pair.Value
	}

	label := doc.Label()
	rec := &Record{
		Title:        fields[FieldTitle],
		DateDisplay:  fields[FieldDateDisplay],
		Provenance:   fields[FieldProvenance],
		Folios:       fields[FieldFolios],
		Contents:     textutil.TruncateRunes(fields[FieldContents], MaxContentsRunes),
		Language:     language.NormalizeStatement(fields[FieldLanguage]),
		ManifestURL:  doc.ID(),
		SourceURL:    doc.Related(),
		ThumbnailURL: doc.ThumbnailURL(o.thumbnailWidth),
		ImageCount:   doc.CanvasCount(),
	}
	if rec.Title == "" {
		rec.Title = label
	}

	rec.Shelfmark = strings.TrimSpace(fields[FieldShelfmark])
	if rec.Shelfmark == "" && o.shelfmark != nil {
		rec.Shelfmark = strings.TrimSpace(o.shelfmark(label))
	}
	if rec.Shelfmark == "" {
		rec.Shelfmark = o.provisional
	}

	rec.DateStart, rec.DateEnd = ParseDateRange(rec.DateDisplay)
	return rec, nil
}
