package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"compilatio/internal/iiif"
	"compilatio/internal/logging"
	"compilatio/internal/remote"
	"compilatio/internal/store"
	"compilatio/internal/textutil"
)

// fallbackShelfmarkGlob matches rows keyed by a Stanford druid, the shape
// discovery falls back to when a listing entry carries no classmark.
const fallbackShelfmarkGlob = "MS [a-z][a-z][0-9][0-9][0-9][a-z][a-z][0-9][0-9][0-9][0-9]"

var (
	fallbackShelfmarkRe = regexp.MustCompile(`^MS [a-z]{2}[0-9]{3}[a-z]{2}[0-9]{4}$`)

	// classmarkRe recovers the proper mark from a manifest label such as
	// "Cambridge, Corpus Christi College, MS 016II: Chronica maiora".
	classmarkRe = regexp.MustCompile(`MS\s*([0-9]{3}[A-Za-z]*)`)
)

// titleSimilarityFloor is the cosine similarity below which two titled rows
// are treated as different manuscripts and left for human review.
const titleSimilarityFloor = 0.3

// IsFallbackShelfmark reports whether a shelfmark is a fallback identifier
// rather than a catalogued classmark.
func IsFallbackShelfmark(shelfmark string) bool {
	return fallbackShelfmarkRe.MatchString(shelfmark)
}

// Deduper repairs rows keyed by fallback identifiers. Each row's manifest
// is refetched and the proper classmark read from its label: unclaimed
// classmarks rename the row, claimed ones merge it into the proper row.
type Deduper struct {
	store  *store.Store
	client *remote.Client
	logger *slog.Logger
	delay  time.Duration
}

// NewDeduper creates a repair pass over one repository's fallback rows.
func NewDeduper(st *store.Store, client *remote.Client, logger *slog.Logger, delay time.Duration) *Deduper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deduper{store: st, client: client, logger: logger, delay: delay}
}

// DedupeResult tallies one repair pass.
type DedupeResult struct {
	Examined int
	Renamed  int
	Merged   int
	Retained int
	Failed   int
}

// Run resolves the repository's fallback rows. Dry runs fetch and decide
// without writing; execute applies the renames and merges.
func (d *Deduper) Run(ctx context.Context, repositoryID int64, execute bool) (*DedupeResult, error) {
	rows, err := d.store.ManuscriptsMatchingGlob(ctx, repositoryID, fallbackShelfmarkGlob)
	if err != nil {
		return nil, err
	}

	result := &DedupeResult{}
	for i, row := range rows {
		if i > 0 {
			if err := wait(ctx, d.delay); err != nil {
				return result, err
			}
		}
		result.Examined++

		proper, err := d.properShelfmark(ctx, row)
		if err != nil {
			d.logger.Warn("classmark recovery failed",
				"shelfmark", row.Shelfmark,
				"error", err)
			result.Failed++
			continue
		}

		existing, err := d.store.FindManuscript(ctx, repositoryID, proper)
		if err != nil {
			return result, err
		}

		if existing == nil {
			d.logger.Info("renaming fallback row",
				"from", row.Shelfmark,
				"to", proper)
			result.Renamed++
			if execute {
				row.Shelfmark = proper
				if err := d.store.UpdateManuscript(ctx, row); err != nil {
					return result, err
				}
			}
			continue
		}

		if existing.Title != "" && row.Title != "" {
			similarity := textutil.CosineSimilarity(
				textutil.NewFingerprint(existing.Title),
				textutil.NewFingerprint(row.Title),
			)
			if similarity < titleSimilarityFloor {
				d.logger.Warn("fallback row retained, titles disagree",
					"fallback", row.Shelfmark,
					"proper", proper,
					"similarity", fmt.Sprintf("%.2f", similarity))
				result.Retained++
				continue
			}
		}

		d.logger.Info("merging fallback row",
			"from", row.Shelfmark,
			"into", proper)
		result.Merged++
		if execute {
			mergeRows(existing, row)
			if err := d.store.UpdateManuscript(ctx, existing); err != nil {
				return result, err
			}
			if err := d.store.DeleteManuscript(ctx, row.ID); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

// properShelfmark refetches the row's manifest and reads the classmark out
// of its label.
func (d *Deduper) properShelfmark(ctx context.Context, row *store.Manuscript) (string, error) {
	payload, err := d.client.GetBytes(ctx, row.IIIFManifestURL)
	if err != nil {
		return "", err
	}
	doc, err := iiif.Parse(payload)
	if err != nil {
		return "", err
	}
	m := classmarkRe.FindStringSubmatch(doc.Label())
	if m == nil {
		return "", fmt.Errorf("no classmark in label %q", doc.Label())
	}
	return "MS " + m[1], nil
}

// mergeRows fills the proper row's empty fields from the fallback row. The
// proper row's values win wherever both are set.
func mergeRows(dst, src *store.Manuscript) {
	if dst.Collection == "" {
		dst.Collection = src.Collection
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.DateDisplay == "" {
		dst.DateDisplay = src.DateDisplay
	}
	if dst.DateStart == nil && dst.DateEnd == nil {
		dst.DateStart = src.DateStart
		dst.DateEnd = src.DateEnd
	}
	if dst.Contents == "" {
		dst.Contents = src.Contents
	}
	if dst.Provenance == "" {
		dst.Provenance = src.Provenance
	}
	if dst.Language == "" {
		dst.Language = src.Language
	}
	if dst.Folios == "" {
		dst.Folios = src.Folios
	}
	if dst.ThumbnailURL == "" {
		dst.ThumbnailURL = src.ThumbnailURL
	}
	if dst.SourceURL == "" {
		dst.SourceURL = src.SourceURL
	}
	if dst.ImageCount == 0 {
		dst.ImageCount = src.ImageCount
	}
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
