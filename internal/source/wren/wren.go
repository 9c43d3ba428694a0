// Package wren imports digitized manuscripts from the James Catalogue of
// Western Manuscripts at the Wren Library, Trinity College Cambridge. The
// catalogue search builds its listing client-side, so discovery drives a
// headless browser; the manifests themselves are plain JSON keyed by
// shelfmark.
package wren

import (
	"context"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"compilatio/internal/iiif"
	"compilatio/internal/language"
	"compilatio/internal/logging"
	"compilatio/internal/manifest"
	"compilatio/internal/remote"
	"compilatio/internal/source"
	"compilatio/internal/store"
	"compilatio/internal/textutil"
)

// Name is the registry key.
const Name = "wren"

const (
	catalogueBase = "https://mss-cat.trin.cam.ac.uk"
	searchURL     = catalogueBase + "/Search"
	manifestBase  = catalogueBase + "/manuscripts"
	viewerBase    = catalogueBase + "/manuscripts/uv/view.php"

	// maxPages bounds the listing walk; the digitized set fits in well
	// under half this many pages.
	maxPages = 100
)

// shelfmarkRe matches James catalogue shelfmarks (B.10.4, O.2.51, R.17.1)
// anywhere in a result card's text.
var shelfmarkRe = regexp.MustCompile(`\b[A-Z]\.\d+\.\d+\b`)

// yearRe tolerates three-digit years; the Wren's holdings reach back
// before 1000.
var yearRe = regexp.MustCompile(`\b1?\d{3}\b`)

func init() {
	source.Register(Name, "browser-rendered search listing, IIIF v2 manifests", New)
}

// pageWalker is the slice of remote.Browser that discovery needs.
type pageWalker interface {
	WalkPages(ctx context.Context, walk remote.PageWalk, visit func(page int, html string) (bool, error)) error
}

type adapter struct {
	client *remote.Client
	walker pageWalker
	logger *slog.Logger

	search    string
	manifests string
	viewer    string
	width     int
}

// New builds the connector.
func New(deps source.Deps) source.Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &adapter{
		client:    deps.Client,
		logger:    logger,
		search:    searchURL,
		manifests: manifestBase,
		viewer:    viewerBase,
		width:     deps.ThumbnailWidth(),
	}
	if deps.Browser != nil {
		a.walker = deps.Browser
	}
	return a
}

func (a *adapter) Name() string { return Name }

func (a *adapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{
		Name:         "Trinity College Cambridge",
		ShortName:    Name,
		LogoURL:      "https://www.trin.cam.ac.uk/assets/images/logo.png",
		CatalogueURL: "https://mss-cat.trin.cam.ac.uk",
	}
}

// Discover drives the catalogue search with the "Digitised Copies Only"
// filter and collects shelfmarks from each rendered result page. A page
// that contributes nothing new ends the walk; so does a missing or
// disabled Next control.
func (a *adapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	if a.walker == nil {
		return nil, remote.Wrap(remote.ErrConfiguration, Name, "discover", "headless browser is not available", nil)
	}

	walk := remote.PageWalk{
		URL: a.search,
		SetupClicks: []string{
			"#DigitisedOnly",
			"button[type='submit'], input[type='submit']",
		},
		NextText: "Next",
		MaxPages: maxPages,
	}

	var shelfmarks []string
	seen := make(map[string]bool)
	err := a.walker.WalkPages(ctx, walk, func(page int, html string) (bool, error) {
		doc, err := remote.ParseDocument(html)
		if err != nil {
			return false, remote.Wrap(remote.ErrParse, Name, "parse listing", a.search, err)
		}
		pageMarks := make(map[string]bool)
		doc.Find("[class*='result']").Each(func(_ int, card *goquery.Selection) {
			for _, mark := range shelfmarkRe.FindAllString(card.Text(), -1) {
				pageMarks[mark] = true
			}
		})

		added := 0
		for _, mark := range slices.Sorted(maps.Keys(pageMarks)) {
			if seen[mark] {
				continue
			}
			seen[mark] = true
			shelfmarks = append(shelfmarks, mark)
			added++
		}
		a.logger.Debug("listing page scanned", "source", Name, "page", page, "new", added)
		return added > 0, nil
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]source.Candidate, 0, len(shelfmarks))
	for _, mark := range shelfmarks {
		candidates = append(candidates, source.Candidate{
			Shelfmark:   mark,
			ManifestURL: a.manifests + "/" + mark + ".json",
			SourceURL:   a.viewer + "?n=" + mark,
		})
	}
	a.logger.Debug("discovery complete", "source", Name, "manuscripts", len(candidates))
	return candidates, nil
}

// Fetch retrieves the shelfmark-keyed manifest. James catalogue metadata
// labels vary freely ("Date of Creation", "Folio count"), so fields the
// synonym table leaves empty are filled by substring matching.
func (a *adapter) Fetch(ctx context.Context, cand source.Candidate) (*manifest.Record, error) {
	body, err := a.client.GetBytes(ctx, cand.ManifestURL)
	if err != nil {
		return nil, err
	}
	doc, err := iiif.Parse(body)
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "parse manifest", cand.ManifestURL, err)
	}

	rec, err := manifest.FromIIIF(doc,
		manifest.WithProvisionalShelfmark(cand.Shelfmark),
		manifest.WithThumbnailWidth(a.width),
	)
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "normalize manifest", cand.ManifestURL, err)
	}

	for _, pair := range doc.Metadata() {
		label := strings.ToLower(pair.Label)
		switch {
		case rec.Contents == "" && strings.Contains(label, "title"):
			rec.Contents = textutil.TruncateRunes(pair.Value, manifest.MaxContentsRunes)
		case rec.Language == "" && strings.Contains(label, "language"):
			rec.Language = language.NormalizeStatement(pair.Value)
		case rec.DateDisplay == "" && strings.Contains(label, "date"):
			rec.DateDisplay = pair.Value
			rec.DateStart, rec.DateEnd = manifest.ParseDateRange(pair.Value)
		case rec.Folios == "" && (strings.Contains(label, "extent") || strings.Contains(label, "folio")):
			rec.Folios = pair.Value
		}
	}

	// Manifests for the earliest holdings carry dates like "c. 950" that
	// the four-digit parse misses.
	if rec.DateDisplay != "" && rec.DateStart == nil {
		if years := yearRe.FindAllString(rec.DateDisplay, -1); len(years) > 0 {
			first, _ := strconv.Atoi(years[0])
			last, _ := strconv.Atoi(years[len(years)-1])
			if first > last {
				first, last = last, first
			}
			rec.DateStart, rec.DateEnd = &first, &last
		}
	}

	// Most labels are just the shelfmark; only a fuller one describes the
	// contents.
	if rec.Contents == "" && rec.Title != "" && rec.Title != rec.Shelfmark {
		rec.Contents = textutil.TruncateRunes(rec.Title, manifest.MaxContentsRunes)
	}

	rec.ManifestURL = cand.ManifestURL
	rec.SourceURL = cand.SourceURL
	return rec, nil
}
