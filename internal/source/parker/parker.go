// Package parker imports the Parker Library manuscripts from saved pages of
// Parker Library on the Web. The Stanford-hosted catalogue blocks automated
// crawling, so discovery reads a local directory of browser-saved listing
// pages and resolves each entry's druid to its PURL IIIF manifest.
package parker

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"compilatio/internal/iiif"
	"compilatio/internal/logging"
	"compilatio/internal/manifest"
	"compilatio/internal/remote"
	"compilatio/internal/source"
	"compilatio/internal/store"
	"compilatio/internal/textutil"
)

// Name is the registry key.
const Name = "parker"

const (
	purlBase    = "https://purl.stanford.edu"
	catalogBase = "https://parker.stanford.edu/parker/catalog"

	collectionName = "Parker Library"
)

var (
	// druidRe pulls the Stanford druid out of a catalogue link.
	druidRe = regexp.MustCompile(`/catalog/([a-z]{2}\d{3}[a-z]{2}\d{4})`)

	// shelfmarkRe matches Parker classmarks (MS 16, MS 173A) in listing text.
	shelfmarkRe = regexp.MustCompile(`MS\.?\s*(\d+[A-Za-z]?)`)

	collegePrefixRe = regexp.MustCompile(`^Cambridge,?\s*Corpus Christi College,?\s*`)
	numberPrefixRe  = regexp.MustCompile(`^MS\.?\s*\d+[A-Za-z]?\s*[:\-–]?\s*`)
)

func init() {
	source.Register(Name, "saved catalogue pages, PURL IIIF manifests", New)
}

type adapter struct {
	client  *remote.Client
	logger  *slog.Logger
	fsys    fs.FS
	dir     string
	purl    string
	catalog string
	width   int
}

// New builds the connector. The pages directory comes from configuration
// and is only required once Discover runs.
func New(deps source.Deps) source.Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &adapter{
		client:  deps.Client,
		logger:  logger,
		purl:    purlBase,
		catalog: catalogBase,
		width:   deps.ThumbnailWidth(),
	}
	if deps.Config != nil && deps.Config.Sources.ParkerPagesDir != "" {
		a.dir = deps.Config.Sources.ParkerPagesDir
		a.fsys = os.DirFS(a.dir)
	}
	return a
}

func (a *adapter) Name() string { return Name }

func (a *adapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{
		Name:         "Parker Library, Corpus Christi College, Cambridge",
		ShortName:    Name,
		CatalogueURL: "https://parker.stanford.edu/parker/catalog",
	}
}

// Discover parses every saved listing page and collects catalogue links.
// The first page naming a druid wins; entries whose text carries no
// classmark fall back to "MS <druid>" so reconciliation can repair them
// once a properly-labelled entry appears.
func (a *adapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	if a.fsys == nil {
		return nil, remote.Wrap(remote.ErrConfiguration, Name, "discover", "parker_pages_dir is not set", nil)
	}

	pages, err := fs.Glob(a.fsys, "page*.html")
	if err == nil && len(pages) == 0 {
		pages, err = fs.Glob(a.fsys, "*.html")
	}
	if err != nil {
		return nil, remote.Wrap(remote.ErrConfiguration, Name, "list saved pages", a.dir, err)
	}
	if len(pages) == 0 {
		return nil, remote.Wrap(remote.ErrConfiguration, Name, "list saved pages", "no .html files in "+a.dir, nil)
	}

	var candidates []source.Candidate
	seen := make(map[string]bool)
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(a.fsys, page)
		if err != nil {
			return nil, remote.Wrap(remote.ErrConfiguration, Name, "read saved page", page, err)
		}
		doc, err := remote.ParseDocument(string(data))
		if err != nil {
			return nil, remote.Wrap(remote.ErrParse, Name, "parse saved page", page, err)
		}

		added := 0
		doc.Find(`a[href*="/catalog/"]`).Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			m := druidRe.FindStringSubmatch(href)
			if m == nil {
				return
			}
			druid := m[1]
			if seen[druid] {
				return
			}
			seen[druid] = true

			text := textutil.CollapseWhitespace(link.Text())
			shelfmark := extractShelfmark(text)
			if shelfmark == "" {
				if parent := link.Closest("div, article, li"); parent.Length() > 0 {
					shelfmark = extractShelfmark(textutil.CollapseWhitespace(parent.Text()))
				}
			}
			if shelfmark == "" {
				shelfmark = "MS " + druid
			}

			candidates = append(candidates, source.Candidate{
				Shelfmark:   shelfmark,
				ManifestURL: a.purl + "/" + druid + "/iiif/manifest",
				SourceURL:   a.catalog + "/" + druid,
				Title:       cleanTitle(text),
			})
			added++
		})
		a.logger.Debug("saved page parsed", "source", Name, "page", page, "new", added)
	}
	a.logger.Debug("discovery complete", "source", Name, "manuscripts", len(candidates))
	return candidates, nil
}

// Fetch retrieves the PURL manifest. The discovery shelfmark stands; titles
// repeat the institution and classmark, which are stripped before the title
// doubles as contents.
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

	rec.Collection = collectionName
	title := cleanTitle(rec.Title)
	if title == "" {
		title = cand.Title
	}
	rec.Title = title
	if rec.Contents == "" {
		rec.Contents = textutil.TruncateRunes(title, manifest.MaxContentsRunes)
	}
	rec.ManifestURL = cand.ManifestURL
	rec.SourceURL = cand.SourceURL
	return rec, nil
}

func extractShelfmark(text string) string {
	if m := shelfmarkRe.FindStringSubmatch(text); m != nil {
		return "MS " + m[1]
	}
	return ""
}

// cleanTitle strips the institution prefix and the leading classmark that
// listing entries and manifest labels both carry.
func cleanTitle(s string) string {
	s = collegePrefixRe.ReplaceAllString(s, "")
	s = numberPrefixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
