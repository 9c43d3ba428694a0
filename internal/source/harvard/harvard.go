// Package harvard imports Houghton Library manuscripts. Discovery scrapes
// the server-rendered Biblissima IIIF collections search for links into the
// Harvard DRS manifest service; the manifests themselves carry most
// metadata packed into their labels.
package harvard

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

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
const Name = "harvard"

const (
	searchURL    = "https://iiif.biblissima.fr/collections/search?q=houghton+harvard"
	manifestBase = "https://iiif.lib.harvard.edu/manifests"
	viewerBase   = "https://iiif.lib.harvard.edu/manifests/view"

	resultsPerPage = 20
	// maxPages bounds the walk well past the known result count so a stuck
	// pagination response cannot loop forever.
	maxPages = 15
)

var (
	drsIDRe = regexp.MustCompile(`drs:(\d+)`)

	// shelfmarkRe matches the Houghton classmark series embedded in DRS
	// manifest labels ("... manuscript, [ca. 1485]. MS Lat 249. Houghton
	// Library ..."). Typ numbers may carry a decimal part; a bare "Typ"
	// without "MS" also occurs.
	shelfmarkRe = regexp.MustCompile(`(?i)(MS Lat \d+[A-Za-z]*|MS Typ \d+[A-Za-z]*(?:\.\d+)?|MS Gr \d+[A-Za-z]*|MS Richardson \d+[A-Za-z]*|MS Ital \d+[A-Za-z]*|MS Span \d+[A-Za-z]*|MS Eng \d+[A-Za-z]*|MS Fr \d+[A-Za-z]*|MS Ger \d+[A-Za-z]*|MS Hebrew \d+[A-Za-z]*|MS Arab \d+[A-Za-z]*|MS Riant \d+[A-Za-z]*|Typ \d+[A-Za-z]*(?:\.\d+)?)`)

	houghtonSuffix = regexp.MustCompile(`(?i)\s*Houghton Library.*$`)
	bracketedDate  = regexp.MustCompile(`\[([^\]]*\d[^\]]*)\]`)
	cardDate       = regexp.MustCompile(`(?i)\b(\d{1,2}(?:st|nd|rd|th)?\s*(?:century|cent\.?)|\d{4}\s*[-–]\s*\d{4}|\d{4})\b`)
)

func init() {
	source.Register(Name, "Biblissima search scrape, IIIF v2 manifests", New)
}

type adapter struct {
	client    *remote.Client
	logger    *slog.Logger
	search    string
	manifests string
	viewer    string
	delay     time.Duration
	width     int
}

// New builds the connector.
func New(deps source.Deps) source.Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &adapter{
		client:    deps.Client,
		logger:    logger,
		search:    searchURL,
		manifests: manifestBase,
		viewer:    viewerBase,
		delay:     deps.RequestDelay(),
		width:     deps.ThumbnailWidth(),
	}
}

func (a *adapter) Name() string { return Name }

func (a *adapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{
		Name:         "Houghton Library, Harvard University",
		ShortName:    Name,
		CatalogueURL: "https://library.harvard.edu/collections/medieval-and-renaissance-manuscripts",
	}
}

// Discover pages through the Biblissima search results, pulling every DRS
// manifest link and whatever the surrounding result card offers (title,
// thumbnail, a date mention). Pagination is offset-based; an empty page
// ends the walk.
func (a *adapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	seen := make(map[string]struct{})
	var candidates []source.Candidate

	for page := 1; page <= maxPages; page++ {
		pageURL := a.search
		if offset := (page - 1) * resultsPerPage; offset > 0 {
			pageURL = fmt.Sprintf("%s&from=%d", a.search, offset)
		}
		doc, err := a.client.GetDocument(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		pageSeen := make(map[string]struct{})
		doc.Find(`a[href*="iiif.lib.harvard.edu/manifests/drs:"]`).Each(func(_ int, link *goquery.Selection) {
			id := drsID(link.AttrOr("href", ""))
			if id == "" {
				return
			}
			if _, dup := pageSeen[id]; dup {
				return
			}
			pageSeen[id] = struct{}{}
			if _, dup := seen[id]; dup {
				return
			}
			seen[id] = struct{}{}
			candidates = append(candidates, a.candidateFromCard(id, link))
		})

		if len(pageSeen) == 0 {
			break
		}
		if page < maxPages {
			if err := source.Pace(ctx, a.delay); err != nil {
				return nil, err
			}
		}
	}

	a.logger.Debug("search walk complete", "source", Name, "manuscripts", len(candidates))
	return candidates, nil
}

// candidateFromCard builds a candidate from one manifest link and its
// enclosing result card. Card metadata is best-effort; the manifest label
// supplies the authoritative version during fetch.
func (a *adapter) candidateFromCard(id string, link *goquery.Selection) source.Candidate {
	cand := source.Candidate{
		ManifestURL: a.manifests + "/drs:" + id,
		SourceURL:   a.viewer + "/drs:" + id,
	}

	card := link.Closest("div, article, section, li")
	if card.Length() == 0 {
		return cand
	}
	cand.Title = strings.TrimSpace(card.Find("h3, h4, h5, .title, .card-title").First().Text())

	extra := make(map[string]string)
	if src := card.Find("img").First().AttrOr("src", ""); src != "" {
		extra["thumbnail"] = src
	}
	if date := cardDate.FindString(textutil.CollapseWhitespace(card.Text())); date != "" {
		extra["date"] = date
	}
	if len(extra) > 0 {
		cand.Extra = extra
	}
	return cand
}

func (a *adapter) Fetch(ctx context.Context, cand source.Candidate) (*manifest.Record, error) {
	body, err := a.client.GetBytes(ctx, cand.ManifestURL)
	if err != nil {
		return nil, err
	}
	doc, err := iiif.Parse(body)
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "parse manifest", cand.ManifestURL, err)
	}

	rec, err := manifest.FromIIIF(doc, manifest.WithThumbnailWidth(a.width))
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "normalize manifest", cand.ManifestURL, err)
	}

	label := doc.Label()
	shelfmark := shelfmarkRe.FindString(label)
	if shelfmark == "" {
		shelfmark = doc.MetadataValue("Call Number")
	}
	if shelfmark == "" {
		shelfmark = doc.MetadataValue("Shelfmark")
	}
	if shelfmark == "" {
		shelfmark = "DRS " + drsID(cand.ManifestURL)
		a.logger.Warn("no shelfmark in manifest, keying on DRS id",
			"source", Name, "url", cand.ManifestURL)
	}
	rec.Shelfmark = shelfmark

	title := titleFromLabel(label, shelfmark)
	if title == "" {
		title = doc.MetadataValue("Title")
	}
	if title == "" {
		title = cand.Title
	}
	rec.Title = title
	rec.Contents = textutil.TruncateRunes(title, manifest.MaxContentsRunes)

	if date := dateFromLabel(label); date != "" {
		rec.DateDisplay = date
	} else if rec.DateDisplay == "" {
		rec.DateDisplay = cand.Extra["date"]
	}
	rec.DateStart, rec.DateEnd = manifest.ParseDateRange(rec.DateDisplay)

	if rec.ThumbnailURL == "" {
		rec.ThumbnailURL = cand.Extra["thumbnail"]
	}
	rec.ManifestURL = cand.ManifestURL
	rec.SourceURL = cand.SourceURL
	return rec, nil
}

// titleFromLabel reduces a DRS label to its title: everything before the
// shelfmark, trailing punctuation trimmed, the Houghton Library boilerplate
// dropped.
func titleFromLabel(label, shelfmark string) string {
	if label == "" {
		return ""
	}
	if shelfmark != "" {
		if idx := strings.Index(label, shelfmark); idx > 0 {
			label = label[:idx]
		}
	}
	label = strings.TrimRight(strings.TrimSpace(label), ".,;: ")
	label = houghtonSuffix.ReplaceAllString(label, "")
	return strings.TrimSpace(label)
}

// dateFromLabel pulls the bracketed date statement DRS labels carry
// ("[ca. 1485]", "[15th century]").
func dateFromLabel(label string) string {
	m := bracketedDate.FindStringSubmatch(label)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func drsID(rawURL string) string {
	m := drsIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}
