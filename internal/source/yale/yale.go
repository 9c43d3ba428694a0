// Package yale imports the Takamiya deposit at the Beinecke Rare Book and
// Manuscript Library from Yale's digital collections JSON API and its IIIF
// v3 manifests.
package yale

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"compilatio/internal/iiif"
	"compilatio/internal/logging"
	"compilatio/internal/manifest"
	"compilatio/internal/remote"
	"compilatio/internal/source"
	"compilatio/internal/store"
	"compilatio/internal/textutil"
)

// Name is the registry key.
const Name = "yale"

const (
	catalogAPI   = "https://collections.library.yale.edu/catalog.json"
	catalogBase  = "https://collections.library.yale.edu/catalog"
	manifestBase = "https://collections.library.yale.edu/manifests"

	searchQuery = "takamiya"
	perPage     = 100
)

// collectionName labels every Takamiya record; the deposit is a single
// named collection rather than a classmark series.
const collectionName = "Takamiya"

func init() {
	source.Register(Name, "catalog JSON API, IIIF v3 manifests", New)
}

type adapter struct {
	client      *remote.Client
	logger      *slog.Logger
	catalogAPI  string
	catalogBase string
	manifests   string
	delay       time.Duration
	width       int
}

// New builds the connector.
func New(deps source.Deps) source.Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &adapter{
		client:      deps.Client,
		logger:      logger,
		catalogAPI:  catalogAPI,
		catalogBase: catalogBase,
		manifests:   manifestBase,
		delay:       deps.RequestDelay(),
		width:       deps.ThumbnailWidth(),
	}
}

func (a *adapter) Name() string { return Name }

func (a *adapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{
		Name:         "Beinecke Rare Book and Manuscript Library, Yale University",
		ShortName:    Name,
		CatalogueURL: "https://beinecke.library.yale.edu/collections/curatorial-areas/early-books-and-manuscripts/takamiya-deposit",
	}
}

// searchPage is one page of the catalog search response.
type searchPage struct {
	Data []searchItem `json:"data"`
	Meta struct {
		Pages struct {
			CurrentPage int `json:"current_page"`
			TotalPages  int `json:"total_pages"`
		} `json:"pages"`
	} `json:"meta"`
}

type searchItem struct {
	ID         string `json:"id"`
	Attributes struct {
		CallNumber attrText `json:"callNumber_tesim"`
		Title      attrText `json:"title"`
		Date       attrText `json:"date_ssim"`
		ImageCount attrText `json:"imageCount_isi"`
	} `json:"attributes"`
}

// attrText is one catalog attribute. The API serves attributes as bare
// scalars, lists, or wrapped in a presentation envelope
// ({"attributes": {"value": ...}}); all collapse to their first text value.
type attrText string

func (t *attrText) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = attrText(flattenAttr(v))
	return nil
}

func flattenAttr(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		if len(val) == 0 {
			return ""
		}
		return flattenAttr(val[0])
	case map[string]any:
		if inner, ok := val["attributes"].(map[string]any); ok {
			return flattenAttr(inner["value"])
		}
		return flattenAttr(val["value"])
	}
	return ""
}

// Discover pages through the catalog search for the Takamiya deposit.
// Items without a call number cannot be keyed and are skipped. Discovery
// metadata rides along as fetch fallbacks: the manifests occasionally omit
// dates and canvas lists the catalog still knows about.
func (a *adapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	var candidates []source.Candidate
	for page := 1; ; page++ {
		pageURL := fmt.Sprintf("%s?q=%s&per_page=%d&page=%d", a.catalogAPI, searchQuery, perPage, page)
		var result searchPage
		if err := a.client.GetJSON(ctx, pageURL, &result); err != nil {
			return nil, err
		}
		if len(result.Data) == 0 {
			break
		}

		for _, item := range result.Data {
			if item.ID == "" {
				continue
			}
			shelfmark := textutil.CleanHTML(string(item.Attributes.CallNumber))
			if shelfmark == "" {
				a.logger.Debug("item without call number skipped", "source", Name, "id", item.ID)
				continue
			}
			cand := source.Candidate{
				Shelfmark:   shelfmark,
				ManifestURL: a.manifests + "/" + item.ID,
				SourceURL:   a.catalogBase + "/" + item.ID,
				Title:       strings.TrimSpace(string(item.Attributes.Title)),
			}
			extra := make(map[string]string)
			if date := strings.TrimSpace(string(item.Attributes.Date)); date != "" {
				extra["date"] = date
			}
			if images := strings.TrimSpace(string(item.Attributes.ImageCount)); images != "" {
				extra["images"] = images
			}
			if len(extra) > 0 {
				cand.Extra = extra
			}
			candidates = append(candidates, cand)
		}

		pages := result.Meta.Pages
		if pages.TotalPages == 0 || pages.CurrentPage >= pages.TotalPages {
			break
		}
		if err := source.Pace(ctx, a.delay); err != nil {
			return nil, err
		}
	}
	a.logger.Debug("catalog search complete", "source", Name, "manuscripts", len(candidates))
	return candidates, nil
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

	rec, err := manifest.FromIIIF(doc,
		manifest.WithSynonym("Published/Created Date", manifest.FieldDateDisplay),
		manifest.WithProvisionalShelfmark(cand.Shelfmark),
		manifest.WithThumbnailWidth(a.width),
	)
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "normalize manifest", cand.ManifestURL, err)
	}

	rec.Collection = collectionName
	if rec.Title == "" {
		rec.Title = cand.Title
	}
	if rec.Contents == "" {
		rec.Contents = textutil.TruncateRunes(rec.Title, manifest.MaxContentsRunes)
	}
	if rec.DateDisplay == "" {
		rec.DateDisplay = cand.Extra["date"]
		rec.DateStart, rec.DateEnd = manifest.ParseDateRange(rec.DateDisplay)
	}
	if rec.ImageCount == 0 {
		if n, err := strconv.Atoi(cand.Extra["images"]); err == nil && n > 0 {
			rec.ImageCount = n
		}
	}
	rec.ManifestURL = cand.ManifestURL
	rec.SourceURL = cand.SourceURL
	return rec, nil
}
