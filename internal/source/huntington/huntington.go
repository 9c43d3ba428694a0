// Package huntington imports the Ellesmere and Huntington manuscript series
// from the Huntington Digital Library's CONTENTdm search API and its IIIF v2
// manifests.
package huntington

import (
	"context"
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
const Name = "huntington"

const (
	contentdmBase = "https://hdl.huntington.org"
	collectionID  = "p15150coll7"
	maxRecords    = 1000
)

// searchGroup pairs a CONTENTdm call-number prefix with the collection its
// manuscripts belong to. Both series live in the same CONTENTdm collection
// and are told apart only by their classmark prefix.
type searchGroup struct {
	term       string
	collection string
}

var searchGroups = []searchGroup{
	{term: "mssEL", collection: "Ellesmere"},
	{term: "mssHM", collection: "Huntington Manuscripts"},
}

func init() {
	source.Register(Name, "CONTENTdm search API, IIIF v2 manifests", New)
}

type adapter struct {
	client *remote.Client
	logger *slog.Logger
	base   string
	delay  time.Duration
	width  int
}

// New builds the connector.
func New(deps source.Deps) source.Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &adapter{
		client: deps.Client,
		logger: logger,
		base:   contentdmBase,
		delay:  deps.RequestDelay(),
		width:  deps.ThumbnailWidth(),
	}
}

func (a *adapter) Name() string { return Name }

func (a *adapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{
		Name:         "Huntington Library",
		ShortName:    Name,
		CatalogueURL: "https://hdl.huntington.org/digital/collection/p15150coll7",
	}
}

// searchResult is the CONTENTdm search response envelope.
type searchResult struct {
	TotalResults int          `json:"totalResults"`
	Items        []searchItem `json:"items"`
}

type searchItem struct {
	ItemID         int             `json:"itemId"`
	ThumbnailURI   string          `json:"thumbnailUri"`
	MetadataFields []metadataField `json:"metadataFields"`
}

type metadataField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (it searchItem) field(name string) string {
	for _, f := range it.MetadataFields {
		if f.Field == name && f.Value != "" {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// Discover queries the search API once per series. Items without a call
// number get a shelfmark built from the search term and the CONTENTdm item
// id, so every candidate keys on a shelfmark.
func (a *adapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	var candidates []source.Candidate
	for i, group := range searchGroups {
		if i > 0 {
			if err := source.Pace(ctx, a.delay); err != nil {
				return nil, err
			}
		}

		searchURL := fmt.Sprintf("%s/digital/api/search/collection/%s/searchterm/%s/field/callid/mode/exact/conn/and/maxRecords/%d",
			a.base, collectionID, group.term, maxRecords)
		var result searchResult
		if err := a.client.GetJSON(ctx, searchURL, &result); err != nil {
			return nil, err
		}
		a.logger.Debug("series searched", "source", Name,
			"collection", group.collection, "total", result.TotalResults)

		for _, item := range result.Items {
			if item.ItemID == 0 {
				continue
			}
			id := strconv.Itoa(item.ItemID)
			shelfmark := item.field("callid")
			if shelfmark == "" {
				shelfmark = group.term + " " + id
			}
			cand := source.Candidate{
				Shelfmark:   shelfmark,
				ManifestURL: fmt.Sprintf("%s/iiif/2/%s:%s/manifest.json", a.base, collectionID, id),
				SourceURL:   fmt.Sprintf("%s/digital/collection/%s/id/%s", a.base, collectionID, id),
				Title:       item.field("title"),
			}
			extra := map[string]string{"collection": group.collection}
			if date := item.field("date"); date != "" {
				extra["date"] = date
			}
			if thumb := item.ThumbnailURI; thumb != "" {
				if !strings.HasPrefix(thumb, "http") {
					thumb = a.base + thumb
				}
				extra["thumbnail"] = thumb
			}
			cand.Extra = extra
			candidates = append(candidates, cand)
		}
	}
	a.logger.Debug("discovery complete", "source", Name, "manuscripts", len(candidates))
	return candidates, nil
}

// Fetch retrieves the item's IIIF manifest. CONTENTdm manifests are thin,
// so discovery metadata backs every field the manifest omits.
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
		manifest.WithSynonym("Call Number", manifest.FieldShelfmark),
		manifest.WithProvisionalShelfmark(cand.Shelfmark),
		manifest.WithThumbnailWidth(a.width),
	)
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "normalize manifest", cand.ManifestURL, err)
	}

	rec.Collection = cand.ExtraValue("collection")
	if rec.Title == "" {
		rec.Title = cand.Title
	}
	if rec.Contents == "" {
		rec.Contents = textutil.TruncateRunes(rec.Title, manifest.MaxContentsRunes)
	}
	if rec.DateDisplay == "" {
		rec.DateDisplay = cand.ExtraValue("date")
		rec.DateStart, rec.DateEnd = manifest.ParseDateRange(rec.DateDisplay)
	}
	if rec.ThumbnailURL == "" {
		rec.ThumbnailURL = cand.ExtraValue("thumbnail")
	}
	rec.ManifestURL = cand.ManifestURL
	rec.SourceURL = cand.SourceURL
	return rec, nil
}
