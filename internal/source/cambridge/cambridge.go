// Package cambridge imports the Cambridge University Library medieval
// collection from the CUDL IIIF service.
package cambridge

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"compilatio/internal/iiif"
	"compilatio/internal/logging"
	"compilatio/internal/manifest"
	"compilatio/internal/remote"
	"compilatio/internal/source"
	"compilatio/internal/store"
	"compilatio/internal/textutil"
)

// Name is the registry key.
const Name = "cambridge"

const (
	collectionURL = "https://cudl.lib.cam.ac.uk/iiif/collection/medieval"
	viewerBase    = "https://cudl.lib.cam.ac.uk/view"
)

// classmarkPrefixes lead CUDL classmarks, which name the institution before
// the shelfmark ("Cambridge, University Library, MS Add. 451"). Deposited
// collections carry their own prefix.
var classmarkPrefixes = []string{
	"Cambridge, University Library, ",
	"Cambridge University Library, ",
	"Peterborough Cathedral, ",
}

// labelSuffix is the parenthesized classmark CUDL appends to manifest
// labels.
var labelSuffix = regexp.MustCompile(`\s*\([^)]*University Library[^)]*\)\s*$`)

func init() {
	source.Register(Name, "IIIF v2 collection, flat manifest list", New)
}

type adapter struct {
	client     *remote.Client
	logger     *slog.Logger
	collection string
	width      int
}

// New builds the connector.
func New(deps source.Deps) source.Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &adapter{
		client:     deps.Client,
		logger:     logger,
		collection: collectionURL,
		width:      deps.ThumbnailWidth(),
	}
}

func (a *adapter) Name() string { return Name }

func (a *adapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{
		Name:         "Cambridge University Library",
		ShortName:    Name,
		LogoURL:      "https://cudl.lib.cam.ac.uk/themeui/theme/images/logo.svg",
		CatalogueURL: "https://cudl.lib.cam.ac.uk/collections/medieval",
	}
}

// Discover lists the medieval collection's manifests. The collection is
// flat; every member of interest is an sc:Manifest stub.
func (a *adapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	body, err := a.client.GetBytes(ctx, a.collection)
	if err != nil {
		return nil, err
	}
	doc, err := iiif.Parse(body)
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "parse collection", a.collection, err)
	}

	children := doc.ChildManifests()
	candidates := make([]source.Candidate, 0, len(children))
	for _, child := range children {
		candidates = append(candidates, source.Candidate{
			ManifestURL: forceHTTPS(child.ID),
			Title:       child.Label,
		})
	}
	a.logger.Debug("collection walk complete", "source", Name, "manifests", len(candidates))
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
		manifest.WithSynonym("Classmark", manifest.FieldShelfmark),
		manifest.WithSynonym("Title", manifest.FieldContents),
		manifest.WithShelfmarkFunc(func(label string) string { return label }),
		manifest.WithThumbnailWidth(a.width),
	)
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "normalize manifest", cand.ManifestURL, err)
	}

	rec.Shelfmark = stripInstitution(rec.Shelfmark)
	rec.Title = strings.TrimSpace(labelSuffix.ReplaceAllString(rec.Title, ""))
	if rec.Contents == "" {
		rec.Contents = textutil.TruncateRunes(rec.Title, manifest.MaxContentsRunes)
	}
	rec.ManifestURL = forceHTTPS(cand.ManifestURL)
	rec.SourceURL = viewerURL(rec.ManifestURL)
	return rec, nil
}

// stripInstitution reduces a CUDL classmark to the bare shelfmark.
func stripInstitution(classmark string) string {
	for _, prefix := range classmarkPrefixes {
		if rest, ok := strings.CutPrefix(classmark, prefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(classmark)
}

// viewerURL maps a manifest URL to the human-readable CUDL page, which
// shares the manifest's trailing identifier.
func viewerURL(manifestURL string) string {
	id := strings.TrimRight(manifestURL, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return viewerBase + "/" + id
}

// forceHTTPS rewrites the scheme; CUDL manifests self-identify with http
// URLs that redirect.
func forceHTTPS(rawURL string) string {
	if rest, ok := strings.CutPrefix(rawURL, "http://"); ok {
		return "https://" + rest
	}
	return rawURL
}
