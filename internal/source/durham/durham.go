// Package durham imports Durham's medieval manuscripts from the Trifle IIIF
// collection tree. Five curated collections cover the Cathedral Library,
// Hunter, Cosin and Bamburgh holdings; each is crawled recursively because
// Trifle nests sub-collections several levels deep.
package durham

import (
	"context"
	"log/slog"
	"regexp"
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
const Name = "durham"

const (
	viewerBase = "https://iiif.durham.ac.uk/index.html"

	// maxDepth bounds the recursive walk; the deepest observed nesting is
	// three levels.
	maxDepth = 5
)

// targetCollections are the Trifle sub-collections holding medieval
// material. The root index also lists modern archives, so the walk starts
// below it.
var targetCollections = []string{
	"https://iiif.durham.ac.uk/manifests/trifle/collection/32150/t2c7m01bk68j", // Cathedral Library MS books
	"https://iiif.durham.ac.uk/manifests/trifle/collection/32150/t2c8623hx722", // Hunter MSS
	"https://iiif.durham.ac.uk/manifests/trifle/collection/32150/t2c6682x3943", // Cathedral Add MSS
	"https://iiif.durham.ac.uk/manifests/trifle/collection/32150/t1c08612n52t", // Cosin MSS
	"https://iiif.durham.ac.uk/manifests/trifle/collection/32150/t2cqn59q396k", // Bamburgh Library
}

// shelfmarkRe matches the known Durham shelfmark families inside a label.
var shelfmarkRe = regexp.MustCompile(`(?i)(Durham Cathedral Library MS\.?\s*[\w.]+(?:\s*[\w.]+)*` +
	`|DCL (?:MS\.?\s*)?[\w.]+(?:\s*[\w.]+)*` +
	`|Cosin MS\.?\s*[\w.]+(?:\s*[\w.]+)*` +
	`|DCL Hunter MS\.?\s*\d+` +
	`|CADD\s*\d+` +
	`|Bamburgh\s+[\w.]+(?:\s*[\w.]+)*)`)

// shelfmarkLead recognizes a bare label side that is itself a shelfmark.
var shelfmarkLead = regexp.MustCompile(`(?i)^(DCL|Cosin|CADD|Bamburgh)`)

func init() {
	source.Register(Name, "IIIF collection tree, recursive walk", New)
}

type adapter struct {
	client *remote.Client
	logger *slog.Logger
	roots  []string
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
		roots:  targetCollections,
		delay:  deps.RequestDelay(),
		width:  deps.ThumbnailWidth(),
	}
}

func (a *adapter) Name() string { return Name }

func (a *adapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{
		Name:         "Durham University Library",
		ShortName:    Name,
		LogoURL:      "https://iiif.durham.ac.uk/images/logos/duruni_logo.png",
		CatalogueURL: "https://iiif.durham.ac.uk/index.html",
	}
}

// Discover crawls the target collections and returns every manifest stub
// exactly once. Stubs repeat across collections, so IDs dedupe globally.
func (a *adapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	seen := make(map[string]bool)
	var candidates []source.Candidate
	for _, root := range a.roots {
		a.logger.Debug("crawling collection", "source", Name, "url", root)
		if err := a.crawl(ctx, root, 0, seen, &candidates); err != nil {
			return nil, err
		}
	}
	a.logger.Debug("collection walk complete", "source", Name, "manifests", len(candidates))
	return candidates, nil
}

func (a *adapter) crawl(ctx context.Context, url string, depth int, seen map[string]bool, out *[]source.Candidate) error {
	if depth > maxDepth {
		return nil
	}
	body, err := a.client.GetBytes(ctx, url)
	if err != nil {
		return err
	}
	doc, err := iiif.Parse(body)
	if err != nil {
		return remote.Wrap(remote.ErrParse, Name, "parse collection", url, err)
	}

	for _, child := range doc.ChildManifests() {
		if seen[child.ID] {
			continue
		}
		seen[child.ID] = true
		*out = append(*out, source.Candidate{
			ManifestURL: child.ID,
			Shelfmark:   extractShelfmark("", child.Label),
			Title:       child.Label,
		})
	}
	for _, child := range doc.ChildCollections() {
		if err := source.Pace(ctx, a.delay); err != nil {
			return err
		}
		if err := a.crawl(ctx, child.ID, depth+1, seen, out); err != nil {
			return err
		}
	}
	return nil
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

	stub := cand.Title
	rec, err := manifest.FromIIIF(doc,
		manifest.WithSynonym("Published", manifest.FieldDateDisplay),
		manifest.WithShelfmarkFunc(func(label string) string {
			return extractShelfmark(label, stub)
		}),
		manifest.WithThumbnailWidth(a.width),
	)
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "normalize manifest", cand.ManifestURL, err)
	}

	label := doc.Label()
	title := titleBeside(rec.Shelfmark, stub, label)
	contents := title
	if contents == "" && rec.Shelfmark != "" {
		if label != "" && !strings.Contains(label, rec.Shelfmark) {
			contents = label
		} else if desc := doc.Description(); desc != "" {
			contents = textutil.TruncateRunes(desc, 500)
		}
	}
	if author := doc.MetadataValue("Author"); author != "" {
		if contents != "" {
			contents = author + ": " + contents
		} else {
			contents = author
		}
	}
	rec.Title = title
	rec.Contents = textutil.TruncateRunes(contents, manifest.MaxContentsRunes)
	rec.ManifestURL = cand.ManifestURL
	if rec.SourceURL == "" {
		rec.SourceURL = viewerBase + "?manifest=" + cand.ManifestURL
	}
	return rec, nil
}

// extractShelfmark pulls a Durham shelfmark out of the collection stub label
// or the manifest label, in that order; stub labels are the more reliable of
// the two. The Cathedral Library long form normalizes to "DCL".
func extractShelfmark(label, stub string) string {
	for _, text := range []string{stub, label} {
		if text == "" {
			continue
		}
		if m := shelfmarkRe.FindString(text); m != "" {
			return normalizeDCL(strings.TrimSpace(m))
		}
	}
	// Last resort: one side of a "Title - Shelfmark" label.
	if left, right, ok := strings.Cut(label, " - "); ok {
		for _, part := range []string{left, right} {
			part = normalizeDCL(strings.TrimSpace(part))
			if shelfmarkLead.MatchString(part) {
				return part
			}
		}
	}
	return ""
}

// titleBeside returns the " - " label side that is not the shelfmark,
// trying the stub label before the manifest label.
func titleBeside(shelfmark string, texts ...string) string {
	if shelfmark == "" {
		return ""
	}
	for _, text := range texts {
		left, right, ok := strings.Cut(text, " - ")
		if !ok {
			continue
		}
		for _, part := range []string{left, right} {
			if !strings.Contains(normalizeDCL(part), shelfmark) {
				return strings.TrimSpace(part)
			}
		}
	}
	return ""
}

func normalizeDCL(s string) string {
	return strings.Replace(s, "Durham Cathedral Library ", "DCL ", 1)
}
