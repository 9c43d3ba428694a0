// Package bodleian imports the Bodleian Library medieval collection from a
// local directory of TEI catalogue descriptions, resolving each description
// to its Digital Bodleian IIIF manifest.
package bodleian

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"regexp"
	"strings"

	"compilatio/internal/iiif"
	"compilatio/internal/logging"
	"compilatio/internal/manifest"
	"compilatio/internal/remote"
	"compilatio/internal/source"
	"compilatio/internal/store"
)

// Name is the registry key.
const Name = "bodleian"

const (
	facsimileHost = "digital.bodleian.ox.ac.uk"
	manifestBase  = "https://iiif.bodleian.ox.ac.uk/iiif/manifest/"
)

// objectIDRe pulls the object identifier out of a Digital Bodleian viewer
// link; the same identifier keys the IIIF manifest.
var objectIDRe = regexp.MustCompile(`/objects/([a-f0-9-]+)`)

func init() {
	source.Register(Name, "local TEI catalogue directory", New)
}

type adapter struct {
	client       *remote.Client
	logger       *slog.Logger
	fsys         fs.FS
	dir          string
	manifestBase string
	width        int
}

// New builds the connector. The TEI directory comes from configuration and
// is only required once Discover runs.
func New(deps source.Deps) source.Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &adapter{
		client:       deps.Client,
		logger:       logger,
		manifestBase: manifestBase,
		width:        deps.ThumbnailWidth(),
	}
	if deps.Config != nil && deps.Config.Sources.BodleianTEIDir != "" {
		a.dir = deps.Config.Sources.BodleianTEIDir
		a.fsys = os.DirFS(a.dir)
	}
	return a
}

func (a *adapter) Name() string { return Name }

func (a *adapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{
		Name:         "Bodleian Library, University of Oxford",
		ShortName:    Name,
		LogoURL:      "https://digital.bodleian.ox.ac.uk/assets/images/logo.png",
		CatalogueURL: "https://medieval.bodleian.ox.ac.uk/",
	}
}

// Discover walks the TEI directory and lists every catalogue description.
// Candidates carry the slash-separated path relative to the directory root,
// so checkpoint keys stay stable across machines.
func (a *adapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	if a.fsys == nil {
		return nil, remote.Wrap(remote.ErrConfiguration, Name, "discover", "bodleian_tei_dir is not set", nil)
	}

	var candidates []source.Candidate
	err := fs.WalkDir(a.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".xml") {
			return nil
		}
		candidates = append(candidates, source.Candidate{ManifestURL: p})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, remote.Wrap(remote.ErrConfiguration, Name, "walk tei directory", a.dir, err)
	}
	a.logger.Debug("tei directory walk complete", "source", Name, "descriptions", len(candidates))
	return candidates, nil
}

// Fetch parses one TEI description and resolves it to a manuscript record.
// Descriptions without a full facsimile, and facsimile links that carry no
// object identifier, are skipped rather than failed. The live manifest is
// fetched for the thumbnail and image count the TEI cannot provide.
func (a *adapter) Fetch(ctx context.Context, cand source.Candidate) (*manifest.Record, error) {
	data, err := fs.ReadFile(a.fsys, cand.ManifestURL)
	if err != nil {
		return nil, remote.Wrap(remote.ErrPermanent, Name, "read tei description", cand.ManifestURL, err)
	}

	rec, err := manifest.FromTEI(data,
		manifest.WithFacsimileHost(facsimileHost),
		manifest.WithProvisionalShelfmark(cand.Shelfmark),
	)
	if errors.Is(err, manifest.ErrNotDigitized) {
		return nil, remote.Wrap(remote.ErrSkip, Name, "parse tei description", cand.ManifestURL, err)
	}
	if err != nil {
		return nil, remote.Wrap(remote.ErrParse, Name, "parse tei description", cand.ManifestURL, err)
	}

	id := objectID(rec.SourceURL)
	if id == "" {
		return nil, remote.Wrap(remote.ErrSkip, Name, "parse tei description", cand.ManifestURL,
			errors.New("facsimile link carries no object id"))
	}
	rec.ManifestURL = a.manifestBase + id + ".json"

	if err := a.decorate(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// decorate fills the thumbnail and image count from the live manifest.
// Transient failures propagate so the importer retries; anything else
// degrades to importing the record without images.
func (a *adapter) decorate(ctx context.Context, rec *manifest.Record) error {
	body, err := a.client.GetBytes(ctx, rec.ManifestURL)
	if err != nil {
		if remote.IsTransient(err) {
			return err
		}
		a.logger.Warn("manifest unavailable, importing without images",
			"source", Name, "url", rec.ManifestURL, "error", err)
		return nil
	}
	doc, err := iiif.Parse(body)
	if err != nil {
		a.logger.Warn("manifest unreadable, importing without images",
			"source", Name, "url", rec.ManifestURL, "error", err)
		return nil
	}
	rec.ThumbnailURL = doc.ThumbnailURL(a.width)
	rec.ImageCount = doc.CanvasCount()
	return nil
}

func objectID(viewerURL string) string {
	m := objectIDRe.FindStringSubmatch(viewerURL)
	if m == nil {
		return ""
	}
	return m[1]
}
