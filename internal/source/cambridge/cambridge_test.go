package cambridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"compilatio/internal/logging"
	"compilatio/internal/remote"
	"compilatio/internal/source"
)

const collectionFixture = `{
  "@context": "http://iiif.io/api/presentation/2/context.json",
  "@id": "http://cudl.lib.cam.ac.uk/iiif/collection/medieval",
  "@type": "sc:Collection",
  "manifests": [
    {"@id": "http://cudl.lib.cam.ac.uk/iiif/MS-ADD-00451", "@type": "sc:Manifest", "label": "Meditations of Anselm (Cambridge, University Library, MS Add. 451)"},
    {"@id": "http://cudl.lib.cam.ac.uk/iiif/MS-EE-00003-00059", "@type": "sc:Manifest", "label": "La Estoire de Seint Aedward le Rei (Cambridge, University Library, MS Ee.3.59)"}
  ],
  "collections": [
    {"@id": "http://cudl.lib.cam.ac.uk/iiif/collection/treasures", "@type": "sc:Collection", "label": "Treasures"}
  ]
}`

const manifestFixture = `{
  "@context": "http://iiif.io/api/presentation/2/context.json",
  "@id": "http://cudl.lib.cam.ac.uk/iiif/MS-ADD-00451",
  "@type": "sc:Manifest",
  "label": "Meditations of Anselm (Cambridge, University Library, MS Add. 451)",
  "metadata": [
    {"label": "Classmark", "value": "Cambridge, University Library, MS Add. 451"},
    {"label": "Title", "value": "Meditations of Anselm"},
    {"label": "Date of Creation", "value": "second half of the 12th century"},
    {"label": "Language(s)", "value": "Latin"},
    {"label": "Provenance", "value": "Given by George I in 1715"},
    {"label": "Extent", "value": "ii + 112 + ii leaves"}
  ],
  "sequences": [{"canvases": [
    {"@id": "http://cudl.lib.cam.ac.uk/iiif/MS-ADD-00451/canvas/1", "images": [{"resource": {"service": {"@id": "https://images.lib.cam.ac.uk/iiif/MS-ADD-00451-000-00001"}}}]},
    {"@id": "http://cudl.lib.cam.ac.uk/iiif/MS-ADD-00451/canvas/2", "images": [{"resource": {"service": {"@id": "https://images.lib.cam.ac.uk/iiif/MS-ADD-00451-000-00002"}}}]}
  ]}]
}`

const bareLabelManifest = `{
  "@context": "http://iiif.io/api/presentation/2/context.json",
  "@id": "http://cudl.lib.cam.ac.uk/iiif/MS-KK-00005-00016",
  "@type": "sc:Manifest",
  "label": "Cambridge, University Library, MS Kk.5.16",
  "metadata": [],
  "sequences": [{"canvases": []}]
}`

func newTestAdapter(t *testing.T, handler http.Handler) (*adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &adapter{
		client:     remote.NewClient("compilatio-test"),
		logger:     logging.NewNop(),
		collection: srv.URL + "/iiif/collection/medieval",
	}, srv
}

func TestDiscoverListsManifestStubs(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(collectionFixture))
	}))

	candidates, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].ManifestURL != "https://cudl.lib.cam.ac.uk/iiif/MS-ADD-00451" {
		t.Fatalf("expected https manifest URL, got %q", candidates[0].ManifestURL)
	}
	if candidates[0].Shelfmark != "" {
		t.Fatalf("discovery must leave the shelfmark to the manifest, got %q", candidates[0].Shelfmark)
	}
	if !strings.Contains(candidates[1].Title, "MS Ee.3.59") {
		t.Fatalf("expected stub label carried as title, got %q", candidates[1].Title)
	}
}

func TestFetchMapsManifest(t *testing.T) {
	a, srv := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(manifestFixture))
	}))

	rec, err := a.Fetch(context.Background(), source.Candidate{ManifestURL: srv.URL + "/iiif/MS-ADD-00451"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if rec.Shelfmark != "MS Add. 451" {
		t.Fatalf("expected stripped classmark, got %q", rec.Shelfmark)
	}
	if rec.Title != "Meditations of Anselm" {
		t.Fatalf("expected label without classmark suffix, got %q", rec.Title)
	}
	if rec.Contents != "Meditations of Anselm" {
		t.Fatalf("expected contents from the Title field, got %q", rec.Contents)
	}
	if rec.DateDisplay != "second half of the 12th century" {
		t.Fatalf("unexpected date display %q", rec.DateDisplay)
	}
	if rec.DateStart == nil || rec.DateEnd == nil || *rec.DateStart != 1150 || *rec.DateEnd != 1199 {
		t.Fatalf("expected 1150-1199, got %v-%v", rec.DateStart, rec.DateEnd)
	}
	if rec.Language != "Latin" {
		t.Fatalf("unexpected language %q", rec.Language)
	}
	if rec.Folios != "ii + 112 + ii leaves" {
		t.Fatalf("unexpected folios %q", rec.Folios)
	}
	if rec.ThumbnailURL != "https://images.lib.cam.ac.uk/iiif/MS-ADD-00451-000-00001/full/200,/0/default.jpg" {
		t.Fatalf("unexpected thumbnail %q", rec.ThumbnailURL)
	}
	if rec.ImageCount != 2 {
		t.Fatalf("expected 2 images, got %d", rec.ImageCount)
	}
	if rec.SourceURL != "https://cudl.lib.cam.ac.uk/view/MS-ADD-00451" {
		t.Fatalf("unexpected viewer URL %q", rec.SourceURL)
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("record should validate: %v", err)
	}
}

func TestFetchFallsBackToLabelClassmark(t *testing.T) {
	a, srv := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bareLabelManifest))
	}))

	rec, err := a.Fetch(context.Background(), source.Candidate{ManifestURL: srv.URL + "/iiif/MS-KK-00005-00016"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.Shelfmark != "MS Kk.5.16" {
		t.Fatalf("expected classmark from label, got %q", rec.Shelfmark)
	}
	if rec.Contents != "Cambridge, University Library, MS Kk.5.16" {
		t.Fatalf("expected contents to fall back to the label, got %q", rec.Contents)
	}
}

func TestRepositorySeed(t *testing.T) {
	a := New(source.Deps{})
	seed := a.Repository()
	if seed.ShortName != Name {
		t.Fatalf("short name must match the source key, got %q", seed.ShortName)
	}
	if seed.Name != "Cambridge University Library" {
		t.Fatalf("unexpected repository name %q", seed.Name)
	}
}
