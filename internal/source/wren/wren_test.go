package wren

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"compilatio/internal/logging"
	"compilatio/internal/remote"
	"compilatio/internal/source"
)

const listingPageOne = `<html><body>
<div class="search-results">
  <div class="result-item">Trinity College B.10.4 &mdash; Gospel book, digitised copy available</div>
  <div class="result-item">O.2.51 Miscellany of scientific texts</div>
  <div class="result-item">Printed book, no shelfmark pattern here</div>
</div>
</body></html>`

const listingPageTwo = `<html><body>
<div class="search-results">
  <div class="result-item">R.17.1 Eadwine Psalter</div>
  <div class="result-item">B.10.4 appears again on this page</div>
</div>
</body></html>`

const listingPageThree = `<html><body>
<div class="search-results">
  <div class="result-item">R.17.1 Eadwine Psalter</div>
</div>
</body></html>`

const manifestFixture = `{
  "@context": "http://iiif.io/api/presentation/2/context.json",
  "@id": "https://mss-cat.trin.cam.ac.uk/manuscripts/B.10.4.json",
  "@type": "sc:Manifest",
  "label": "Gospel book with Canon tables",
  "metadata": [
    {"label": "Date of Creation", "value": "c. 950"},
    {"label": "Language", "value": "Latin"},
    {"label": "Folio count", "value": "ff. 220"}
  ],
  "sequences": [{
    "canvases": [
      {
        "@id": "https://mss-cat.trin.cam.ac.uk/manuscripts/B.10.4/canvas/1",
        "thumbnail": {"@id": "https://mss-cat.trin.cam.ac.uk/manuscripts/thumbs/B.10.4.jpg"}
      },
      {"@id": "https://mss-cat.trin.cam.ac.uk/manuscripts/B.10.4/canvas/2"}
    ]
  }]
}`

const bareManifest = `{
  "@context": "http://iiif.io/api/presentation/2/context.json",
  "@id": "https://mss-cat.trin.cam.ac.uk/manuscripts/O.2.51.json",
  "@type": "sc:Manifest",
  "label": "O.2.51",
  "metadata": [
    {"label": "Titles of works", "value": "Tractatus de sphaera"},
    {"label": "Date", "value": "1450-1470"}
  ],
  "sequences": []
}`

// fakeWalker feeds canned listing pages to the visit callback and records
// the walk it was asked to run.
type fakeWalker struct {
	pages []string
	walk  remote.PageWalk
}

func (f *fakeWalker) WalkPages(ctx context.Context, walk remote.PageWalk, visit func(page int, html string) (bool, error)) error {
	f.walk = walk
	for i, html := range f.pages {
		more, err := visit(i+1, html)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func newTestAdapter(t *testing.T, walker pageWalker, handler http.Handler) *adapter {
	t.Helper()
	a := &adapter{
		client:    remote.NewClient("compilatio-test"),
		walker:    walker,
		logger:    logging.NewNop(),
		search:    searchURL,
		manifests: manifestBase,
		viewer:    viewerBase,
	}
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		a.manifests = srv.URL + "/manuscripts"
	}
	return a
}

func TestDiscoverCollectsShelfmarks(t *testing.T) {
	walker := &fakeWalker{pages: []string{listingPageOne, listingPageTwo, listingPageThree}}
	a := newTestAdapter(t, walker, nil)

	candidates, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}

	want := []string{"B.10.4", "O.2.51", "R.17.1"}
	for i, mark := range want {
		if candidates[i].Shelfmark != mark {
			t.Errorf("candidate %d: expected %q, got %q", i, mark, candidates[i].Shelfmark)
		}
	}
	first := candidates[0]
	if first.ManifestURL != manifestBase+"/B.10.4.json" {
		t.Errorf("unexpected manifest url: %q", first.ManifestURL)
	}
	if first.SourceURL != viewerBase+"?n=B.10.4" {
		t.Errorf("unexpected source url: %q", first.SourceURL)
	}

	if len(walker.walk.SetupClicks) == 0 || walker.walk.SetupClicks[0] != "#DigitisedOnly" {
		t.Errorf("expected digitised filter click, got %v", walker.walk.SetupClicks)
	}
	if walker.walk.NextText != "Next" {
		t.Errorf("unexpected pagination control: %q", walker.walk.NextText)
	}
}

func TestDiscoverWithoutBrowser(t *testing.T) {
	a := newTestAdapter(t, nil, nil)
	if _, err := a.Discover(context.Background()); !errors.Is(err, remote.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFetchMapsManifest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manuscripts/B.10.4.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, manifestFixture)
	})
	a := newTestAdapter(t, nil, mux)

	cand := source.Candidate{
		Shelfmark:   "B.10.4",
		ManifestURL: a.manifests + "/B.10.4.json",
		SourceURL:   a.viewer + "?n=B.10.4",
	}
	rec, err := a.Fetch(context.Background(), cand)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.Shelfmark != "B.10.4" {
		t.Errorf("unexpected shelfmark: %q", rec.Shelfmark)
	}
	if rec.Title != "Gospel book with Canon tables" {
		t.Errorf("unexpected title: %q", rec.Title)
	}
	if rec.Contents != "Gospel book with Canon tables" {
		t.Errorf("unexpected contents: %q", rec.Contents)
	}
	if rec.DateDisplay != "c. 950" {
		t.Errorf("unexpected date display: %q", rec.DateDisplay)
	}
	if rec.DateStart == nil || rec.DateEnd == nil || *rec.DateStart != 950 || *rec.DateEnd != 950 {
		t.Errorf("expected three-digit year parsed, got %v-%v", rec.DateStart, rec.DateEnd)
	}
	if rec.Language != "Latin" {
		t.Errorf("unexpected language: %q", rec.Language)
	}
	if rec.Folios != "ff. 220" {
		t.Errorf("expected folio count via substring match, got %q", rec.Folios)
	}
	if rec.ThumbnailURL != "https://mss-cat.trin.cam.ac.uk/manuscripts/thumbs/B.10.4.jpg" {
		t.Errorf("expected first-canvas thumbnail, got %q", rec.ThumbnailURL)
	}
	if rec.ImageCount != 2 {
		t.Errorf("expected 2 images, got %d", rec.ImageCount)
	}
	if rec.Collection != "" {
		t.Errorf("expected no collection, got %q", rec.Collection)
	}
	if rec.ManifestURL != cand.ManifestURL {
		t.Errorf("unexpected manifest url: %q", rec.ManifestURL)
	}
	if rec.SourceURL != cand.SourceURL {
		t.Errorf("unexpected source url: %q", rec.SourceURL)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("record does not validate: %v", err)
	}
}

func TestFetchShelfmarkOnlyLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manuscripts/O.2.51.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, bareManifest)
	})
	a := newTestAdapter(t, nil, mux)

	cand := source.Candidate{
		Shelfmark:   "O.2.51",
		ManifestURL: a.manifests + "/O.2.51.json",
		SourceURL:   a.viewer + "?n=O.2.51",
	}
	rec, err := a.Fetch(context.Background(), cand)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.Title != "O.2.51" {
		t.Errorf("unexpected title: %q", rec.Title)
	}
	if rec.Contents != "Tractatus de sphaera" {
		t.Errorf("expected contents via substring title match, got %q", rec.Contents)
	}
	if rec.DateStart == nil || rec.DateEnd == nil || *rec.DateStart != 1450 || *rec.DateEnd != 1470 {
		t.Errorf("unexpected date bounds: %v-%v", rec.DateStart, rec.DateEnd)
	}
	if rec.ThumbnailURL != "" {
		t.Errorf("expected no thumbnail, got %q", rec.ThumbnailURL)
	}
	if rec.ImageCount != 0 {
		t.Errorf("expected no images, got %d", rec.ImageCount)
	}
}

func TestRepositorySeed(t *testing.T) {
	seed := New(source.Deps{}).Repository()
	if seed.ShortName != Name {
		t.Errorf("unexpected short name: %q", seed.ShortName)
	}
	if seed.LogoURL == "" {
		t.Error("expected a logo url")
	}
}
