package harvard

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"compilatio/internal/logging"
	"compilatio/internal/remote"
	"compilatio/internal/source"
)

const searchFixture = `<!DOCTYPE html>
<html><body>
<div class="results">
  <div class="card">
    <a href="https://iiif.lib.harvard.edu/manifests/drs:428337165"><img src="https://iiif.biblissima.fr/thumbs/428337165.jpg"></a>
    <h3><a href="https://iiif.lib.harvard.edu/manifests/drs:428337165">Book of hours : use of Rome</a></h3>
    <p>Catholic Church. 15th century. Parchment.</p>
  </div>
  <div class="card">
    <a href="https://iiif.lib.harvard.edu/manifests/drs:7978059">De consolatione philosophiae</a>
    <p>Boethius. 1400-1450.</p>
  </div>
  <div class="card">
    <a href="https://gallica.bnf.fr/ark:/12148/btv1b8452202x">Unrelated result</a>
  </div>
</div>
</body></html>`

const manifestFixture = `{
  "@context": "http://iiif.io/api/presentation/2/context.json",
  "@id": "https://iiif.lib.harvard.edu/manifests/drs:428337165",
  "@type": "sc:Manifest",
  "label": "Catholic Church. Book of hours : use of Rome : manuscript, [ca. 1485]. MS Lat 249. Houghton Library, Harvard University, Cambridge, Mass.",
  "metadata": [
    {"label": "Language", "value": "Latin"},
    {"label": "Physical Description", "value": "116 leaves : parchment"}
  ],
  "sequences": [{"canvases": [
    {"@id": "https://iiif.lib.harvard.edu/canvas/1", "images": [{"resource": {"service": {"@id": "https://ids.lib.harvard.edu/ids/iiif/43182083"}}}]},
    {"@id": "https://iiif.lib.harvard.edu/canvas/2"}
  ]}]
}`

const unlabeledManifest = `{
  "@context": "http://iiif.io/api/presentation/2/context.json",
  "@id": "https://iiif.lib.harvard.edu/manifests/drs:99999999",
  "@type": "sc:Manifest",
  "label": "Fragment of a gradual : manuscript",
  "metadata": [],
  "sequences": [{"canvases": []}]
}`

func newTestAdapter(t *testing.T, handler http.Handler) *adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &adapter{
		client:    remote.NewClient("compilatio-test"),
		logger:    logging.NewNop(),
		search:    srv.URL + "/collections/search?q=houghton+harvard",
		manifests: srv.URL + "/manifests",
		viewer:    srv.URL + "/manifests/view",
	}
}

func TestDiscoverScrapesSearchCards(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("from") == "" {
			fmt.Fprint(w, searchFixture)
			return
		}
		fmt.Fprint(w, `<html><body><div class="results"></div></body></html>`)
	})
	a := newTestAdapter(t, mux)

	candidates, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.ManifestURL != a.manifests+"/drs:428337165" {
		t.Errorf("unexpected manifest url: %q", first.ManifestURL)
	}
	if first.SourceURL != a.viewer+"/drs:428337165" {
		t.Errorf("unexpected source url: %q", first.SourceURL)
	}
	if first.Title != "Book of hours : use of Rome" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.Extra["thumbnail"] != "https://iiif.biblissima.fr/thumbs/428337165.jpg" {
		t.Errorf("unexpected thumbnail: %q", first.Extra["thumbnail"])
	}
	if first.Extra["date"] != "15th century" {
		t.Errorf("unexpected date: %q", first.Extra["date"])
	}
	if first.Shelfmark != "" {
		t.Errorf("expected shelfmark left for fetch, got %q", first.Shelfmark)
	}

	second := candidates[1]
	if second.ManifestURL != a.manifests+"/drs:7978059" {
		t.Errorf("unexpected second manifest url: %q", second.ManifestURL)
	}
	if second.Extra["date"] != "1400-1450" {
		t.Errorf("unexpected second date: %q", second.Extra["date"])
	}
}

func TestFetchExtractsFromLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manifests/drs:428337165", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, manifestFixture)
	})
	a := newTestAdapter(t, mux)

	cand := source.Candidate{
		ManifestURL: a.manifests + "/drs:428337165",
		SourceURL:   a.viewer + "/drs:428337165",
		Title:       "Book of hours : use of Rome",
	}
	rec, err := a.Fetch(context.Background(), cand)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.Shelfmark != "MS Lat 249" {
		t.Errorf("unexpected shelfmark: %q", rec.Shelfmark)
	}
	if rec.Collection != "" {
		t.Errorf("expected collection left for derivation, got %q", rec.Collection)
	}
	want := "Catholic Church. Book of hours : use of Rome : manuscript, [ca. 1485]"
	if rec.Title != want {
		t.Errorf("unexpected title: %q", rec.Title)
	}
	if rec.Contents != want {
		t.Errorf("unexpected contents: %q", rec.Contents)
	}
	if rec.DateDisplay != "ca. 1485" {
		t.Errorf("unexpected date display: %q", rec.DateDisplay)
	}
	if rec.DateStart == nil || rec.DateEnd == nil || *rec.DateStart != 1485 || *rec.DateEnd != 1485 {
		t.Errorf("unexpected date bounds: %v-%v", rec.DateStart, rec.DateEnd)
	}
	if rec.Language != "Latin" {
		t.Errorf("unexpected language: %q", rec.Language)
	}
	if rec.Folios != "116 leaves : parchment" {
		t.Errorf("unexpected folios: %q", rec.Folios)
	}
	if rec.ThumbnailURL != "https://ids.lib.harvard.edu/ids/iiif/43182083/full/200,/0/default.jpg" {
		t.Errorf("unexpected thumbnail: %q", rec.ThumbnailURL)
	}
	if rec.ImageCount != 2 {
		t.Errorf("expected 2 images, got %d", rec.ImageCount)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("record does not validate: %v", err)
	}
}

func TestFetchKeysOnDRSWhenLabelHasNoShelfmark(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manifests/drs:99999999", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, unlabeledManifest)
	})
	a := newTestAdapter(t, mux)

	cand := source.Candidate{
		ManifestURL: a.manifests + "/drs:99999999",
		SourceURL:   a.viewer + "/drs:99999999",
		Extra: map[string]string{
			"date":      "14th century",
			"thumbnail": "https://iiif.biblissima.fr/thumbs/99999999.jpg",
		},
	}
	rec, err := a.Fetch(context.Background(), cand)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.Shelfmark != "DRS 99999999" {
		t.Errorf("unexpected shelfmark: %q", rec.Shelfmark)
	}
	if rec.Title != "Fragment of a gradual : manuscript" {
		t.Errorf("unexpected title: %q", rec.Title)
	}
	if rec.DateDisplay != "14th century" {
		t.Errorf("unexpected date display: %q", rec.DateDisplay)
	}
	if rec.DateStart == nil || rec.DateEnd == nil || *rec.DateStart != 1300 || *rec.DateEnd != 1399 {
		t.Errorf("unexpected date bounds: %v-%v", rec.DateStart, rec.DateEnd)
	}
	if rec.ThumbnailURL != "https://iiif.biblissima.fr/thumbs/99999999.jpg" {
		t.Errorf("expected discovery thumbnail, got %q", rec.ThumbnailURL)
	}
}

func TestTitleFromLabel(t *testing.T) {
	cases := []struct {
		label     string
		shelfmark string
		want      string
	}{
		{
			label:     "Catholic Church. Book of hours : manuscript, [ca. 1485]. MS Lat 249. Houghton Library.",
			shelfmark: "MS Lat 249",
			want:      "Catholic Church. Book of hours : manuscript, [ca. 1485]",
		},
		{
			label:     "Psalter. Houghton Library, Harvard University, Cambridge, Mass.",
			shelfmark: "",
			want:      "Psalter",
		},
		{
			label:     "MS Typ 101. Houghton Library.",
			shelfmark: "MS Typ 101",
			want:      "MS Typ 101.",
		},
	}
	for _, tc := range cases {
		if got := titleFromLabel(tc.label, tc.shelfmark); got != tc.want {
			t.Errorf("titleFromLabel(%q, %q) = %q, want %q", tc.label, tc.shelfmark, got, tc.want)
		}
	}
}

func TestRepositorySeed(t *testing.T) {
	seed := New(source.Deps{}).Repository()
	if seed.ShortName != Name {
		t.Errorf("unexpected short name: %q", seed.ShortName)
	}
}
