package bodleian

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"compilatio/internal/logging"
	"compilatio/internal/remote"
	"compilatio/internal/source"
)

const teiDigitized = `<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader><fileDesc><sourceDesc>
    <msDesc xml:id="MS_Bodl_264">
      <msIdentifier><idno type="shelfmark">MS. Bodl. 264</idno></msIdentifier>
      <head>Romance of Alexander</head>
      <msContents>
        <summary>The Romance of Alexander in French verse.</summary>
        <textLang mainLang="fro">Old French</textLang>
      </msContents>
      <history><origin>
        <origDate notBefore="1338" notAfter="1344">1338-1344</origDate>
        <origPlace><country>Flemish</country></origPlace>
      </origin></history>
      <additional><surrogates>
        <bibl type="digital-facsimile" subtype="full">
          <ref target="https://digital.bodleian.ox.ac.uk/objects/ae9f6cca-ae5c-4149-8fe4-95e6eca1f73c/">Digital Bodleian</ref>
        </bibl>
      </surrogates></additional>
    </msDesc>
  </sourceDesc></fileDesc></teiHeader>
</TEI>`

const teiPartial = `<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader><fileDesc><sourceDesc>
    <msDesc>
      <msIdentifier><idno type="shelfmark">MS. Digby 23</idno></msIdentifier>
      <additional><surrogates>
        <bibl type="digital-facsimile" subtype="partial">
          <ref target="https://digital.bodleian.ox.ac.uk/objects/11111111-2222-3333-4444-555555555555/">Digital Bodleian</ref>
        </bibl>
      </surrogates></additional>
    </msDesc>
  </sourceDesc></fileDesc></teiHeader>
</TEI>`

const teiNoObjectID = `<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader><fileDesc><sourceDesc>
    <msDesc>
      <msIdentifier><idno type="shelfmark">MS. Junius 11</idno></msIdentifier>
      <additional><surrogates>
        <bibl type="digital-facsimile" subtype="full">
          <ref target="https://digital.bodleian.ox.ac.uk/inquire/Discover/Search">Digital Bodleian</ref>
        </bibl>
      </surrogates></additional>
    </msDesc>
  </sourceDesc></fileDesc></teiHeader>
</TEI>`

const iiifManifest = `{
  "@context": "http://iiif.io/api/presentation/2/context.json",
  "@id": "https://iiif.bodleian.ox.ac.uk/iiif/manifest/ae9f6cca-ae5c-4149-8fe4-95e6eca1f73c.json",
  "@type": "sc:Manifest",
  "label": "Bodleian Library MS. Bodl. 264",
  "thumbnail": {"@id": "https://iiif.bodleian.ox.ac.uk/iiif/image/5009c067/full/256,/0/default.jpg"},
  "sequences": [{"canvases": [
    {"@id": "https://iiif.bodleian.ox.ac.uk/iiif/canvas/1.json"},
    {"@id": "https://iiif.bodleian.ox.ac.uk/iiif/canvas/2.json"},
    {"@id": "https://iiif.bodleian.ox.ac.uk/iiif/canvas/3.json"}
  ]}]
}`

func newTestAdapter(t *testing.T, fsys fstest.MapFS, handler http.Handler) *adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &adapter{
		client:       remote.NewClient("compilatio-test"),
		logger:       logging.NewNop(),
		fsys:         fsys,
		dir:          "tei",
		manifestBase: srv.URL + "/",
		width:        200,
	}
}

func TestDiscoverWalksDirectory(t *testing.T) {
	fsys := fstest.MapFS{
		"Ashmole/MS_Ashmole_304.xml": {Data: []byte(teiDigitized)},
		"Bodley/MS_Bodl_264.xml":     {Data: []byte(teiDigitized)},
		"Bodley/notes.txt":           {Data: []byte("not a description")},
	}
	a := newTestAdapter(t, fsys, http.NotFoundHandler())

	candidates, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].ManifestURL != "Ashmole/MS_Ashmole_304.xml" {
		t.Errorf("unexpected first candidate: %q", candidates[0].ManifestURL)
	}
	if candidates[1].ManifestURL != "Bodley/MS_Bodl_264.xml" {
		t.Errorf("unexpected second candidate: %q", candidates[1].ManifestURL)
	}
	if candidates[0].Shelfmark != "" {
		t.Errorf("expected provisional shelfmark left empty, got %q", candidates[0].Shelfmark)
	}
}

func TestDiscoverRequiresDirectory(t *testing.T) {
	a := &adapter{client: remote.NewClient("compilatio-test"), logger: logging.NewNop()}
	_, err := a.Discover(context.Background())
	if !errors.Is(err, remote.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestFetchResolvesManifest(t *testing.T) {
	fsys := fstest.MapFS{"Bodley/MS_Bodl_264.xml": {Data: []byte(teiDigitized)}}
	mux := http.NewServeMux()
	mux.HandleFunc("/ae9f6cca-ae5c-4149-8fe4-95e6eca1f73c.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(iiifManifest))
	})
	a := newTestAdapter(t, fsys, mux)

	rec, err := a.Fetch(context.Background(), source.Candidate{ManifestURL: "Bodley/MS_Bodl_264.xml"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.Shelfmark != "MS. Bodl. 264" {
		t.Errorf("unexpected shelfmark: %q", rec.Shelfmark)
	}
	if rec.Title != "Romance of Alexander" {
		t.Errorf("unexpected title: %q", rec.Title)
	}
	if rec.Contents != "The Romance of Alexander in French verse." {
		t.Errorf("unexpected contents: %q", rec.Contents)
	}
	if rec.ManifestURL != a.manifestBase+"ae9f6cca-ae5c-4149-8fe4-95e6eca1f73c.json" {
		t.Errorf("unexpected manifest url: %q", rec.ManifestURL)
	}
	if rec.SourceURL != "https://digital.bodleian.ox.ac.uk/objects/ae9f6cca-ae5c-4149-8fe4-95e6eca1f73c/" {
		t.Errorf("unexpected source url: %q", rec.SourceURL)
	}
	if rec.ThumbnailURL != "https://iiif.bodleian.ox.ac.uk/iiif/image/5009c067/full/256,/0/default.jpg" {
		t.Errorf("unexpected thumbnail: %q", rec.ThumbnailURL)
	}
	if rec.ImageCount != 3 {
		t.Errorf("expected 3 images, got %d", rec.ImageCount)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("record does not validate: %v", err)
	}
}

func TestFetchSkipsPartialDigitization(t *testing.T) {
	fsys := fstest.MapFS{"Digby/MS_Digby_23.xml": {Data: []byte(teiPartial)}}
	a := newTestAdapter(t, fsys, http.NotFoundHandler())

	_, err := a.Fetch(context.Background(), source.Candidate{ManifestURL: "Digby/MS_Digby_23.xml"})
	if !errors.Is(err, remote.ErrSkip) {
		t.Fatalf("expected ErrSkip, got %v", err)
	}
}

func TestFetchSkipsWithoutObjectID(t *testing.T) {
	fsys := fstest.MapFS{"Junius/MS_Junius_11.xml": {Data: []byte(teiNoObjectID)}}
	a := newTestAdapter(t, fsys, http.NotFoundHandler())

	_, err := a.Fetch(context.Background(), source.Candidate{ManifestURL: "Junius/MS_Junius_11.xml"})
	if !errors.Is(err, remote.ErrSkip) {
		t.Fatalf("expected ErrSkip, got %v", err)
	}
}

func TestFetchImportsWithoutImagesWhenManifestMissing(t *testing.T) {
	fsys := fstest.MapFS{"Bodley/MS_Bodl_264.xml": {Data: []byte(teiDigitized)}}
	a := newTestAdapter(t, fsys, http.NotFoundHandler())

	rec, err := a.Fetch(context.Background(), source.Candidate{ManifestURL: "Bodley/MS_Bodl_264.xml"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.ThumbnailURL != "" {
		t.Errorf("expected no thumbnail, got %q", rec.ThumbnailURL)
	}
	if rec.ImageCount != 0 {
		t.Errorf("expected no image count, got %d", rec.ImageCount)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("record does not validate: %v", err)
	}
}

func TestRepositorySeed(t *testing.T) {
	seed := New(source.Deps{}).Repository()
	if seed.ShortName != Name {
		t.Errorf("unexpected short name: %q", seed.ShortName)
	}
	if seed.Name != "Bodleian Library, University of Oxford" {
		t.Errorf("unexpected name: %q", seed.Name)
	}
}
