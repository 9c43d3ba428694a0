package manifest_test

import (
	"errors"
	"strings"
	"testing"

	"compilatio/internal/manifest"
)

const teiDescription = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader>
    <fileDesc>
      <sourceDesc>
        <msDesc xml:id="MS_Bodl_264">
          <msIdentifier>
            <idno type="collection">Bodley</idno>
            <idno type="shelfmark">MS. Bodl. 264</idno>
          </msIdentifier>
          <head>Romance of Alexander</head>
          <msContents>
            <summary>The <title>Romance of Alexander</title> in French verse.</summary>
            <textLang mainLang="fro">Old French</textLang>
          </msContents>
          <physDesc>
            <objectDesc>
              <supportDesc material="perg">
                <extent>274 leaves</extent>
              </supportDesc>
            </objectDesc>
          </physDesc>
          <history>
            <origin>
              <origDate calendar="Gregorian" notBefore="1338" notAfter="1344">1338-1344</origDate>
              <origPlace>
                <country>Flemish</country>
              </origPlace>
            </origin>
          </history>
          <additional>
            <surrogates>
              <bibl type="digital-facsimile" subtype="full">
                <ref target="https://digital.bodleian.ox.ac.uk/objects/ae9f6cca-ae5c-4149-8fe4-95e6eca1f73c/">Digital Bodleian</ref>
              </bibl>
            </surrogates>
          </additional>
        </msDesc>
      </sourceDesc>
    </fileDesc>
  </teiHeader>
</TEI>`

func TestFromTEIExtractsDescription(t *testing.T) {
	rec, err := manifest.FromTEI([]byte(teiDescription),
		manifest.WithFacsimileHost("digital.bodleian.ox.ac.uk"))
	if err != nil {
		t.Fatalf("FromTEI failed: %v", err)
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
	if rec.Language != "Old French" {
		t.Errorf("unexpected language: %q", rec.Language)
	}
	if rec.Folios != "274 leaves" {
		t.Errorf("unexpected folios: %q", rec.Folios)
	}
	if rec.DateDisplay != "1338-1344" {
		t.Errorf("unexpected date display: %q", rec.DateDisplay)
	}
	if rec.DateStart == nil || rec.DateEnd == nil || *rec.DateStart != 1338 || *rec.DateEnd != 1344 {
		t.Errorf("unexpected date bounds: %v-%v", rec.DateStart, rec.DateEnd)
	}
	if rec.Provenance != "Flemish" {
		t.Errorf("unexpected provenance: %q", rec.Provenance)
	}
	if rec.SourceURL != "https://digital.bodleian.ox.ac.uk/objects/ae9f6cca-ae5c-4149-8fe4-95e6eca1f73c/" {
		t.Errorf("unexpected source url: %q", rec.SourceURL)
	}
	if rec.ManifestURL != "" {
		t.Errorf("expected manifest url left empty, got %q", rec.ManifestURL)
	}
}

func TestFromTEISkipsPartialDigitization(t *testing.T) {
	partial := strings.Replace(teiDescription, `subtype="full"`, `subtype="partial"`, 1)
	_, err := manifest.FromTEI([]byte(partial))
	if !errors.Is(err, manifest.ErrNotDigitized) {
		t.Fatalf("expected ErrNotDigitized, got %v", err)
	}
}

func TestFromTEISkipsWithoutSurrogates(t *testing.T) {
	data := `<TEI xmlns="http://www.tei-c.org/ns/1.0">
      <teiHeader><fileDesc><sourceDesc>
        <msDesc><msIdentifier><idno type="shelfmark">MS 1</idno></msIdentifier></msDesc>
      </sourceDesc></fileDesc></teiHeader>
    </TEI>`
	_, err := manifest.FromTEI([]byte(data))
	if !errors.Is(err, manifest.ErrNotDigitized) {
		t.Fatalf("expected ErrNotDigitized, got %v", err)
	}
}

func TestFromTEIViewerRefImpliesDigitized(t *testing.T) {
	data := `<TEI xmlns="http://www.tei-c.org/ns/1.0">
      <teiHeader><fileDesc><sourceDesc>
        <msDesc>
          <msIdentifier><idno type="shelfmark">MS. Junius 11</idno></msIdentifier>
          <additional><surrogates>
            <ref target="https://digital.bodleian.ox.ac.uk/objects/abc123/">Digital Bodleian</ref>
          </surrogates></additional>
        </msDesc>
      </sourceDesc></fileDesc></teiHeader>
    </TEI>`
	rec, err := manifest.FromTEI([]byte(data),
		manifest.WithFacsimileHost("digital.bodleian.ox.ac.uk"))
	if err != nil {
		t.Fatalf("FromTEI failed: %v", err)
	}
	if rec.Shelfmark != "MS. Junius 11" {
		t.Errorf("unexpected shelfmark: %q", rec.Shelfmark)
	}
}

func TestFromTEIRequiresMsDesc(t *testing.T) {
	if _, err := manifest.FromTEI([]byte(`<TEI xmlns="http://www.tei-c.org/ns/1.0"><teiHeader></teiHeader></TEI>`)); err == nil {
		t.Fatal("expected error for document without msDesc")
	}
}

func TestFromTEIJoinsItemTitlesWithoutSummary(t *testing.T) {
	data := `<TEI xmlns="http://www.tei-c.org/ns/1.0">
      <teiHeader><fileDesc><sourceDesc>
        <msDesc>
          <msIdentifier><idno type="shelfmark">MS. Digby 23</idno></msIdentifier>
          <msContents>
            <msItem><title>Chanson de Roland</title></msItem>
            <msItem><title>Timaeus</title></msItem>
            <msItem><title>Glosses</title></msItem>
            <msItem><title>Calendar</title></msItem>
            <msItem><title>Computus</title></msItem>
            <msItem><title>Later additions</title></msItem>
          </msContents>
          <additional><surrogates>
            <bibl type="digital-facsimile" subtype="full">
              <ref target="https://digital.bodleian.ox.ac.uk/objects/def456/">Digital Bodleian</ref>
            </bibl>
          </surrogates></additional>
        </msDesc>
      </sourceDesc></fileDesc></teiHeader>
    </TEI>`
	rec, err := manifest.FromTEI([]byte(data))
	if err != nil {
		t.Fatalf("FromTEI failed: %v", err)
	}
	want := "Chanson de Roland; Timaeus; Glosses; Calendar; Computus"
	if rec.Contents != want {
		t.Errorf("expected first five titles joined, got %q", rec.Contents)
	}
}

func TestFromTEIDateFromAttributesOnly(t *testing.T) {
	data := `<TEI xmlns="http://www.tei-c.org/ns/1.0">
      <teiHeader><fileDesc><sourceDesc>
        <msDesc>
          <msIdentifier><idno type="shelfmark">MS. Tanner 10</idno></msIdentifier>
          <history><origin><origDate notBefore="0900" notAfter="0999"></origDate></origin></history>
          <additional><surrogates>
            <bibl type="digital-facsimile" subtype="full">
              <ref target="https://digital.bodleian.ox.ac.uk/objects/ghi789/">Digital Bodleian</ref>
            </bibl>
          </surrogates></additional>
        </msDesc>
      </sourceDesc></fileDesc></teiHeader>
    </TEI>`
	rec, err := manifest.FromTEI([]byte(data))
	if err != nil {
		t.Fatalf("FromTEI failed: %v", err)
	}
	if rec.DateDisplay != "0900–0999" {
		t.Errorf("unexpected date display: %q", rec.DateDisplay)
	}
	if rec.DateStart == nil || rec.DateEnd == nil || *rec.DateStart != 900 || *rec.DateEnd != 999 {
		t.Errorf("unexpected date bounds: %v-%v", rec.DateStart, rec.DateEnd)
	}
}
