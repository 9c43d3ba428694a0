package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"compilatio/internal/language"
	"compilatio/internal/textutil"
)

// ErrNotDigitized reports a TEI description whose surrogates carry no full
// digital facsimile; such manuscripts have nothing to import.
var ErrNotDigitized = errors.New("manuscript is not fully digitized")

// FromTEI maps a TEI msDesc catalogue description into a Record. The
// shelfmark comes from msIdentifier idno[type=shelfmark], the title from the
// msDesc head, contents from the msContents summary or the first five msItem
// titles, dates from origDate notBefore/notAfter, provenance from origPlace.
// The source URL is the first surrogate ref matching the configured
// facsimile host. TEI descriptions carry no IIIF endpoint, so ManifestURL,
// ThumbnailURL, and ImageCount are left for the caller to fill from the
// manifest itself.
func FromTEI(data []byte, opts ...Option) (*Record, error) {
	o := buildOptions(opts)

	root, err := parseTree(data)
	if err != nil {
		return nil, err
	}
	msDesc := root.find("msDesc")
	if msDesc == nil {
		return nil, errors.New("tei document has no msDesc")
	}

	surrogates := msDesc.find("surrogates")
	if !fullyDigitized(surrogates, o.facsimileHost) {
		return nil, ErrNotDigitized
	}

	rec := &Record{SourceURL: facsimileRef(surrogates, o.facsimileHost)}

	if msID := msDesc.child("msIdentifier"); msID != nil {
		for _, idno := range msID.childAll("idno") {
			if idno.attr("type") == "shelfmark" {
				rec.Shelfmark = idno.flatText()
				break
			}
		}
	}
	if rec.Shelfmark == "" {
		rec.Shelfmark = o.provisional
	}

	if head := msDesc.child("head"); head != nil {
		rec.Title = head.flatText()
	}

	if contents := msDesc.child("msContents"); contents != nil {
		if summary := contents.child("summary"); summary != nil {
			rec.Contents = summary.flatText()
		} else {
			var titles []string
			for _, item := range contents.findAll("msItem") {
				title := item.child("title")
				if title == nil {
					continue
				}
				if text := title.flatText(); text != "" {
					titles = append(titles, text)
				}
				if len(titles) == 5 {
					break
				}
			}
			rec.Contents = strings.Join(titles, "; ")
		}
		rec.Contents = textutil.TruncateRunes(rec.Contents, MaxContentsRunes)

		if lang := contents.child("textLang"); lang != nil {
			code := lang.attr("mainLang")
			if code == "" {
				code = lang.flatText()
			}
			rec.Language = language.NormalizeStatement(code)
		}
	}

	if phys := msDesc.child("physDesc"); phys != nil {
		if support := phys.find("supportDesc"); support != nil {
			if extent := support.child("extent"); extent != nil {
				rec.Folios = extent.flatText()
			}
		}
	}

	if history := msDesc.find("history"); history != nil {
		if origin := history.child("origin"); origin != nil {
			applyOrigin(rec, origin)
		}
	}

	return rec, nil
}

func applyOrigin(rec *Record, origin *teiNode) {
	if date := origin.child("origDate"); date != nil {
		notBefore := date.attr("notBefore")
		notAfter := date.attr("notAfter")
		switch text := date.flatText(); {
		case text != "":
			rec.DateDisplay = text
		case notBefore != "" && notAfter != "":
			rec.DateDisplay = notBefore + "–" + notAfter
		case notBefore != "":
			rec.DateDisplay = "after " + notBefore
		case notAfter != "":
			rec.DateDisplay = "before " + notAfter
		}
		rec.DateStart = yearFromAttr(notBefore)
		rec.DateEnd = yearFromAttr(notAfter)
		if rec.DateStart == nil && rec.DateEnd == nil {
			rec.DateStart, rec.DateEnd = ParseDateRange(rec.DateDisplay)
		}
	}

	if place := origin.child("origPlace"); place != nil {
		if country := place.child("country"); country != nil {
			rec.Provenance = country.flatText()
		}
		if rec.Provenance == "" {
			rec.Provenance = place.flatText()
		}
	}
}

// fullyDigitized checks the surrogates block for a full digital facsimile.
// Explicit bibl subtypes win, then typed refs, then the prose; as a last
// resort a ref into the facsimile viewer counts as digitized.
func fullyDigitized(surrogates *teiNode, facsimileHost string) bool {
	if surrogates == nil {
		return false
	}
	for _, bibl := range surrogates.findAll("bibl") {
		biblType := bibl.attr("type")
		if !strings.Contains(biblType, "digital") {
			continue
		}
		subtype := strings.ToLower(bibl.attr("subtype"))
		if strings.Contains(subtype, "full") {
			return true
		}
		if strings.Contains(subtype, "partial") {
			return false
		}
	}
	for _, ref := range surrogates.findAll("ref") {
		refType := strings.ToLower(ref.attr("type"))
		if strings.Contains(refType, "full") {
			return true
		}
		if strings.Contains(refType, "partial") {
			return false
		}
	}
	text := strings.ToLower(surrogates.flatText())
	if strings.Contains(text, "partial") {
		return false
	}
	if strings.Contains(text, "full") || strings.Contains(text, "complete") {
		return true
	}
	if facsimileHost != "" {
		for _, ref := range surrogates.findAll("ref") {
			if strings.Contains(ref.attr("target"), facsimileHost) {
				return true
			}
		}
	}
	return false
}

// facsimileRef picks the surrogate ref pointing at the facsimile viewer,
// falling back to the first web link when no host is configured.
func facsimileRef(surrogates *teiNode, facsimileHost string) string {
	if surrogates == nil {
		return ""
	}
	var fallback string
	for _, ref := range surrogates.findAll("ref") {
		target := ref.attr("target")
		if !strings.HasPrefix(target, "http") {
			continue
		}
		if facsimileHost != "" && strings.Contains(target, facsimileHost) {
			return target
		}
		if fallback == "" {
			fallback = target
		}
	}
	if facsimileHost != "" {
		return ""
	}
	return fallback
}

// teiNode is a minimal element tree. Elements carry a name, attributes, and
// ordered children; text runs appear as nameless children so mixed content
// flattens in document order. Namespaces are ignored: catalogue TEI uses the
// TEI namespace throughout and local names are unambiguous.
type teiNode struct {
	name     string
	attrs    map[string]string
	children []*teiNode
	text     string
}

func parseTree(data []byte) (*teiNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	// Catalogue exports occasionally carry undeclared entities.
	dec.Strict = false

	var root *teiNode
	var stack []*teiNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse tei: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &teiNode{name: t.Name.Local}
			if len(t.Attr) > 0 {
				node.attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					node.attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("parse tei: multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 {
				break
			}
			if text := string(t); strings.TrimSpace(text) != "" {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, &teiNode{text: text})
			}
		}
	}
	if root == nil {
		return nil, errors.New("parse tei: empty document")
	}
	return root, nil
}

func (n *teiNode) attr(name string) string {
	if n == nil {
		return ""
	}
	return n.attrs[name]
}

// child returns the first direct child element with the given local name.
func (n *teiNode) child(name string) *teiNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// childAll returns all direct child elements with the given local name.
func (n *teiNode) childAll(name string) []*teiNode {
	var out []*teiNode
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// find returns the first descendant element with the given local name.
func (n *teiNode) find(name string) *teiNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
		if got := c.find(name); got != nil {
			return got
		}
	}
	return nil
}

// findAll returns every descendant element with the given local name in
// document order.
func (n *teiNode) findAll(name string) []*teiNode {
	var out []*teiNode
	n.appendAll(name, &out)
	return out
}

func (n *teiNode) appendAll(name string, out *[]*teiNode) {
	for _, c := range n.children {
		if c.name == name {
			*out = append(*out, c)
		}
		c.appendAll(name, out)
	}
}

// flatText joins every text run under the node in document order with
// collapsed whitespace.
func (n *teiNode) flatText() string {
	var b strings.Builder
	n.writeText(&b)
	return textutil.CollapseWhitespace(b.String())
}

func (n *teiNode) writeText(b *strings.Builder) {
	if n.text != "" {
		b.WriteString(n.text)
		b.WriteByte(' ')
	}
	for _, c := range n.children {
		c.writeText(b)
	}
}
