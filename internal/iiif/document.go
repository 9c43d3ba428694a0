package iiif

import (
	"fmt"
	"regexp"
	"strings"

	"compilatio/internal/textutil"
)

// Pair is one entry from a manifest's descriptive metadata array.
type Pair struct {
	Label string
	Value string
}

// Entry is a child reference inside a collection document.
type Entry struct {
	ID    string
	Label string
}

// ID returns the document's own identifier.
func (d *Document) ID() string {
	return stringField(d.raw, "@id", "id")
}

// Label returns the document label collapsed to clean text.
func (d *Document) Label() string {
	return textutil.CleanHTML(Text(d.raw["label"]))
}

// Description returns the long-form description (v2 description, v3
// summary) collapsed to clean text.
func (d *Document) Description() string {
	if d.version == Version3 {
		return textutil.CleanHTML(Text(d.raw["summary"]))
	}
	return textutil.CleanHTML(Text(d.raw["description"]))
}

// Metadata returns the descriptive label/value pairs with both sides
// collapsed to clean text. Pairs with an empty label are dropped.
func (d *Document) Metadata() []Pair {
	entries := mapSlice(d.raw["metadata"])
	pairs := make([]Pair, 0, len(entries))
	for _, entry := range entries {
		label := strings.TrimSpace(Text(entry["label"]))
		if label == "" {
			continue
		}
		pairs = append(pairs, Pair{
			Label: label,
			Value: textutil.CleanHTML(Text(entry["value"])),
		})
	}
	return pairs
}

// MetadataValue looks up one metadata value by label, case-insensitively.
// Returns "" when the label is absent or its value empty.
func (d *Document) MetadataValue(label string) string {
	want := strings.ToLower(strings.TrimSpace(label))
	for _, pair := range d.Metadata() {
		if strings.ToLower(strings.TrimSpace(pair.Label)) == want {
			return pair.Value
		}
	}
	return ""
}

// CanvasCount reports the number of canvases (digitized pages).
func (d *Document) CanvasCount() int {
	if d.version == Version3 {
		return len(mapSlice(d.raw["items"]))
	}
	sequences := mapSlice(d.raw["sequences"])
	if len(sequences) == 0 {
		return 0
	}
	return len(mapSlice(sequences[0]["canvases"]))
}

// FirstImageService returns the IIIF Image API base URI of the first
// canvas's first image, or "" when the manifest exposes none.
func (d *Document) FirstImageService() string {
	service, _ := d.firstImage()
	return service
}

// firstImage walks to the first canvas's first painting and returns the
// image service base URI plus the image body URI (v3 only).
func (d *Document) firstImage() (service, body string) {
	if d.version == Version3 {
		canvases := mapSlice(d.raw["items"])
		if len(canvases) == 0 {
			return "", ""
		}
		pages := mapSlice(canvases[0]["items"])
		if len(pages) == 0 {
			return "", ""
		}
		annotations := mapSlice(pages[0]["items"])
		if len(annotations) == 0 {
			return "", ""
		}
		bodyMap := firstMap(annotations[0]["body"])
		if bodyMap == nil {
			return "", ""
		}
		if svc := firstMap(bodyMap["service"]); svc != nil {
			service = stringField(svc, "id", "@id")
		}
		return service, stringField(bodyMap, "id")
	}

	sequences := mapSlice(d.raw["sequences"])
	if len(sequences) == 0 {
		return "", ""
	}
	canvases := mapSlice(sequences[0]["canvases"])
	if len(canvases) == 0 {
		return "", ""
	}
	images := mapSlice(canvases[0]["images"])
	if len(images) == 0 {
		return "", ""
	}
	resource, ok := canvasResource(images[0])
	if !ok {
		return "", ""
	}
	if svc := firstMap(resource["service"]); svc != nil {
		service = stringField(svc, "@id", "id")
	}
	return service, ""
}

func canvasResource(image map[string]any) (map[string]any, bool) {
	resource, ok := image["resource"].(map[string]any)
	return resource, ok
}

// DeclaredThumbnail returns the manifest-level thumbnail property URI, or
// "" when the manifest declares none.
func (d *Document) DeclaredThumbnail() string {
	return thumbnailProp(d.raw["thumbnail"])
}

// CanvasThumbnail returns the thumbnail property declared on the first
// canvas. Some catalogues only publish per-canvas thumbnails.
func (d *Document) CanvasThumbnail() string {
	canvas := d.firstCanvas()
	if canvas == nil {
		return ""
	}
	return thumbnailProp(canvas["thumbnail"])
}

func (d *Document) firstCanvas() map[string]any {
	if d.version == Version3 {
		canvases := mapSlice(d.raw["items"])
		if len(canvases) == 0 {
			return nil
		}
		return canvases[0]
	}
	sequences := mapSlice(d.raw["sequences"])
	if len(sequences) == 0 {
		return nil
	}
	canvases := mapSlice(sequences[0]["canvases"])
	if len(canvases) == 0 {
		return nil
	}
	return canvases[0]
}

func thumbnailProp(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if thumb := firstMap(v); thumb != nil {
		return stringField(thumb, "@id", "id")
	}
	return ""
}

var imageSizeRe = regexp.MustCompile(`/full/[^/]+/`)

// ThumbnailURL resolves a thumbnail at the requested width: a declared
// thumbnail property wins (manifest level first, then the first canvas),
// then a URL derived from the first canvas's image service. The manifest's
// own identifier is never used as an image base; image servers answer such
// URLs with placeholders.
func (d *Document) ThumbnailURL(width int) string {
	if declared := d.DeclaredThumbnail(); declared != "" {
		return declared
	}
	if declared := d.CanvasThumbnail(); declared != "" {
		return declared
	}
	service, body := d.firstImage()
	if service != "" {
		return fmt.Sprintf("%s/full/%d,/0/default.jpg", service, width)
	}
	if body != "" && imageSizeRe.MatchString(body) {
		return imageSizeRe.ReplaceAllString(body, fmt.Sprintf("/full/%d,/", width))
	}
	return ""
}

// Related returns the first related resource URI (v2 related property),
// used by sources that point it at the human-readable catalogue page.
func (d *Document) Related() string {
	switch t := d.raw["related"].(type) {
	case string:
		return t
	case map[string]any:
		return stringField(t, "@id", "id")
	case []any:
		if m := firstMap(t); m != nil {
			return stringField(m, "@id", "id")
		}
		for _, item := range t {
			if s, ok := item.(string); ok {
				return s
			}
		}
	}
	return ""
}

// IsCollection reports whether the document is a collection rather than a
// single manifest.
func (d *Document) IsCollection() bool {
	if d.version == Version3 {
		return typeOf(d.raw) == "Collection"
	}
	return typeOf(d.raw) == "sc:Collection"
}

// ChildManifests lists the manifests referenced by a collection document.
func (d *Document) ChildManifests() []Entry {
	if d.version == Version3 {
		return d.childEntries("items", "Manifest")
	}
	entries := d.childEntries("manifests", "sc:Manifest")
	return append(entries, d.childEntries("members", "sc:Manifest")...)
}

// ChildCollections lists the sub-collections referenced by a collection
// document.
func (d *Document) ChildCollections() []Entry {
	if d.version == Version3 {
		return d.childEntries("items", "Collection")
	}
	entries := d.childEntries("collections", "sc:Collection")
	return append(entries, d.childEntries("members", "sc:Collection")...)
}

func (d *Document) childEntries(key, wantType string) []Entry {
	var entries []Entry
	for _, child := range mapSlice(d.raw[key]) {
		if typeOf(child) != wantType {
			continue
		}
		id := stringField(child, "@id", "id")
		if id == "" {
			continue
		}
		entries = append(entries, Entry{ID: id, Label: textutil.CleanHTML(Text(child["label"]))})
	}
	return entries
}

func typeOf(m map[string]any) string {
	switch t := m["@type"].(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				return s
			}
		}
	}
	if s, ok := m["type"].(string); ok {
		return s
	}
	return ""
}
