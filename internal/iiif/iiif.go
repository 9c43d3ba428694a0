// Package iiif parses IIIF Presentation API documents. Version detection
// happens once at parse time; the document model hides the v2/v3 structural
// differences from callers.
package iiif

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Version identifies the IIIF Presentation API generation of a document.
type Version int

const (
	VersionUnknown Version = iota
	Version2
	Version3
)

func (v Version) String() string {
	switch v {
	case Version2:
		return "2"
	case Version3:
		return "3"
	default:
		return "unknown"
	}
}

// Document is a parsed IIIF manifest or collection.
type Document struct {
	version Version
	raw     map[string]any
}

// Parse decodes a IIIF document and detects its Presentation API version
// from @context, falling back to structural markers (v3 carries items, v2
// carries sequences or manifest/collection lists).
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	version := detectVersion(raw)
	if version == VersionUnknown {
		return nil, fmt.Errorf("unrecognized document shape (no presentation context, items, or sequences)")
	}
	return &Document{version: version, raw: raw}, nil
}

// Version reports the detected Presentation API version.
func (d *Document) Version() Version {
	return d.version
}

func detectVersion(raw map[string]any) Version {
	for _, ctx := range contextValues(raw["@context"]) {
		if strings.Contains(ctx, "/presentation/3") {
			return Version3
		}
		if strings.Contains(ctx, "/presentation/2") || strings.Contains(ctx, "/presentation/1") {
			return Version2
		}
	}

	if _, ok := raw["items"]; ok {
		return Version3
	}
	if _, ok := raw["sequences"]; ok {
		return Version2
	}
	// v2 collections carry manifests/collections lists instead of sequences.
	if _, ok := raw["manifests"]; ok {
		return Version2
	}
	if _, ok := raw["collections"]; ok {
		return Version2
	}
	return VersionUnknown
}

func contextValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
