package textutil

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripTags removes HTML/XML tags, replacing each with a single space so that
// adjacent text runs do not fuse together.
func StripTags(value string) string {
	return tagPattern.ReplaceAllString(value, " ")
}

// CollapseWhitespace reduces all whitespace runs (including newlines and
// tabs) to single spaces and trims the result.
func CollapseWhitespace(value string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))
}

// CleanHTML converts a metadata value that may contain markup into plain
// text: entities are decoded, tags stripped, whitespace collapsed. Catalogue
// records frequently embed <p> and <i> inside summary fields.
func CleanHTML(value string) string {
	if value == "" {
		return ""
	}
	return CollapseWhitespace(StripTags(html.UnescapeString(value)))
}

// TruncateRunes shortens value to at most limit runes. When truncation
// occurs the last three runes are replaced with "..." so the limit still
// holds. Limits below 4 return the bare cut.
func TruncateRunes(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit < 4 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
