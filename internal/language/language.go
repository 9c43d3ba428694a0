package language

import "strings"

type entry struct {
	code3   string   // ISO 639-2/3 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms as they appear in catalogues
}

// The table leans medieval: the corpus is dominated by Latin and the
// medieval stages of the European vernaculars, which modern locale tables
// do not carry.
var languages = []entry{
	{"lat", "", "Latin", []string{"latin"}},
	{"ang", "", "Old English", []string{"old english", "anglo-saxon"}},
	{"enm", "", "Middle English", []string{"middle english"}},
	{"eng", "", "English", []string{"english"}},
	{"fro", "", "Old French", []string{"old french", "anglo-norman"}},
	{"frm", "", "Middle French", []string{"middle french"}},
	{"fra", "fre", "French", []string{"french"}},
	{"goh", "", "Old High German", []string{"old high german"}},
	{"gmh", "", "Middle High German", []string{"middle high german"}},
	{"deu", "ger", "German", []string{"german"}},
	{"dum", "", "Middle Dutch", []string{"middle dutch"}},
	{"nld", "dut", "Dutch", []string{"dutch"}},
	{"non", "", "Old Norse", []string{"old norse", "old icelandic"}},
	{"isl", "ice", "Icelandic", []string{"icelandic"}},
	{"sga", "", "Old Irish", []string{"old irish"}},
	{"mga", "", "Middle Irish", []string{"middle irish"}},
	{"gle", "iri", "Irish", []string{"irish", "gaelic"}},
	{"cym", "wel", "Welsh", []string{"welsh", "middle welsh"}},
	{"cor", "", "Cornish", []string{"cornish"}},
	{"grc", "", "Greek", []string{"greek", "ancient greek", "byzantine greek"}},
	{"heb", "", "Hebrew", []string{"hebrew"}},
	{"ara", "", "Arabic", []string{"arabic"}},
	{"arc", "", "Aramaic", []string{"aramaic"}},
	{"syc", "syr", "Syriac", []string{"syriac"}},
	{"cop", "", "Coptic", []string{"coptic"}},
	{"chu", "", "Church Slavonic", []string{"church slavonic", "old church slavonic"}},
	{"ita", "", "Italian", []string{"italian"}},
	{"spa", "", "Spanish", []string{"spanish", "castilian"}},
	{"cat", "", "Catalan", []string{"catalan"}},
	{"por", "", "Portuguese", []string{"portuguese"}},
	{"pro", "", "Occitan", []string{"occitan", "provencal", "provençal", "old occitan"}},
	{"fas", "per", "Persian", []string{"persian", "farsi"}},
	{"nor", "", "Norwegian", []string{"norwegian"}},
	{"swe", "", "Swedish", []string{"swedish"}},
	{"dan", "", "Danish", []string{"danish"}},
	{"ces", "cze", "Czech", []string{"czech"}},
	{"pol", "", "Polish", []string{"polish"}},
	{"hun", "", "Hungarian", []string{"hungarian"}},
	{"gez", "", "Ge'ez", []string{"ge'ez", "geez", "ethiopic"}},
	{"arm", "hye", "Armenian", []string{"armenian"}},
}

// Index maps built at init time.
var (
	byCode map[string]*entry
	byWord map[string]*entry
)

func init() {
	byCode = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode[e.code3] = e
		if e.alt3 != "" {
			byCode[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(value string) *entry {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return nil
	}
	if e, ok := byCode[value]; ok {
		return e
	}
	if e, ok := byWord[value]; ok {
		return e
	}
	// TEI sometimes qualifies codes: "la", "lat-x-medieval".
	if base, _, found := strings.Cut(value, "-"); found {
		if e, ok := byCode[base]; ok {
			return e
		}
	}
	if value == "la" {
		return byCode["lat"]
	}
	return nil
}

// DisplayName returns a human-readable language name for a recognized code
// or word form. Unrecognized non-empty input passes through with its original
// spacing trimmed; empty input returns "".
func DisplayName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if e := lookup(value); e != nil {
		return e.display
	}
	return value
}

// statement separators in rough precedence order; "and" only splits when
// surrounded by spaces so "Normandy" survives.
var separators = []string{";", ",", " and ", " with ", "&"}

// NormalizeStatement converts a free-form language statement into a
// canonical comma-joined display list: "lat" -> "Latin",
// "Latin and Middle English" -> "Latin, Middle English". Duplicates collapse,
// order is preserved, unrecognized parts pass through.
func NormalizeStatement(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parts := []string{raw}
	for _, sep := range separators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}

	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := DisplayName(p)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return strings.Join(out, ", ")
}
