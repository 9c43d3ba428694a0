package reconcile

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// rule maps a shelfmark series prefix onto a collection name. Names may
// reference capture groups with $1.
type rule struct {
	re   *regexp.Regexp
	name string
}

func (r rule) expand(s string) string {
	if !strings.Contains(r.name, "$") {
		return r.name
	}
	m := r.re.FindStringSubmatchIndex(s)
	if m == nil {
		return r.name
	}
	return string(r.re.ExpandString(nil, r.name, s, m))
}

// derivation describes how one source's shelfmarks map to collections.
type derivation struct {
	// strip removes a fixed prefix before the rules run.
	strip *regexp.Regexp
	rules []rule
	// fallback is returned when no rule matches; otherwise firstToken
	// controls whether the leading series token is used instead.
	fallback   string
	firstToken bool
}

var bodleianRules = []rule{
	{regexp.MustCompile(`^Bodl\.`), "Bodley"},
	{regexp.MustCompile(`^Junius`), "Junius"},
	{regexp.MustCompile(`^Ashmole`), "Ashmole"},
	{regexp.MustCompile(`^Digby`), "Digby"},
	{regexp.MustCompile(`^Douce`), "Douce"},
	{regexp.MustCompile(`^Laud Misc\.`), "Laud Misc."},
	{regexp.MustCompile(`^Laud Lat\.`), "Laud Lat."},
	// The named Rawlinson series sort before the lettered one so that
	// "Rawl. poet." never reads as the letter P.
	{regexp.MustCompile(`^Rawl\.\s*poet`), "Rawlinson Poet."},
	{regexp.MustCompile(`^Rawl\.\s*liturg`), "Rawlinson Liturg."},
	{regexp.MustCompile(`^Rawl\.?\s*([A-Z])`), "Rawlinson $1"},
	{regexp.MustCompile(`^Add\.\s*([A-Z])`), "Additional $1"},
	{regexp.MustCompile(`^Auct\.`), "Auct."},
	{regexp.MustCompile(`^Fairfax`), "Fairfax"},
	{regexp.MustCompile(`^Hatton`), "Hatton"},
	{regexp.MustCompile(`^Tanner`), "Tanner"},
	{regexp.MustCompile(`^Eng\.\s*hist`), "Eng. hist."},
	{regexp.MustCompile(`^Eng\.\s*poet`), "Eng. poet."},
	{regexp.MustCompile(`^Eng\.\s*th`), "Eng. th."},
	{regexp.MustCompile(`^Lat\.\s*liturg`), "Lat. liturg."},
	{regexp.MustCompile(`^Lat\.\s*misc`), "Lat. misc."},
	{regexp.MustCompile(`^Lat\.\s*th`), "Lat. th."},
	{regexp.MustCompile(`^Gough`), "Gough"},
	{regexp.MustCompile(`^Lyell`), "Lyell"},
	{regexp.MustCompile(`^Barlow`), "Barlow"},
	{regexp.MustCompile(`^Canon\.\s*Misc`), "Canon. Misc."},
	{regexp.MustCompile(`^Canon\.\s*Ital`), "Canon. Ital."},
	{regexp.MustCompile(`^D'?Orville`), "D'Orville"},
	{regexp.MustCompile(`^Holkham`), "Holkham"},
	{regexp.MustCompile(`^Selden`), "Selden"},
	{regexp.MustCompile(`(?i)^e\s*Mus`), "e Musaeo"},
}

var cambridgeRules = []rule{
	{regexp.MustCompile(`^Add\.?\s`), "Additional"},
	{regexp.MustCompile(`^Dd\.`), "Dd"},
	{regexp.MustCompile(`^Ee\.`), "Ee"},
	{regexp.MustCompile(`^Ff\.`), "Ff"},
	{regexp.MustCompile(`^Gg\.`), "Gg"},
	{regexp.MustCompile(`^Hh\.`), "Hh"},
	{regexp.MustCompile(`^Ii\.`), "Ii"},
	{regexp.MustCompile(`^Kk\.`), "Kk"},
	{regexp.MustCompile(`^Ll\.`), "Ll"},
	{regexp.MustCompile(`^Mm\.`), "Mm"},
	{regexp.MustCompile(`^Nn\.`), "Nn"},
	{regexp.MustCompile(`^Oo\.`), "Oo"},
	{regexp.MustCompile(`^Peterborough`), "Peterborough"},
}

var durhamRules = []rule{
	{regexp.MustCompile(`^DCL MS\.?\s*A\.`), "Cathedral A"},
	{regexp.MustCompile(`^DCL MS\.?\s*B\.`), "Cathedral B"},
	{regexp.MustCompile(`^DCL MS\.?\s*C\.`), "Cathedral C"},
	{regexp.MustCompile(`^DCL (?:MS\.?\s*)?Hunter`), "Hunter"},
	{regexp.MustCompile(`^Cosin MS`), "Cosin"},
	{regexp.MustCompile(`^CADD`), "Cathedral Additional"},
	{regexp.MustCompile(`^Bamburgh`), "Bamburgh"},
}

var harvardRules = []rule{
	{regexp.MustCompile(`^MS Lat`), "Latin"},
	{regexp.MustCompile(`^MS Typ`), "Typographic"},
	{regexp.MustCompile(`^MS Gr`), "Greek"},
	{regexp.MustCompile(`^MS Richardson`), "Richardson"},
	{regexp.MustCompile(`^MS Ital`), "Italian"},
	{regexp.MustCompile(`^MS Span`), "Spanish"},
	{regexp.MustCompile(`^MS Eng`), "English"},
	{regexp.MustCompile(`^MS Fr`), "French"},
	{regexp.MustCompile(`^MS Ger`), "German"},
	{regexp.MustCompile(`^MS Hebrew`), "Hebrew"},
	{regexp.MustCompile(`^MS Arab`), "Arabic"},
	{regexp.MustCompile(`^MS Riant`), "Riant"},
}

var huntingtonRules = []rule{
	{regexp.MustCompile(`^mssEL`), "Ellesmere"},
	{regexp.MustCompile(`^mssHM`), "Huntington Manuscripts"},
}

// derivations keys rule tables by source name. Sources absent here either
// brand their records in the adapter or carry no collections at all.
var derivations = map[string]derivation{
	"bodleian": {
		strip:      regexp.MustCompile(`^MS\.\s*`),
		rules:      bodleianRules,
		firstToken: true,
	},
	"cambridge": {
		strip:      regexp.MustCompile(`^MS\.?\s*`),
		rules:      cambridgeRules,
		firstToken: true,
	},
	"durham": {
		rules:      durhamRules,
		firstToken: true,
	},
	"harvard": {
		rules:    harvardRules,
		fallback: "Manuscripts",
	},
	"huntington": {
		rules: huntingtonRules,
	},
}

var titleCaser = cases.Title(language.English)

// DeriveCollection maps a shelfmark onto its collection name using the
// source's series rules. It returns the empty string when the source has no
// rules or the shelfmark carries no recognizable series.
func DeriveCollection(source, shelfmark string) string {
	d, ok := derivations[source]
	if !ok {
		return ""
	}

	s := strings.TrimSpace(shelfmark)
	if d.strip != nil {
		s = d.strip.ReplaceAllString(s, "")
	}
	for _, r := range d.rules {
		if r.re.MatchString(s) {
			return r.expand(s)
		}
	}
	if d.fallback != "" {
		return d.fallback
	}
	if d.firstToken {
		return seriesToken(s)
	}
	return ""
}

// seriesToken returns the shelfmark's leading token title-cased when it
// names a series, and the empty string when it is a bare classmark.
func seriesToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	token := strings.TrimRight(fields[0], ".")
	if len(token) < 2 {
		return ""
	}
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return ""
		}
	}
	return titleCaser.String(token)
}
