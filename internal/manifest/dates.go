package manifest

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yearPattern = regexp.MustCompile(`\b(\d{4})\b`)
	// Ordinals participate only when the statement mentions centuries at
	// all; this catches both "13th century" and the hyphenated and ranged
	// forms ("15th-century", "13th-14th century") the adjacent-word match
	// would miss.
	ordinalPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
	// "second half of the 12th century", "first quarter, 15th century"
	partPattern = regexp.MustCompile(`(?i)(first|second|third|fourth|last)\s+(quarter|half)\b.*?(\d{1,2})(?:st|nd|rd|th)[\s-]*centur`)
	// "early 13th century", "mid-14th century"
	thirdPattern = regexp.MustCompile(`(?i)\b(early|mid|middle|late)[\s-]*(\d{1,2})(?:st|nd|rd|th)[\s-]*centur`)
)

// ParseDateRange extracts sortable year bounds from a display-form date
// statement. Explicit years win over century phrases; a quarter, half, or
// early/mid/late qualifier narrows a century. "ca."/"c." prefixes and
// editorial brackets are tolerated because the year digits still match.
// Statements that yield nothing return nil bounds; callers keep the display
// text either way.
func ParseDateRange(display string) (start, end *int) {
	display = strings.TrimSpace(display)
	if display == "" {
		return nil, nil
	}

	if years := yearPattern.FindAllString(display, -1); len(years) > 0 {
		first, _ := strconv.Atoi(years[0])
		last, _ := strconv.Atoi(years[len(years)-1])
		if last < first {
			first, last = last, first
		}
		return intPtr(first), intPtr(last)
	}

	if m := partPattern.FindStringSubmatch(display); m != nil {
		base := centuryBase(m[3])
		lo, hi := partOffsets(m[1], m[2])
		return intPtr(base + lo), intPtr(base + hi)
	}
	if m := thirdPattern.FindStringSubmatch(display); m != nil {
		base := centuryBase(m[2])
		lo, hi := thirdOffsets(m[1])
		return intPtr(base + lo), intPtr(base + hi)
	}

	if !strings.Contains(strings.ToLower(display), "centur") {
		return nil, nil
	}
	var centuries []int
	for _, m := range ordinalPattern.FindAllStringSubmatch(display, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 21 {
			centuries = append(centuries, n)
		}
	}
	if len(centuries) == 0 {
		return nil, nil
	}
	lo := (centuries[0] - 1) * 100
	hi := (centuries[len(centuries)-1] - 1) * 100
	if hi < lo {
		lo, hi = hi, lo
	}
	return intPtr(lo), intPtr(hi + 99)
}

func centuryBase(ordinal string) int {
	n, _ := strconv.Atoi(ordinal)
	return (n - 1) * 100
}

func partOffsets(position, unit string) (int, int) {
	position = strings.ToLower(position)
	if strings.ToLower(unit) == "quarter" {
		switch position {
		case "first":
			return 0, 24
		case "second":
			return 25, 49
		case "third":
			return 50, 74
		case "fourth", "last":
			return 75, 99
		}
		return 0, 99
	}
	switch position {
	case "first":
		return 0, 49
	case "second", "last":
		return 50, 99
	}
	return 0, 99
}

func thirdOffsets(position string) (int, int) {
	switch strings.ToLower(position) {
	case "early":
		return 0, 33
	case "mid", "middle":
		return 34, 66
	case "late":
		return 67, 99
	}
	return 0, 99
}

// yearFromAttr reads the year out of a TEI date attribute such as
// notBefore="1148-01-01". Only the leading four digits matter.
func yearFromAttr(value string) *int {
	value = strings.TrimSpace(value)
	if len(value) < 4 {
		return nil
	}
	n, err := strconv.Atoi(value[:4])
	if err != nil {
		return nil
	}
	return &n
}

func intPtr(v int) *int {
	return &v
}
