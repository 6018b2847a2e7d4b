package domain

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	// parentheticalRe matches ASCII and full-width parenthesized notes.
	parentheticalRe = regexp.MustCompile(`\([^)]*\)|（[^）]*）`)

	// exitMarkerRe finds the start of an exit description, e.g. "2號出口" or "Exit 3".
	exitMarkerRe = regexp.MustCompile(`(?i)出口|exit`)

	// numberTokenRe matches "<digits>號" tokens anywhere.
	numberTokenRe = regexp.MustCompile(`[0-9０-９]+號`)

	// trailingExitRe matches a bare exit number left at the end, either
	// spaced off ("松江南京 4") or right after 站 ("忠孝復興站2"). Digits
	// that are part of a name ("台北101") are kept.
	trailingExitRe = regexp.MustCompile(`(\s+|站)[0-9０-９]+$`)

	// walkingRe finds walking-direction suffixes: "步行3分鐘", "走路5分", "約5分鐘".
	walkingRe = regexp.MustCompile(`步行|走路|約`)

	// districtAfterCityRe matches a district directly after a city or county,
	// e.g. "台北市大安區" -> "大安區".
	districtAfterCityRe = regexp.MustCompile(`[市縣](\p{Han}{1,3}區)`)

	// districtRe matches any run of 1-3 Han characters ending in 區.
	districtRe = regexp.MustCompile(`\p{Han}{1,3}區`)
)

const transitSeparators = "#／/、,;；"

// NormalizeTransitName reduces a free-text MRT/transit description such as
// "捷運忠孝復興站2號出口步行3分鐘" to the bare station name "忠孝復興".
// It is idempotent.
func NormalizeTransitName(raw string) string {
	name := strings.TrimSpace(raw)
	for {
		next := normalizeTransitOnce(name)
		if next == name {
			return name
		}
		name = next
	}
}

// normalizeTransitOnce never lengthens its input, so iterating it reaches a
// fixed point.
func normalizeTransitOnce(s string) string {
	s = parentheticalRe.ReplaceAllString(s, "")
	if loc := exitMarkerRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = numberTokenRe.ReplaceAllString(s, "")
	s = trailingExitRe.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "站") {
			return "站"
		}
		return ""
	})
	if i := strings.IndexAny(s, transitSeparators); i >= 0 {
		s = s[:i]
	}
	if loc := walkingRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "捷運")
	s = strings.TrimSuffix(s, "站")
	return strings.TrimSpace(s)
}

// ExtractDistrict returns the administrative district named in an address
// using the default tables.
func ExtractDistrict(address string) string {
	return defaultTables.ExtractDistrict(address)
}

// ExtractDistrict returns the district ("大安區") named in a Taiwanese
// address. Chinese addresses are matched by pattern, English ones through the
// romanized alias table. The first match wins; the result is not checked
// against the city.
func (t *Tables) ExtractDistrict(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}

	if m := districtAfterCityRe.FindStringSubmatch(address); len(m) == 2 {
		return m[1]
	}
	if m := districtRe.FindString(address); m != "" {
		return m
	}
	return t.districtFromAlias(address)
}

func (t *Tables) districtFromAlias(address string) string {
	folded := foldRomanized(address)
	for _, key := range t.aliasKeys {
		if strings.Contains(folded, key) {
			return t.DistrictAliases[key]
		}
	}
	return ""
}

// foldRomanized lower-cases and strips diacritics and word joiners so that
// "Da’an District" and "Da-an district" both become "daan district".
func foldRomanized(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	return strings.NewReplacer("'", "", "-", "", "`", "").Replace(s)
}
