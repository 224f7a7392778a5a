package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cepclima/server/internal/agent/lexicon"
)

const cityChars = `A-Za-zÀ-ÖØ-öø-ÿ'\-`

var (
	cityShape = regexp.MustCompile(`^[` + cityChars + `\s]+$`)
	bareShape = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ\s]+$`)
)

// cityTemplate captures a trailing run of letters after an anchor phrase,
// stopping at ?, ., !, comma or end of input.
type cityTemplate struct {
	re    *regexp.Regexp
	group int
}

const capture = `([` + cityChars + `\s]+?)\s*(?:[?.!,]|$)`

// maxCityWords bounds the word runs tried as city names. Seven words is the
// longest municipality name ("São José do Vale do Rio Preto").
const maxCityWords = 8

var cityTemplates = compileTemplates(lexicon.AnchorWords(), lexicon.TemplateConnectives())

func compileTemplates(anchors, connectives []string) []cityTemplate {
	anchor := alternation(anchors)
	conn := alternation(connectives)
	return []cityTemplate{
		{regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:` + anchor + `)\s+(?:` + conn + `)\s+` + capture), 1},
		{regexp.MustCompile(`(?i)(?:^|\s)(?:` + conn + `)\s+` + capture), 1},
		{regexp.MustCompile(`(?i)(?:^|[^\p{L}])(` + anchor + `)\s+` + capture), 2},
	}
}

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

var postalFragments = []string{"cep", "zip", "postal", "code"}

// IsValidCityName reports whether s is plausibly a city name: at least two
// letters, only letters/spaces/hyphens/apostrophes, no non-city token and no
// connective at either edge.
func IsValidCityName(s string) bool {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < 2 || !cityShape.MatchString(s) {
		return false
	}

	words := strings.Fields(strings.ToLower(s))
	for _, w := range words {
		if lexicon.IsNonCityWord(w) {
			return false
		}
	}
	return !lexicon.IsConnective(words[0]) && !lexicon.IsConnective(words[len(words)-1])
}

// MaxInputRunes is the longest message the extractors look at.
const MaxInputRunes = 1000

// ClipInput cuts s to MaxInputRunes runes.
func ClipInput(s string) string {
	if len(s) <= MaxInputRunes || utf8.RuneCountInString(s) <= MaxInputRunes {
		return s
	}
	return string([]rune(s)[:MaxInputRunes])
}

// BestCityName extracts the most likely city mentioned in input. Sentence
// templates are tried first and the first valid capture wins; otherwise the
// longest valid run of at most maxCityWords words is returned. Input longer
// than MaxInputRunes is clipped.
func BestCityName(input string) (string, bool) {
	input = ClipInput(input)
	for _, tpl := range cityTemplates {
		if city, ok := tpl.find(input); ok {
			return city, true
		}
	}
	return longestCityRun(input)
}

// find scans every anchor occurrence, resuming at the start of a rejected
// capture so "previsão do tempo em Recife" still reaches "em Recife".
func (t cityTemplate) find(input string) (string, bool) {
	for pos := 0; pos < len(input); {
		loc := t.re.FindStringSubmatchIndex(input[pos:])
		if loc == nil {
			return "", false
		}
		start, end := loc[2*t.group], loc[2*t.group+1]
		candidate := trimCandidate(input[pos+start : pos+end])
		if utf8.RuneCountInString(candidate) >= 2 && IsValidCityName(candidate) {
			return candidate, true
		}
		pos += start
	}
	return "", false
}

func longestCityRun(input string) (string, bool) {
	var words []string
	for _, w := range strings.Fields(input) {
		if w = trimCandidate(w); w != "" {
			words = append(words, w)
		}
	}

	best, bestLen := "", 0
	for i := range words {
		for j := i + 1; j <= len(words) && j-i <= maxCityWords; j++ {
			candidate := strings.Join(words[i:j], " ")
			if !IsValidCityName(candidate) || hasPostalFragment(candidate) {
				continue
			}
			if n := utf8.RuneCountInString(candidate); n > bestLen {
				best, bestLen = candidate, n
			}
		}
	}
	return best, bestLen > 0
}

func hasPostalFragment(s string) bool {
	lower := strings.ToLower(s)
	for _, f := range postalFragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func trimCandidate(s string) string {
	return strings.Trim(strings.TrimSpace(s), `?.!,;:"()`)
}

// LooksLikeBareCity reports whether the whole input is a short letters-only
// phrase (at most three words, more than two characters) without weather
// keywords, the shape of a user typing just a city name.
func LooksLikeBareCity(input string) bool {
	s := strings.TrimSpace(input)
	if utf8.RuneCountInString(s) <= 2 || len(strings.Fields(s)) > 3 {
		return false
	}
	if !bareShape.MatchString(s) {
		return false
	}
	return !lexicon.HasWeatherKeyword(s)
}

// StateHint splits a trailing two-letter UF off a city ("Campinas SP",
// "Campinas - SP", "Campinas/SP").
func StateHint(city string) (name, state string) {
	s := strings.TrimSpace(city)
	m := stateSuffix.FindStringSubmatch(s)
	if m == nil {
		return s, ""
	}
	uf := strings.ToUpper(m[2])
	if _, ok := states[uf]; !ok {
		return s, ""
	}
	return strings.TrimSpace(m[1]), uf
}

var stateSuffix = regexp.MustCompile(`^(.+?)(?:\s*[-/,]\s*|\s+)([A-Za-z]{2})$`)

var states = map[string]struct{}{
	"AC": {}, "AL": {}, "AP": {}, "AM": {}, "BA": {}, "CE": {}, "DF": {}, "ES": {}, "GO": {},
	"MA": {}, "MT": {}, "MS": {}, "MG": {}, "PA": {}, "PB": {}, "PR": {}, "PE": {}, "PI": {},
	"RJ": {}, "RN": {}, "RS": {}, "RO": {}, "RR": {}, "SC": {}, "SP": {}, "SE": {}, "TO": {},
}
