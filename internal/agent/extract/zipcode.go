// Package extract pulls postal codes and city names out of free text.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Candidate CEP shapes searched in the original text when stripping digits
// yields more than eight of them. Order matters.
var zipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:^|\D)(\d{5})-(\d{3})(?:\D|$)`),
	regexp.MustCompile(`(?:^|\D)(\d{8})(?:\D|$)`),
	regexp.MustCompile(`(?:^|\D)(\d{5})\s+(\d{3})(?:\D|$)`),
}

// ZipCode returns the 8-digit CEP found in input. When the input carries
// exactly eight digits they are returned as-is; with more digits the text is
// searched for a CEP-shaped substring instead.
func ZipCode(input string) (string, bool) {
	digits := onlyDigits(input)
	switch {
	case len(digits) == 8:
		return digits, true
	case len(digits) < 8:
		return "", false
	}

	for _, re := range zipPatterns {
		m := re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		if zip := strings.Join(m[1:], ""); len(zip) == 8 {
			return zip, true
		}
	}
	return "", false
}

// NormalizeZipCode strips separators from a CEP supplied on its own and
// rejects anything that is not exactly eight digits.
func NormalizeZipCode(cep string) (string, bool) {
	trimmed := strings.TrimSpace(cep)
	for _, r := range trimmed {
		if !unicode.IsDigit(r) && r != '-' && r != '.' && r != ' ' {
			return "", false
		}
	}
	digits := onlyDigits(trimmed)
	if len(digits) != 8 {
		return "", false
	}
	return digits, true
}

// FormatZipCode renders an 8-digit CEP as DDDDD-DDD. Other inputs are
// returned unchanged.
func FormatZipCode(cep string) string {
	if len(cep) != 8 || onlyDigits(cep) != cep {
		return cep
	}
	return cep[:5] + "-" + cep[5:]
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
