package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// rule is one independent field pattern. The value is capture group 1.
type rule struct {
	re *regexp.Regexp
}

func newRule(pattern string) rule {
	return rule{re: regexp.MustCompile(pattern)}
}

// find returns the first match in text, truncated against stops, or "".
func (r rule) find(text string, stops []string) string {
	m := r.re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return truncate(m[1], stops)
}

// truncate cuts v at the first blank line or the first later occurrence of
// one of the strategy's labels, whichever comes first, and trims what is left.
// A label at the very start of v is part of the value.
func truncate(v string, stops []string) string {
	v = strings.TrimSpace(strings.ReplaceAll(v, "\r\n", "\n"))
	cut := len(v)
	if loc := blankLine.FindStringIndex(v); loc != nil {
		cut = loc[0]
	}
	for _, s := range stops {
		if i := labelIndex(v[:cut], s); i > 0 {
			cut = i
		}
	}
	return strings.TrimSpace(v[:cut])
}

// labelIndex returns the first position after 0 where label occurs as a whole
// word, or -1.
func labelIndex(v, label string) int {
	for from := 1; from < len(v); {
		i := strings.Index(v[from:], label)
		if i < 0 {
			return -1
		}
		i += from
		if wordBoundary(v, i, i+len(label), label) {
			return i
		}
		from = i + 1
	}
	return -1
}

// wordBoundary reports whether v[start:end] is not glued to a letter or digit
// on a side where the label itself begins or ends with one.
func wordBoundary(v string, start, end int, label string) bool {
	first, _ := utf8.DecodeRuneInString(label)
	if isWordRune(first) && start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(v[:start]); isWordRune(r) {
			return false
		}
	}
	last, _ := utf8.DecodeLastRuneInString(label)
	if isWordRune(last) && end < len(v) {
		if r, _ := utf8.DecodeRuneInString(v[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// section returns text from the first match of start up to the first match of
// any end pattern after it. ok is false when start does not occur.
func section(text string, start *regexp.Regexp, ends ...*regexp.Regexp) (string, bool) {
	loc := start.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	body := text[loc[1]:]
	cut := len(body)
	for _, e := range ends {
		if l := e.FindStringIndex(body); l != nil && l[0] < cut {
			cut = l[0]
		}
	}
	return body[:cut], true
}
