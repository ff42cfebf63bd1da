// Package textnorm turns raw document text into the bag-of-words form the classifier consumes.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reNonWord  = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	reDigit    = regexp.MustCompile(`\p{N}+`)
	reNonASCII = regexp.MustCompile(`[^a-z ]+`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// Normalize replaces non-word characters and digits with spaces, lowercases,
// collapses whitespace and trims. Accents are folded first so "emissão" becomes
// "emissao" instead of being split. The result only contains [a-z ].
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	s := fold(text)
	s = reNonWord.ReplaceAllString(s, " ")
	s = reDigit.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	// letters with no ASCII decomposition (ø, ß, greek...)
	s = reNonASCII.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
