package skills

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// joinRunes are kept inside a token when surrounded by word characters
// (c++, c#, node.js, ci/cd).
const joinRunes = "+#./"

// Fold lowercases s and strips combining accents.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize splits folded text into lexicon tokens.
func Tokenize(text string) []string {
	text = Fold(text)

	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		if tok := cleanToken(b.String()); tok != "" {
			tokens = append(tokens, tok)
		}
		b.Reset()
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case strings.ContainsRune(joinRunes, r):
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

func cleanToken(tok string) string {
	tok = strings.TrimRight(tok, "./")
	tok = strings.TrimLeft(tok, "/")
	if !hasWordRune(tok) {
		return ""
	}
	return tok
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// splitCompound breaks "python/django" or "spring.boot" into parts.
func splitCompound(tok string) []string {
	parts := strings.FieldsFunc(tok, func(r rune) bool {
		return r == '/' || r == '.'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = cleanToken(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
