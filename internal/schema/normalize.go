package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes accented runes and strips the combining marks, so
// "Poblíž" becomes "Pobliz". Parquet files exported from spreadsheets and
// regional datasets carry such column names routinely, and unquoted Postgres
// identifiers are much easier to work with when they are plain ASCII.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanName normalizes a source column name into a safe SQL identifier.
//
// Steps, in order: trim whitespace, fold accents to ASCII, replace runs of
// whitespace and separator punctuation with a single underscore, and
// optionally lowercase. The result is deterministic for a given input.
func CleanName(name string, lowercase bool) string {
	cleaned := strings.TrimSpace(name)

	if folded, _, err := transform.String(asciiFold, cleaned); err == nil {
		cleaned = folded
	}

	var b strings.Builder
	b.Grow(len(cleaned))
	lastUnderscore := false
	for _, r := range cleaned {
		switch {
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = r == '_'
		case unicode.IsSpace(r) || r == '-' || r == '.' || r == '/':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		default:
			// Drop anything else (quotes, parens, emoji). Silently skipping is
			// safer than failing the whole DDL over one odd rune.
		}
	}
	cleaned = b.String()

	if lowercase {
		cleaned = strings.ToLower(cleaned)
	}
	return cleaned
}
