package preview

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const canonicalKW = "Königs Wusterhausen"

var firstUpper = cases.Upper(language.German)

var (
	placeholders = map[string]bool{
		"alles":          true,
		"nichts":         true,
		"k a":            true,
		"ka":             true,
		"keine":          true,
		"keine angabe":   true,
		"siehe oben":     true,
		"wie besprochen": true,
		"egal":           true,
		"-":              true,
		"x":              true,
	}
	placeholderStems = []string{"putz"}

	// folded spellings of Königs Wusterhausen
	kwVariants = map[string]bool{
		"kw":                   true,
		"k w":                  true,
		"konigs wusterhausen":  true,
		"koenigs wusterhausen": true,
		"konigswusterhausen":   true,
		"koenigswusterhausen":  true,
	}
)

// Fold lowercases s, strips diacritics and reduces every run of
// non-alphanumeric characters to a single space.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "ß", "ss")

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err == nil {
		s = folded
	}

	var b strings.Builder
	space := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// IsPlaceholder reports whether a bullet line carries no real content, such
// as "k.A.", "siehe oben" or anything starting with "putz".
func IsPlaceholder(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if placeholders[trimmed] {
		return true
	}
	f := Fold(line)
	if placeholders[f] {
		return true
	}
	for _, stem := range placeholderStems {
		if strings.HasPrefix(f, stem) {
			return true
		}
	}
	return false
}

// NormalizeLocation trims and upper-cases the first letter of each
// whitespace-separated word, leaving the rest as typed. Abbreviations and
// spellings of Königs Wusterhausen map to the canonical name.
func NormalizeLocation(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if kwVariants[Fold(raw)] {
		return canonicalKW
	}

	words := strings.Fields(raw)
	for i, w := range words {
		_, size := utf8.DecodeRuneInString(w)
		words[i] = firstUpper.String(w[:size]) + w[size:]
	}
	return strings.Join(words, " ")
}
