package interpret

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// nameParticles stay lowercase when written lowercase ("Ludwig van Beethoven").
var nameParticles = map[string]struct{}{
	"van": {}, "von": {}, "de": {}, "del": {}, "della": {}, "der": {}, "den": {},
	"das": {}, "dos": {}, "el": {}, "al": {}, "bin": {}, "ibn": {},
}

// NormalizeAuthors title-cases each word of each name, keeps lowercase
// particles verbatim and drops single-rune words. Names left empty are
// removed.
func NormalizeAuthors(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if n := normalizeName(name); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func normalizeName(name string) string {
	words := strings.Fields(name)
	kept := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 1 {
			continue
		}
		if _, ok := nameParticles[w]; ok {
			kept = append(kept, w)
			continue
		}
		kept = append(kept, titleWord(w))
	}
	return strings.Join(kept, " ")
}

// titleWord upper-cases the first letter of each hyphen-separated part and
// lower-cases the rest.
func titleWord(w string) string {
	parts := strings.Split(w, "-")
	for i, p := range parts {
		runes := []rune(strings.ToLower(p))
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		parts[i] = string(runes)
	}
	return strings.Join(parts, "-")
}
