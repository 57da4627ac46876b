package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeRoleName lowercases a role name and strips diacritics so that
// "Comissão Nacional" and "comissao nacional" compare equal. Matching on
// role names is case- and diacritic-insensitive everywhere.
func NormalizeRoleName(name string) string {
	decomposed := norm.NFD.String(name)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.TrimSpace(b.String())
}
