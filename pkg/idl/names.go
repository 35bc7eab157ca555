package idl

import (
	"strings"
	"unicode"

	bin "github.com/gagliardetto/binary"
)

// Discriminator returns the first 8 bytes of sha256("global:<name>") where
// name is the snake_case instruction name, that's how Anchor dispatches
// instructions.
func Discriminator(name string) []byte {
	return bin.Sighash(bin.SIGHASH_GLOBAL_NAMESPACE, SnakeCase(name))
}

// SnakeCase converts camelCase, PascalCase or kebab-case identifier into
// snake_case. Digits stay attached to the preceding word ("order2").
func SnakeCase(s string) string {
	var (
		b     strings.Builder
		runes = []rune(s)
	)
	b.Grow(len(s) + 4)
	for i, r := range runes {
		switch {
		case r == '-' || r == ' ' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			continue
		case unicode.IsUpper(r):
			if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSuffix(b.String(), "_")
}

// CamelCase converts identifier into lowerCamelCase.
func CamelCase(s string) string {
	p := PascalCase(s)
	if p == "" {
		return p
	}
	r := []rune(p)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// PascalCase converts identifier into PascalCase (the way Anchor names
// workspace programs).
func PascalCase(s string) string {
	var b strings.Builder
	for _, w := range strings.Split(SnakeCase(s), "_") {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// Normalize returns a case- and separator-insensitive form of identifier,
// names that are equal after normalization refer to the same entity.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || r == ' ' {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
