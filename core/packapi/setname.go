package packapi

import (
	"strings"
	"unicode"
)

// SetName derives the platform-level sticker set name from a pack's
// display title. Set names must be ASCII identifiers starting with a
// letter and are namespaced by the owning bot, so the title is cleaned
// and suffixed with "_by_<botUsername>".
func SetName(title, botUsername string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}

	name := collapseUnderscores(b.String())
	name = strings.TrimLeftFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	name = strings.TrimRight(name, "_")
	if name == "" {
		name = "pack"
	}
	return name + "_by_" + strings.TrimPrefix(botUsername, "@")
}

func collapseUnderscores(s string) string {
	var b strings.Builder
	prev := false
	for _, r := range s {
		if r == '_' {
			if prev {
				continue
			}
			prev = true
		} else {
			prev = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
