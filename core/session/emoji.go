package session

import "strings"

// joiner and modifier code points that glue an emoji sequence together
// without being emoji on their own.
const (
	runeZWJ          = 0x200D
	runeVariationSel = 0xFE0F
	runeKeycap       = 0x20E3
)

// ExtractEmoji reports whether text is exactly one emoji (possibly a
// multi-codepoint sequence such as a flag, keycap or skin-tone variant)
// and returns it trimmed. Any other text, including several emojis in a
// row, is rejected so the sticker gets a single well-defined tag.
func ExtractEmoji(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", false
	}

	base := 0
	prevJoiner := false
	for i, r := range s {
		switch {
		case r == runeZWJ:
			prevJoiner = true
			continue
		case r == runeVariationSel || r == runeKeycap || isSkinTone(r):
			prevJoiner = false
			continue
		case isRegionalIndicator(r):
			// Flags are exactly two regional indicators.
			prevJoiner = false
			base++
			if base > 2 {
				return "", false
			}
			continue
		case isEmojiBase(r):
			if base > 0 && !prevJoiner {
				return "", false
			}
			prevJoiner = false
			base++
			continue
		case r == '#' || r == '*' || (r >= '0' && r <= '9'):
			// Keycap bases are only valid when followed by the keycap mark.
			if !strings.ContainsRune(s[i:], runeKeycap) {
				return "", false
			}
			prevJoiner = false
			base++
			continue
		default:
			return "", false
		}
	}
	if base == 0 {
		return "", false
	}
	if isRegionalIndicator(firstRune(s)) && base != 2 {
		return "", false
	}
	return s, true
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func isSkinTone(r rune) bool {
	return r >= 0x1F3FB && r <= 0x1F3FF
}

func isRegionalIndicator(r rune) bool {
	return r >= 0x1F1E6 && r <= 0x1F1FF
}

func isEmojiBase(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, transport, supplemental
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats
		return true
	case r >= 0x2190 && r <= 0x21FF: // arrows
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // misc symbols and arrows
		return true
	case r == 0x203C || r == 0x2049 || r == 0x2122 || r == 0x2139:
		return true
	case r >= 0x2934 && r <= 0x2935:
		return true
	case r >= 0x3030 && r <= 0x303D:
		return true
	case r == 0x3297 || r == 0x3299 || r == 0x24C2:
		return true
	case r >= 0x25A0 && r <= 0x25FF: // geometric shapes
		return true
	case r >= 0x2700 && r <= 0x27BF:
		return true
	case r == 0xA9 || r == 0xAE: // (c) and (r) with variation selector
		return true
	}
	return false
}
