package format

import "strings"

const mdV2Specials = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes MarkdownV2 special characters so arbitrary
// text, such as a configured pack title, can be embedded in a formatted
// message verbatim.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 0x80 && strings.ContainsRune(mdV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Code wraps text in an inline MarkdownV2 code span. Backticks and
// backslashes cannot be escaped inside a span, so they are dropped.
func Code(text string) string {
	cleaned := strings.NewReplacer("`", "", `\`, "").Replace(text)
	return "`" + cleaned + "`"
}
