package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEmoji(t *testing.T) {
	valid := []string{
		"😀",
		"🔥",
		" 😀 ",
		"👍🏽",    // skin tone
		"❤️",    // variation selector
		"🇩🇪",    // flag
		"1️⃣",   // keycap
		"👨‍👩‍👧", // ZWJ family
		"🧑🏿‍🚒",  // ZWJ with skin tone
	}
	for _, in := range valid {
		t.Run(in, func(t *testing.T) {
			got, ok := ExtractEmoji(in)
			assert.True(t, ok, "expected %q to be a single emoji", in)
			assert.NotEmpty(t, got)
		})
	}

	invalid := []string{
		"",
		"   ",
		"hello",
		"a😀",
		"😀a",
		"😀😀",
		"😀 😀",
		"7",
		"/cancel",
		"👍 nice",
		"🇩🇪🇫🇷", // two flags
	}
	for _, in := range invalid {
		t.Run("reject_"+in, func(t *testing.T) {
			_, ok := ExtractEmoji(in)
			assert.False(t, ok, "expected %q to be rejected", in)
		})
	}
}
