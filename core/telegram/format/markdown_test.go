package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `plain text`, EscapeMarkdownV2("plain text"))
	assert.Equal(t, `a\.b\-c\!`, EscapeMarkdownV2("a.b-c!"))
	assert.Equal(t, `\_\*\[\]\(\)`, EscapeMarkdownV2("_*[]()"))
	assert.Equal(t, "котики 😀", EscapeMarkdownV2("котики 😀"))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "`Memes_by_mybot`", Code("Memes_by_mybot"))
	assert.Equal(t, "`ab`", Code("a`\\b"))
}
