package packapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetName(t *testing.T) {
	tests := []struct {
		title    string
		username string
		want     string
	}{
		{"Memes", "mybot", "Memes_by_mybot"},
		{"My Cool Pack", "@mybot", "My_Cool_Pack_by_mybot"},
		{"2024 favourites", "mybot", "favourites_by_mybot"},
		{"__weird__name__", "mybot", "weird_name_by_mybot"},
		{"a  b", "mybot", "a_b_by_mybot"},
		{"dots.and-dashes", "mybot", "dotsanddashes_by_mybot"},
		{"котики", "mybot", "pack_by_mybot"},
		{"   ", "mybot", "pack_by_mybot"},
		{"", "mybot", "pack_by_mybot"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, SetName(tt.title, tt.username))
		})
	}
}
