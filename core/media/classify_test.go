package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		want        Kind
	}{
		{"image/jpeg", KindStillImage},
		{"image/png", KindStillImage},
		{"image/webp", KindStillImage},
		{"IMAGE/PNG", KindStillImage},
		{"image/png; charset=binary", KindStillImage},
		{"image/gif", KindAnimation},
		{"video/mp4", KindAnimation},
		{"video/webm", KindAnimation},
		{"audio/ogg", KindUnsupported},
		{"application/pdf", KindUnsupported},
		{"text/plain", KindUnsupported},
		{"", KindUnsupported},
		{"  ", KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.contentType))
		})
	}
}
