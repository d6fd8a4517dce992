package ffmpeg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	raw := []byte(`{
		"streams": [
			{"codec_type": "audio", "duration": "4.8"},
			{"codec_type": "video", "width": 1280, "height": 720, "duration": "4.966667"}
		],
		"format": {"duration": "5.000000", "size": "1048576"}
	}`)

	res, err := parseProbe(raw)
	require.NoError(t, err)
	assert.Equal(t, 1280, res.Width)
	assert.Equal(t, 720, res.Height)
	assert.Equal(t, 5*time.Second, res.Duration)
}

func TestParseProbeStreamDurationFallback(t *testing.T) {
	raw := []byte(`{
		"streams": [{"codec_type": "video", "width": 480, "height": 270, "duration": "2.100000"}],
		"format": {}
	}`)

	res, err := parseProbe(raw)
	require.NoError(t, err)
	assert.Equal(t, 2100*time.Millisecond, res.Duration)
}

func TestParseProbeNoVideoStream(t *testing.T) {
	raw := []byte(`{"streams": [{"codec_type": "audio"}], "format": {"duration": "3.0"}}`)
	_, err := parseProbe(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no video stream")
}

func TestParseProbeGarbage(t *testing.T) {
	_, err := parseProbe([]byte("not json"))
	require.Error(t, err)
}

func TestParseSeconds(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseSeconds(""))
	assert.Equal(t, time.Duration(0), parseSeconds("N/A"))
	assert.Equal(t, time.Duration(0), parseSeconds("-1.0"))
	assert.Equal(t, 1500*time.Millisecond, parseSeconds("1.5"))
}
