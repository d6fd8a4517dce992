package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/m3rciful/stickerbot/core/media"
)

// probeOutput mirrors the JSON ffprobe prints with -show_format and
// -show_streams.
type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

func parseProbe(raw []byte) (media.ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return media.ProbeResult{}, fmt.Errorf("parse probe output: %w", err)
	}

	res := media.ProbeResult{Duration: parseSeconds(out.Format.Duration)}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		res.Width = s.Width
		res.Height = s.Height
		// Fall back to the stream duration when the container has none;
		// GIFs often report only one of the two.
		if d := parseSeconds(s.Duration); d > 0 && res.Duration == 0 {
			res.Duration = d
		}
		break
	}
	if res.Width <= 0 || res.Height <= 0 {
		return media.ProbeResult{}, fmt.Errorf("no video stream in probe output")
	}
	return res, nil
}

func parseSeconds(v string) time.Duration {
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
