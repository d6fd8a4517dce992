package media

import (
	"context"
	"strings"
	"time"
)

// Stage is one node of a video filter chain. Args keep the positional
// order the underlying tool expects, so a stage renders verbatim as
// name=arg0:arg1:... on the tool command line.
type Stage struct {
	Name string
	Args []string
}

// String renders the stage in filter syntax.
func (s Stage) String() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return s.Name + "=" + strings.Join(s.Args, ":")
}

// Chain is an ordered filter pipeline.
type Chain []Stage

// String renders the whole chain as a comma-joined filter expression.
func (c Chain) String() string {
	parts := make([]string, 0, len(c))
	for _, s := range c {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ",")
}

// EncodeRequest describes one conversion attempt handed to the executor.
type EncodeRequest struct {
	InputPath  string
	OutputPath string
	Chain      Chain
	// CRF is the constant rate factor for the attempt, 0..63.
	CRF int
}

// EncodeResult reports a finished conversion attempt with the measured
// properties of the produced file.
type EncodeResult struct {
	OutputPath string
	ByteLength int64
	Width      int
	Height     int
	Duration   time.Duration
}

// ProbeResult carries the source geometry and timing the encoder needs
// to plan its filter chain.
type ProbeResult struct {
	Width    int
	Height   int
	Duration time.Duration
}

// Executor is the boundary to the external conversion tool. The session
// layer never shells out directly; everything below this interface is
// owned by the ffmpeg package.
type Executor interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
	Encode(ctx context.Context, req EncodeRequest) (EncodeResult, error)
}
