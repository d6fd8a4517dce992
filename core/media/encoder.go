package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
)

// Format tags the payload produced by the normalization pipeline.
type Format string

const (
	// FormatStaticPNG is a 512x512 PNG produced by the still normalizer.
	FormatStaticPNG Format = "static_png"
	// FormatAnimatedWebM is a VP9-with-alpha WebM produced by the encoder.
	FormatAnimatedWebM Format = "animated_webm"
)

// Normalized is the sticker-ready artifact handed to pack mutation.
type Normalized struct {
	Payload  []byte
	Width    int
	Height   int
	Duration time.Duration
	Format   Format
}

// EncoderOptions configure the animated conversion pipeline.
type EncoderOptions struct {
	Executor Executor
	// SizeBudget is the hard ceiling on the encoded payload in bytes.
	SizeBudget int64
	// MaxDuration clamps the output length; longer sources are sped up.
	MaxDuration time.Duration
	// CRFLadder lists quality steps tried in order until the output
	// fits the budget. Values must be monotonically increasing.
	CRFLadder []int
	// WorkDir holds intermediate files. Defaults to the system temp dir.
	WorkDir string
}

// Encoder converts arbitrary looped animation bytes into a WebM that
// fits the sticker canvas, duration clamp and size budget.
type Encoder struct {
	exec    Executor
	budget  int64
	maxDur  time.Duration
	ladder  []int
	workDir string
}

// NewEncoder builds an Encoder. Zero option fields fall back to the
// documented defaults.
func NewEncoder(opts EncoderOptions) *Encoder {
	e := &Encoder{
		exec:    opts.Executor,
		budget:  opts.SizeBudget,
		maxDur:  opts.MaxDuration,
		ladder:  opts.CRFLadder,
		workDir: opts.WorkDir,
	}
	if e.budget <= 0 {
		e.budget = 256 * 1024
	}
	if e.maxDur <= 0 {
		e.maxDur = 3 * time.Second
	}
	if len(e.ladder) == 0 {
		e.ladder = []int{30, 40, 50, 63}
	}
	if e.workDir == "" {
		e.workDir = os.TempDir()
	}
	return e
}

// durationSlack absorbs one output frame of rounding when checking the
// encoded clip against the duration ceiling.
const durationSlack = 50 * time.Millisecond

// Encode runs the full pipeline: probe, plan the filter chain, then walk
// the quality ladder until an attempt fits the size budget. It never
// returns an oversized artifact; exhausting the ladder yields
// ErrSizeBudgetExceeded. The fitting result's measured duration is
// checked against the ceiling too: some containers hide their duration
// from the probe, so the clamp is re-planned from the measured output
// when the first pass came out long.
func (e *Encoder) Encode(ctx context.Context, src []byte) (Normalized, error) {
	start := time.Now()

	inPath, cleanup, err := e.stash(src)
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %s", ErrEncodingFailure, err)
	}
	defer cleanup()

	probe, err := e.exec.Probe(ctx, inPath)
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: probe: %s", ErrEncodingFailure, err)
	}

	chain := e.buildChain(probe.Duration)
	logger.Debug(ctx, "media", "encode.plan",
		slog.Int("width", probe.Width),
		slog.Int("height", probe.Height),
		slog.Int64("duration_ms", probe.Duration.Milliseconds()),
		slog.String("payload", chain.String()),
	)

	out, err := e.walkLadder(ctx, inPath, chain, start)
	if err != nil {
		return Normalized{}, err
	}
	if out.Duration > e.maxDur+durationSlack {
		if probe.Duration > e.maxDur {
			// The chain already carried a clamp; a long output means the
			// tool ignored it, not that the plan was wrong.
			return Normalized{}, fmt.Errorf("%w: output duration %dms over %dms limit",
				ErrEncodingFailure, out.Duration.Milliseconds(), e.maxDur.Milliseconds())
		}
		logger.Warn(ctx, "media", "encode.reclamp",
			slog.Int64("probe_duration_ms", probe.Duration.Milliseconds()),
			slog.Int64("output_duration_ms", out.Duration.Milliseconds()),
		)
		chain = e.buildChain(out.Duration)
		out, err = e.walkLadder(ctx, inPath, chain, start)
		if err != nil {
			return Normalized{}, err
		}
		if out.Duration > e.maxDur+durationSlack {
			return Normalized{}, fmt.Errorf("%w: output duration %dms over %dms limit",
				ErrEncodingFailure, out.Duration.Milliseconds(), e.maxDur.Milliseconds())
		}
	}
	return out, nil
}

// walkLadder runs encode attempts down the CRF ladder until one fits
// the size budget.
func (e *Encoder) walkLadder(ctx context.Context, inPath string, chain Chain, start time.Time) (Normalized, error) {
	var lastSize int64
	for attempt, crf := range e.ladder {
		if err := ctx.Err(); err != nil {
			return Normalized{}, err
		}

		outPath := filepath.Join(e.workDir, fmt.Sprintf("sticker-%d-%d.webm", time.Now().UnixNano(), crf))
		res, err := e.exec.Encode(ctx, EncodeRequest{
			InputPath:  inPath,
			OutputPath: outPath,
			Chain:      chain,
			CRF:        crf,
		})
		if err != nil {
			_ = os.Remove(outPath)
			// A timed-out attempt burns a ladder step; lower quality may
			// still finish in time. Anything else aborts the pipeline.
			if errors.Is(err, ErrToolTimeout) {
				logger.Warn(ctx, "media", "encode.attempt_timeout",
					slog.Int("attempt", attempt+1),
					slog.Int("crf", crf),
				)
				continue
			}
			return Normalized{}, fmt.Errorf("%w: %s", ErrEncodingFailure, err)
		}

		lastSize = res.ByteLength
		if res.ByteLength <= e.budget {
			payload, err := os.ReadFile(res.OutputPath)
			_ = os.Remove(res.OutputPath)
			if err != nil {
				return Normalized{}, fmt.Errorf("%w: read output: %s", ErrEncodingFailure, err)
			}
			logger.Info(ctx, "media", "encode.done",
				slog.String("status", "ok"),
				slog.Int("attempt", attempt+1),
				slog.Int("crf", crf),
				slog.Int64("size_bytes", res.ByteLength),
				slog.Int("width", res.Width),
				slog.Int("height", res.Height),
				slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
			)
			return Normalized{
				Payload:  payload,
				Width:    res.Width,
				Height:   res.Height,
				Duration: res.Duration,
				Format:   FormatAnimatedWebM,
			}, nil
		}

		_ = os.Remove(res.OutputPath)
		logger.Info(ctx, "media", "encode.retry",
			slog.Int("attempt", attempt+1),
			slog.Int("crf", crf),
			slog.Int64("size_bytes", res.ByteLength),
		)
	}

	return Normalized{}, fmt.Errorf("%w: best attempt %d bytes over %d budget",
		ErrSizeBudgetExceeded, lastSize, e.budget)
}

// buildChain plans the fixed stage order: fit, alpha format, pad, the
// optional speed-up clamp, then the output frame rate.
func (e *Encoder) buildChain(sourceDur time.Duration) Chain {
	chain := Chain{
		{Name: "scale", Args: []string{"512", "512", "force_original_aspect_ratio=decrease"}},
		{Name: "format", Args: []string{"yuva420p"}},
		{Name: "pad", Args: []string{"512", "512", "(ow-iw)/2", "(oh-ih)/2", "color=0x00000000"}},
	}
	if sourceDur > e.maxDur {
		ratio := float64(e.maxDur) / float64(sourceDur)
		chain = append(chain, Stage{
			Name: "setpts",
			Args: []string{strconv.FormatFloat(ratio, 'f', 6, 64) + "*PTS"},
		})
	}
	chain = append(chain, Stage{Name: "fps", Args: []string{"30"}})
	return chain
}

func (e *Encoder) stash(src []byte) (string, func(), error) {
	f, err := os.CreateTemp(e.workDir, "sticker-src-*")
	if err != nil {
		return "", func() {}, err
	}
	path := f.Name()
	if _, err := f.Write(src); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", func() {}, err
	}
	return path, func() { _ = os.Remove(path) }, nil
}
