package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/media"
)

// Options configure the subprocess executor.
type Options struct {
	// FFmpegPath and FFprobePath override binary lookup. Empty values
	// resolve "ffmpeg" and "ffprobe" from PATH.
	FFmpegPath  string
	FFprobePath string
	// Timeout bounds a single tool invocation.
	Timeout time.Duration
}

// Executor shells out to ffmpeg/ffprobe behind media.Executor. Repeated
// tool faults open a circuit breaker so a broken installation fails fast
// instead of burning the full timeout on every session.
type Executor struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
}

var _ media.Executor = (*Executor)(nil)

// New resolves both binaries and builds the executor. Missing binaries
// fail here rather than on the first user request.
func New(opts Options) (*Executor, error) {
	ffmpegBin := opts.FFmpegPath
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	ffprobeBin := opts.FFprobePath
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(ffmpegBin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", media.ErrToolUnavailable, ffmpegBin)
	}
	ffprobePath, err := exec.LookPath(ffprobeBin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", media.ErrToolUnavailable, ffprobeBin)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "ffmpeg",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "media.ffmpeg", "breaker.state",
				slog.String("payload", from.String()+">"+to.String()),
			)
		},
	})

	return &Executor{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		timeout: timeout,
		breaker: breaker,
	}, nil
}

// Probe inspects a media file with ffprobe.
func (e *Executor) Probe(ctx context.Context, path string) (media.ProbeResult, error) {
	out, err := e.run(ctx, e.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return media.ProbeResult{}, err
	}
	res, err := parseProbe(out)
	if err != nil {
		return media.ProbeResult{}, fmt.Errorf("%w: %s", media.ErrToolRejectedInput, err)
	}
	return res, nil
}

// Encode runs one ffmpeg conversion attempt and probes the produced file
// for its measured properties.
func (e *Executor) Encode(ctx context.Context, req media.EncodeRequest) (media.EncodeResult, error) {
	args := []string{
		"-y",
		"-i", req.InputPath,
		"-vf", req.Chain.String(),
		"-c:v", "libvpx-vp9",
		"-pix_fmt", "yuva420p",
		"-crf", strconv.Itoa(req.CRF),
		"-b:v", "0",
		"-deadline", "good",
		"-cpu-used", "4",
		"-an",
		req.OutputPath,
	}
	if _, err := e.run(ctx, e.ffmpeg, args...); err != nil {
		return media.EncodeResult{}, err
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return media.EncodeResult{}, fmt.Errorf("%w: no output produced", media.ErrToolRejectedInput)
	}

	probed, err := e.Probe(ctx, req.OutputPath)
	if err != nil {
		return media.EncodeResult{}, err
	}

	return media.EncodeResult{
		OutputPath: req.OutputPath,
		ByteLength: info.Size(),
		Width:      probed.Width,
		Height:     probed.Height,
		Duration:   probed.Duration,
	}, nil
}

// run executes one bounded tool invocation through the breaker and maps
// failures onto the media tool error taxonomy.
func (e *Executor) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	out, err := e.breaker.Execute(func() ([]byte, error) {
		runCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		cmd := exec.CommandContext(runCtx, bin, args...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		start := time.Now()
		runErr := cmd.Run()
		logger.Debug(ctx, "media.ffmpeg", "tool.run",
			slog.String("operation", bin),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
			slog.String("status", runStatus(runErr)),
		)
		if runErr != nil {
			if runCtx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("%w: after %s", media.ErrToolTimeout, e.timeout)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var exitErr *exec.ExitError
			if errors.As(runErr, &exitErr) {
				msg := logger.SanitizeLimit(lastLine(stderr.Bytes()), 256)
				return nil, fmt.Errorf("%w: %s", media.ErrToolRejectedInput, msg)
			}
			return nil, fmt.Errorf("%w: %s", media.ErrToolUnavailable, runErr)
		}
		return stdout.Bytes(), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: breaker open", media.ErrToolUnavailable)
		}
		return nil, err
	}
	return out, nil
}

func runStatus(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

func lastLine(out []byte) string {
	trimmed := bytes.TrimRight(out, "\r\n")
	if len(trimmed) == 0 {
		return "tool exited non-zero"
	}
	if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return string(trimmed)
}
