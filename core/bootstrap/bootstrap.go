package bootstrap

import (
	"fmt"

	coreconfig "github.com/m3rciful/stickerbot/core/config"
	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/media"
	"github.com/m3rciful/stickerbot/core/media/ffmpeg"
)

// Options control the generic bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit  func(*coreconfig.Config) error
	NewExecutor func(ffmpeg.Options) (*ffmpeg.Executor, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Executor media.Executor
}

// Run initializes the logger and resolves the external media toolchain.
// A missing ffmpeg installation fails startup instead of the first
// sticker request.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	newExecutor := opts.NewExecutor
	if newExecutor == nil {
		newExecutor = ffmpeg.New
	}
	executor, err := newExecutor(ffmpeg.Options{
		FFmpegPath:  opts.Config.Encoder.FFmpegPath,
		FFprobePath: opts.Config.Encoder.FFprobePath,
		Timeout:     opts.Config.Encoder.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: media toolchain unavailable: %w", err)
	}

	return &Result{Executor: executor}, nil
}
