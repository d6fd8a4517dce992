package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/media"
	"github.com/m3rciful/stickerbot/core/session"

	tele "gopkg.in/telebot.v4"
)

// maxSourceBytes bounds how much source media the pipeline will pull.
const maxSourceBytes = 20 << 20

// pipeline is the session layer's Processor: it fetches the source
// bytes and routes them through the still normalizer or the animated
// encoder based on the classified kind.
type pipeline struct {
	bot     atomic.Pointer[tele.Bot]
	encoder *media.Encoder
}

func (p *pipeline) setBot(b *tele.Bot) {
	p.bot.Store(b)
}

func (p *pipeline) Process(ctx context.Context, ref session.MediaRef) (media.Normalized, error) {
	kind := ref.Kind
	if kind == "" {
		kind = media.Classify(ref.ContentType)
	}
	if kind == media.KindUnsupported {
		return media.Normalized{}, fmt.Errorf("%w: %q", media.ErrUnsupportedMedia, ref.ContentType)
	}

	data, err := p.fetch(ctx, ref.FileRef)
	if err != nil {
		return media.Normalized{}, err
	}

	switch kind {
	case media.KindStillImage:
		payload, err := media.NormalizeStill(data)
		if err != nil {
			return media.Normalized{}, err
		}
		return media.Normalized{
			Payload: payload,
			Width:   media.StickerSide,
			Height:  media.StickerSide,
			Format:  media.FormatStaticPNG,
		}, nil
	default:
		return p.encoder.Encode(ctx, data)
	}
}

// fetch downloads the source file. Transient download failures get one
// retry before the request fails.
func (p *pipeline) fetch(ctx context.Context, fileRef string) ([]byte, error) {
	b := p.bot.Load()
	if b == nil {
		return nil, fmt.Errorf("%w: transport not started", media.ErrFetchFailure)
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := downloadFile(b, fileRef)
		if err == nil {
			return data, nil
		}
		lastErr = err
		logger.Warn(ctx, "media", "fetch.retry",
			slog.Int("attempt", attempt),
			slog.String("err", logger.RedactToken(err.Error())),
		)
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("%w: %s", media.ErrFetchFailure, logger.RedactToken(lastErr.Error()))
}

func downloadFile(b *tele.Bot, fileRef string) ([]byte, error) {
	rc, err := b.File(&tele.File{FileID: fileRef})
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, maxSourceBytes))
	if err != nil {
		return nil, err
	}
	return data, nil
}
