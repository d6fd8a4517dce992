package bot

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/session"
	"github.com/m3rciful/stickerbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/stickerbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// packCallbackKey is the callback unique for pack selection buttons.
const packCallbackKey = "pack"

// telegramReplier delivers session reply intents through the async
// dispatcher. The bot handle arrives late, at OnStart, so it sits
// behind an atomic pointer; intents emitted before startup are dropped
// with a log line rather than queued.
type telegramReplier struct {
	bot  atomic.Pointer[tele.Bot]
	disp *tgsender.Dispatcher
}

func (r *telegramReplier) setBot(b *tele.Bot) {
	r.bot.Store(b)
}

func (r *telegramReplier) Reply(ctx context.Context, key session.Key, out session.Outgoing) {
	b := r.bot.Load()
	if b == nil {
		logger.Warn(ctx, "tg", "reply.dropped",
			slog.String("session", key.String()),
		)
		return
	}

	var markup *tele.ReplyMarkup
	if len(out.Choices) > 0 {
		buttons := make([]keyboard.InlineBtn, 0, len(out.Choices))
		for _, choice := range out.Choices {
			buttons = append(buttons, keyboard.InlineBtn{
				Text:   choice,
				Unique: packCallbackKey,
				Data:   choice,
			})
		}
		markup = keyboard.InlineButtonsNPerRow(buttons, 2)
	}

	recipient := tele.ChatID(key.ChatID)
	send := func() error {
		var err error
		if markup != nil {
			_, err = b.Send(recipient, out.Text, markup)
		} else {
			_, err = b.Send(recipient, out.Text)
		}
		return err
	}

	if r.disp == nil {
		if err := send(); err != nil {
			logger.Warn(ctx, "tg", "reply.failed",
				slog.String("session", key.String()),
				slog.String("err", logger.RedactToken(err.Error())),
			)
		}
		return
	}
	if err := r.disp.Enqueue(ctx, "session.reply", "sendMessage", send); err != nil {
		logger.Warn(ctx, "tg", "reply.enqueue_failed",
			slog.String("session", key.String()),
			slog.String("err", err.Error()),
		)
	}
}
