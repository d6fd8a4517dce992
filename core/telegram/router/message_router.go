package router

import (
	"time"

	tg "github.com/m3rciful/stickerbot/core/telegram"
	"github.com/m3rciful/stickerbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Sessions is the minimal interface for routing updates into active
// sticker request sessions, keyed by (chat, user).
type Sessions interface {
	InProgress(chatID, userID int64) bool
	Handle(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
	// Media handles bare media messages (direct-send triggers).
	Media tele.HandlerFunc
}

// TextRoutes builds handlers for text and media message routing.
// Text goes to the active session first, then command lookup, then fallback.
func TextRoutes(sessions Sessions, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if sessions != nil && inProgress(sessions, c) {
			return handleWithSummary(c, "session", start, "", "", func() error {
				return sessions.Handle(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if sessions != nil && inProgress(sessions, c) {
			return handleWithSummary(c, "session_media", start, "", "", func() error {
				return sessions.Handle(c)
			})
		}
		if opts.Media != nil {
			return handleWithSummary(c, "media", start, "", "", func() error {
				return opts.Media(c)
			})
		}
		logHandlerSummary(c, "media", start, "skip", "ok", nil)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(handler)},
		{Endpoint: tele.OnPhoto, Handler: wrap(mediaHandler)},
		{Endpoint: tele.OnDocument, Handler: wrap(mediaHandler)},
		{Endpoint: tele.OnAnimation, Handler: wrap(mediaHandler)},
		{Endpoint: tele.OnVideo, Handler: wrap(mediaHandler)},
	}
}

func inProgress(sessions Sessions, c tele.Context) bool {
	chat := c.Chat()
	user := c.Sender()
	if chat == nil || user == nil {
		return false
	}
	return sessions.InProgress(chat.ID, user.ID)
}
