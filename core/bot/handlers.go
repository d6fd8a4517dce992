package bot

import (
	"strings"

	"github.com/m3rciful/stickerbot/core/media"
	"github.com/m3rciful/stickerbot/core/packapi"
	"github.com/m3rciful/stickerbot/core/session"
	"github.com/m3rciful/stickerbot/core/telegram/callbacks"
	"github.com/m3rciful/stickerbot/core/telegram/format"
	tghelpers "github.com/m3rciful/stickerbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const (
	msgWelcome = "Hi! I turn images and clips into stickers.\n\n" +
		"Reply to any photo, GIF or video with /sticker and follow the prompts.\n" +
		"Use /help for details."
	msgHelp = "How it works:\n" +
		"1. Reply to a photo, GIF or video with /sticker.\n" +
		"2. Send one emoji for the sticker.\n" +
		"3. Pick the pack to add it to.\n\n" +
		"/cancel aborts the current request."
	msgReplyToMedia   = "Reply to a photo, GIF or video with /sticker to start."
	msgCannotConvert  = "That media type can't be turned into a sticker. Send a photo, GIF or video."
	msgAlreadyActive  = "You already have a sticker request going. Finish it or send /cancel first."
	msgNothingCancel  = "Nothing to cancel."
	msgNoActiveChoice = "That request is no longer active."
)

// sessionKeyOf derives the session key from an update.
func sessionKeyOf(c tele.Context) (session.Key, bool) {
	chat := c.Chat()
	user := c.Sender()
	if chat == nil || user == nil {
		return session.Key{}, false
	}
	return session.Key{ChatID: chat.ID, UserID: user.ID}, true
}

// mediaRefOf extracts the source media reference from a message. Photos
// carry no MIME type on the wire, so they are declared as JPEG, which is
// what the platform serves for photo downloads.
func mediaRefOf(msg *tele.Message) (session.MediaRef, bool) {
	if msg == nil {
		return session.MediaRef{}, false
	}
	switch {
	case msg.Photo != nil:
		return session.MediaRef{FileRef: msg.Photo.FileID, ContentType: "image/jpeg"}, true
	case msg.Animation != nil:
		return session.MediaRef{FileRef: msg.Animation.FileID, ContentType: orDefault(msg.Animation.MIME, "video/mp4")}, true
	case msg.Video != nil:
		return session.MediaRef{FileRef: msg.Video.FileID, ContentType: orDefault(msg.Video.MIME, "video/mp4")}, true
	case msg.Document != nil:
		return session.MediaRef{FileRef: msg.Document.FileID, ContentType: msg.Document.MIME}, true
	case msg.Sticker != nil:
		ct := "image/webp"
		if msg.Sticker.Video {
			ct = "video/webm"
		}
		return session.MediaRef{FileRef: msg.Sticker.FileID, ContentType: ct}, true
	}
	return session.MediaRef{}, false
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// sessionsAdapter exposes the registry to the message router.
type sessionsAdapter struct {
	app *App
}

func (s *sessionsAdapter) InProgress(chatID, userID int64) bool {
	return s.app.sessions.Active(session.Key{ChatID: chatID, UserID: userID})
}

func (s *sessionsAdapter) Handle(c tele.Context) error {
	key, ok := sessionKeyOf(c)
	if !ok {
		return nil
	}
	m, ok := s.app.sessions.Get(key)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	text := strings.TrimSpace(c.Text())
	if isCancelCommand(text) {
		m.HandleCancel(ctx)
		return nil
	}
	m.HandleText(ctx, text)
	return nil
}

func isCancelCommand(text string) bool {
	return text == "/cancel" || strings.HasPrefix(text, "/cancel@")
}

func (a *App) handleStart(c tele.Context) error {
	return tghelpers.SendText(c, msgWelcome)
}

func (a *App) handleHelp(c tele.Context) error {
	return tghelpers.SendText(c, msgHelp)
}

// handleSticker starts a request from a reply-to-media trigger. An
// emoji supplied right after the command answers the first prompt.
func (a *App) handleSticker(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil {
		return tghelpers.SendText(c, msgReplyToMedia)
	}
	ref, ok := mediaRefOf(msg.ReplyTo)
	if !ok {
		return tghelpers.SendText(c, msgReplyToMedia)
	}
	return a.startSession(c, ref, msg.Payload)
}

// handleMedia starts a request from a bare media message in chats where
// direct send is enabled. Everywhere else bare media is ignored.
func (a *App) handleMedia(c tele.Context) error {
	chat := c.Chat()
	if chat == nil || !a.cfg.Stickers.DirectSendAllowed(chat.ID) {
		return nil
	}
	ref, ok := mediaRefOf(c.Message())
	if !ok {
		return nil
	}
	return a.startSession(c, ref, "")
}

// startSession classifies the media, opens a session and, when the
// trigger already carried the emoji, feeds it straight in.
func (a *App) startSession(c tele.Context, ref session.MediaRef, inline string) error {
	key, ok := sessionKeyOf(c)
	if !ok {
		return nil
	}
	ref.Kind = media.Classify(ref.ContentType)
	if ref.Kind == media.KindUnsupported {
		return tghelpers.SendText(c, msgCannotConvert)
	}
	ctx := tghelpers.BuildContext(c)
	emoji, _ := session.ExtractEmoji(strings.TrimSpace(inline))
	if _, err := a.sessions.Create(ctx, key, ref, emoji); err != nil {
		return tghelpers.SendText(c, msgAlreadyActive)
	}
	return nil
}

func (a *App) handleCancel(c tele.Context) error {
	key, ok := sessionKeyOf(c)
	if !ok {
		return nil
	}
	m, ok := a.sessions.Get(key)
	if !ok {
		return tghelpers.SendText(c, msgNothingCancel)
	}
	m.HandleCancel(tghelpers.BuildContext(c))
	return nil
}

// handlePackCallback applies an inline pack selection to the session.
func (a *App) handlePackCallback(c tele.Context) error {
	key, ok := sessionKeyOf(c)
	if !ok {
		return nil
	}
	m, ok := a.sessions.Get(key)
	if !ok {
		return tghelpers.SendText(c, msgNoActiveChoice)
	}
	m.HandlePackChoice(tghelpers.BuildContext(c), callbacks.CallbackPayload(c))
	return nil
}

// handlePacks lists the configured catalog with derived set names.
func (a *App) handlePacks(c tele.Context) error {
	var b strings.Builder
	b.WriteString("Configured packs:\n")
	for _, pack := range a.cfg.Stickers.Packs {
		b.WriteString("• ")
		b.WriteString(format.EscapeMarkdownV2(pack))
		b.WriteString(": ")
		b.WriteString(format.Code(packapi.SetName(pack, a.cfg.Stickers.BotUsername)))
		b.WriteByte('\n')
	}
	return tghelpers.SendMDV2(c, b.String())
}
