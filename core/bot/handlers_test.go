package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/stickerbot/core/config"
	"github.com/m3rciful/stickerbot/core/media"
	"github.com/m3rciful/stickerbot/core/session"

	tele "gopkg.in/telebot.v4"
)

// chatCtx fakes the transport surface handlers touch. The embedded
// interface panics on anything a handler is not expected to call.
type chatCtx struct {
	tele.Context
	msg   *tele.Message
	store map[string]any

	mu   sync.Mutex
	sent []string
}

func newChatCtx(msg *tele.Message) *chatCtx {
	return &chatCtx{msg: msg, store: make(map[string]any)}
}

func (c *chatCtx) Chat() *tele.Chat       { return c.msg.Chat }
func (c *chatCtx) Sender() *tele.User     { return c.msg.Sender }
func (c *chatCtx) Message() *tele.Message { return c.msg }
func (c *chatCtx) Text() string           { return c.msg.Text }
func (c *chatCtx) Update() tele.Update    { return tele.Update{ID: 1, Message: c.msg} }
func (c *chatCtx) Get(key string) any     { return c.store[key] }
func (c *chatCtx) Set(key string, v any)  { c.store[key] = v }

func (c *chatCtx) Send(what any, _ ...any) error {
	if text, ok := what.(string); ok {
		c.mu.Lock()
		c.sent = append(c.sent, text)
		c.mu.Unlock()
	}
	return nil
}

func (c *chatCtx) sentContains(substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, text := range c.sent {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

type nullReplier struct{}

func (nullReplier) Reply(context.Context, session.Key, session.Outgoing) {}

type recordingProcessor struct {
	mu   sync.Mutex
	refs []session.MediaRef
}

func (p *recordingProcessor) Process(_ context.Context, ref session.MediaRef) (media.Normalized, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs = append(p.refs, ref)
	return media.Normalized{Payload: []byte("png"), Format: media.FormatStaticPNG}, nil
}

func (p *recordingProcessor) snapshot() []session.MediaRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]session.MediaRef(nil), p.refs...)
}

type nullPacks struct{}

func (nullPacks) AddToPack(context.Context, string, media.Normalized, string) (string, error) {
	return "", nil
}

func newTestApp(packs []string, proc session.Processor) *App {
	cfg := &coreconfig.Config{}
	cfg.Stickers.Packs = packs
	cfg.Stickers.BotUsername = "testbot"
	return &App{
		cfg: cfg,
		sessions: session.NewRegistry(session.Deps{
			Processor: proc,
			Packs:     nullPacks{},
			Replier:   nullReplier{},
			PackNames: packs,
		}, time.Minute),
	}
}

func stickerCommand(payload string, replyTo *tele.Message) *tele.Message {
	return &tele.Message{
		ID:      10,
		Chat:    &tele.Chat{ID: -100123},
		Sender:  &tele.User{ID: 42},
		Text:    "/sticker",
		Payload: payload,
		ReplyTo: replyTo,
	}
}

func photoMessage() *tele.Message {
	return &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "photo-1"}}}
}

func TestStickerCommandRefusesUnconvertibleMedia(t *testing.T) {
	proc := &recordingProcessor{}
	app := newTestApp([]string{"Memes"}, proc)

	doc := &tele.Message{Document: &tele.Document{File: tele.File{FileID: "doc-1"}, MIME: "application/pdf"}}
	c := newChatCtx(stickerCommand("", doc))

	require.NoError(t, app.handleSticker(c))
	assert.True(t, c.sentContains("can't be turned into a sticker"))
	assert.False(t, app.sessions.Active(session.Key{ChatID: -100123, UserID: 42}))
	assert.Empty(t, proc.snapshot())
}

func TestStickerCommandStoresClassifiedKind(t *testing.T) {
	proc := &recordingProcessor{}
	app := newTestApp([]string{"Memes"}, proc)

	gif := &tele.Message{Animation: &tele.Animation{File: tele.File{FileID: "anim-1"}, MIME: "image/gif"}}
	c := newChatCtx(stickerCommand("😀", gif))

	require.NoError(t, app.handleSticker(c))
	require.Eventually(t, func() bool {
		return len(proc.snapshot()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, media.KindAnimation, proc.snapshot()[0].Kind)
}

func TestStickerCommandInlineEmojiStartsProcessing(t *testing.T) {
	proc := &recordingProcessor{}
	app := newTestApp([]string{"Memes"}, proc)
	c := newChatCtx(stickerCommand("😀", photoMessage()))

	require.NoError(t, app.handleSticker(c))
	// A single configured pack means the inline emoji answers the only
	// open question and processing starts immediately.
	require.Eventually(t, func() bool {
		return len(proc.snapshot()) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStickerCommandInlineEmojiSkipsToPackSelection(t *testing.T) {
	proc := &recordingProcessor{}
	app := newTestApp([]string{"Memes", "Cats"}, proc)
	c := newChatCtx(stickerCommand("🔥", photoMessage()))

	require.NoError(t, app.handleSticker(c))
	m, ok := app.sessions.Get(session.Key{ChatID: -100123, UserID: 42})
	require.True(t, ok)
	assert.Equal(t, session.StateAwaitingPack, m.State())
	assert.Equal(t, "🔥", m.Emoji())
}

func TestStickerCommandNonEmojiPayloadStillPrompts(t *testing.T) {
	proc := &recordingProcessor{}
	app := newTestApp([]string{"Memes"}, proc)
	c := newChatCtx(stickerCommand("soon", photoMessage()))

	require.NoError(t, app.handleSticker(c))
	m, ok := app.sessions.Get(session.Key{ChatID: -100123, UserID: 42})
	require.True(t, ok)
	assert.Equal(t, session.StateAwaitingEmoji, m.State())
}
