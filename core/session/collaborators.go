package session

import (
	"context"

	"github.com/m3rciful/stickerbot/core/media"
)

// Outgoing is a reply intent emitted by the machine. Choices, when set,
// ask the transport layer to render a selection keyboard.
type Outgoing struct {
	Text    string
	Choices []string
}

// Replier delivers reply intents to the chat transport. Delivery is
// fire-and-forget from the machine's point of view.
type Replier interface {
	Reply(ctx context.Context, key Key, out Outgoing)
}

// Processor turns a media reference into a sticker-ready artifact. It
// covers fetch, classification and normalization; failures arrive as the
// media package's sentinel errors.
type Processor interface {
	Process(ctx context.Context, ref MediaRef) (media.Normalized, error)
}

// PackMutator appends a finished sticker to a named pack on behalf of
// the owning account. On success it returns the shareable pack link.
type PackMutator interface {
	AddToPack(ctx context.Context, pack string, item media.Normalized, emoji string) (string, error)
}
