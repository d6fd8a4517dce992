package session

import (
	"errors"
	"fmt"

	"github.com/m3rciful/stickerbot/core/media"
)

// Key identifies at most one live sticker request: the same user may run
// independent requests in different chats, and different users never
// share state within a chat.
type Key struct {
	ChatID int64
	UserID int64
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.ChatID, k.UserID)
}

// State is the lifecycle phase of a sticker request.
type State string

const (
	StateAwaitingEmoji State = "awaiting_emoji"
	StateAwaitingPack  State = "awaiting_pack"
	StateProcessing    State = "processing"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
	StateCancelled     State = "cancelled"
	StateExpired       State = "expired"
)

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateExpired:
		return true
	}
	return false
}

// MediaRef points at the source media of a request. FileRef is the
// transport-level handle the fetch collaborator resolves to bytes.
// Kind is classified at trigger time so unsupported media is refused
// before the dialog starts.
type MediaRef struct {
	FileRef     string
	ContentType string
	Kind        media.Kind
}

var (
	// ErrSessionAlreadyActive rejects a second trigger for a key whose
	// request is still live. No existing state is touched.
	ErrSessionAlreadyActive = errors.New("session: request already active")

	// ErrInvalidSelection marks user input that matches no offered
	// choice. The machine re-prompts without changing state.
	ErrInvalidSelection = errors.New("session: invalid selection")
)
