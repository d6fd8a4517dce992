package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/media"
)

// Reply texts emitted by the machine. The transport layer sends them
// verbatim, so they are written for end users.
const (
	msgPromptEmoji     = "Reply with one emoji for this sticker."
	msgNotOneEmoji     = "That doesn't look like a single emoji. Send exactly one emoji."
	msgPromptPack      = "Pick a sticker pack:"
	msgInvalidPack     = "That's not one of your packs. Pick one from the keyboard."
	msgProcessing      = "Converting your media, hold on..."
	msgStillProcessing = "Still working on your previous sticker."
	msgCancelled       = "Sticker request cancelled."
	msgExpired         = "Sticker request timed out. Send a new one whenever you're ready."

	msgFailUnsupported = "This media type can't be turned into a sticker."
	msgFailFetch       = "Couldn't download that media. Try sending it again."
	msgFailOversized   = "Couldn't compress the result under the sticker size limit. Try a shorter or simpler clip."
	msgFailEncoding    = "Something went wrong while converting the media."
	msgFailPack        = "The sticker was converted but couldn't be added to the pack: "
)

// Deps are the collaborators one machine needs. PackNames is the
// read-only catalog shared by all sessions.
type Deps struct {
	Processor Processor
	Packs     PackMutator
	Replier   Replier
	PackNames []string
}

// Machine is the finite-state machine for one sticker request. All
// event handling for a key is serialized through its mutex; the only
// long-running work, media processing, runs on a goroutine outside the
// lock so /cancel stays observable.
type Machine struct {
	key  Key
	deps Deps

	mu         sync.Mutex
	state      State
	ref        MediaRef
	emoji      string
	pack       string
	lastEvent  time.Time
	procCancel context.CancelFunc
	onTerminal func(Key)
}

// newMachine starts a request and sends the first prompt. A non-empty
// emoji answers that prompt up front, so the request opens at pack
// selection, or goes straight to processing with a single pack. Only
// the Registry constructs machines.
func newMachine(ctx context.Context, key Key, ref MediaRef, emoji string, deps Deps, onTerminal func(Key)) *Machine {
	m := &Machine{
		key:        key,
		deps:       deps,
		state:      StateAwaitingEmoji,
		ref:        ref,
		lastEvent:  time.Now(),
		onTerminal: onTerminal,
	}
	logger.Info(ctx, "session", "session.created",
		slog.String("session", key.String()),
		slog.String("state", string(StateAwaitingEmoji)),
		slog.String("kind", string(ref.Kind)),
	)
	if emoji != "" {
		m.emoji = emoji
		if len(deps.PackNames) == 1 {
			m.pack = deps.PackNames[0]
			m.beginProcessing(ctx)
			return m
		}
		m.transition(ctx, StateAwaitingPack)
		m.reply(ctx, Outgoing{Text: msgPromptPack, Choices: deps.PackNames})
		return m
	}
	deps.Replier.Reply(ctx, key, Outgoing{Text: msgPromptEmoji})
	return m
}

// State returns the current lifecycle phase.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Emoji returns the emoji chosen so far, empty before AwaitingPack.
func (m *Machine) Emoji() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emoji
}

// HandleText feeds a plain text event into the machine. Depending on
// the state it is interpreted as the emoji answer, the pack choice, or
// noise to re-prompt about.
func (m *Machine) HandleText(ctx context.Context, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastEvent = time.Now()

	switch m.state {
	case StateAwaitingEmoji:
		emoji, ok := ExtractEmoji(text)
		if !ok {
			m.reply(ctx, Outgoing{Text: msgNotOneEmoji})
			return
		}
		m.emoji = emoji
		if len(m.deps.PackNames) == 1 {
			m.pack = m.deps.PackNames[0]
			m.beginProcessing(ctx)
			return
		}
		m.transition(ctx, StateAwaitingPack)
		m.reply(ctx, Outgoing{Text: msgPromptPack, Choices: m.deps.PackNames})

	case StateAwaitingPack:
		m.selectPack(ctx, text)

	case StateProcessing:
		m.reply(ctx, Outgoing{Text: msgStillProcessing})
	}
}

// HandlePackChoice feeds an explicit pack selection, e.g. a keyboard
// callback, into the machine.
func (m *Machine) HandlePackChoice(ctx context.Context, pack string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastEvent = time.Now()
	if m.state != StateAwaitingPack {
		return
	}
	m.selectPack(ctx, pack)
}

// HandleCancel cancels the request from any non-terminal state,
// including mid-processing. In-flight encoder output is discarded when
// it arrives.
func (m *Machine) HandleCancel(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() {
		return
	}
	if m.procCancel != nil {
		m.procCancel()
	}
	m.transition(ctx, StateCancelled)
	m.reply(ctx, Outgoing{Text: msgCancelled})
}

// ExpireIfIdle transitions the request to Expired when no event arrived
// within timeout. It reports whether the session ended.
func (m *Machine) ExpireIfIdle(ctx context.Context, now time.Time, timeout time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() || now.Sub(m.lastEvent) < timeout {
		return false
	}
	if m.procCancel != nil {
		m.procCancel()
	}
	m.transition(ctx, StateExpired)
	m.reply(ctx, Outgoing{Text: msgExpired})
	return true
}

// selectPack validates the choice against the catalog. Mutex held.
func (m *Machine) selectPack(ctx context.Context, choice string) {
	for _, name := range m.deps.PackNames {
		if name == choice {
			m.pack = name
			m.beginProcessing(ctx)
			return
		}
	}
	logger.Debug(ctx, "session", "session.invalid_selection",
		slog.String("session", m.key.String()),
		slog.String("payload", logger.SanitizeLimit(choice, 64)),
	)
	m.reply(ctx, Outgoing{Text: msgInvalidPack, Choices: m.deps.PackNames})
}

// beginProcessing moves to Processing and starts the pipeline on its
// own goroutine. Mutex held by the caller; the goroutine re-acquires it
// only when the result is in.
func (m *Machine) beginProcessing(ctx context.Context) {
	m.transition(ctx, StateProcessing)
	m.reply(ctx, Outgoing{Text: msgProcessing})

	// Detach from the inbound update's cancellation but keep its values
	// so request correlation survives into the pipeline logs.
	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.procCancel = cancel

	ref, emoji, pack := m.ref, m.emoji, m.pack
	go m.process(procCtx, ref, emoji, pack)
}

// process runs fetch+normalize and the pack mutation, then applies the
// outcome unless the session ended while it was running.
func (m *Machine) process(ctx context.Context, ref MediaRef, emoji, pack string) {
	start := time.Now()
	var link string
	item, err := m.deps.Processor.Process(ctx, ref)
	if err == nil {
		link, err = m.deps.Packs.AddToPack(ctx, pack, item, emoji)
		if err != nil {
			err = &packFailure{err: err}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateProcessing {
		// Cancelled or expired while the tool ran; drop the result.
		logger.Info(ctx, "session", "session.result_discarded",
			slog.String("session", m.key.String()),
			slog.String("state", string(m.state)),
		)
		return
	}
	m.procCancel = nil

	if err != nil {
		m.transition(ctx, StateFailed)
		m.reply(ctx, Outgoing{Text: failureMessage(err)})
		logger.Warn(ctx, "session", "session.failed",
			slog.String("session", m.key.String()),
			slog.String("pack", pack),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
		)
		return
	}

	m.transition(ctx, StateCompleted)
	done := "Sticker added to " + pack + "."
	if link != "" {
		done += "\n" + link
	}
	m.reply(ctx, Outgoing{Text: done})
	logger.Info(ctx, "session", "session.completed",
		slog.String("session", m.key.String()),
		slog.String("pack", pack),
		slog.String("emoji", emoji),
		slog.Int64("size_bytes", int64(len(item.Payload))),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
}

// transition records the state change and releases the key on terminal
// states. Mutex held.
func (m *Machine) transition(ctx context.Context, next State) {
	prev := m.state
	m.state = next
	m.lastEvent = time.Now()
	logger.Debug(ctx, "session", "session.transition",
		slog.String("session", m.key.String()),
		slog.String("state", string(next)),
		slog.String("payload", string(prev)+">"+string(next)),
	)
	if next.Terminal() && m.onTerminal != nil {
		m.onTerminal(m.key)
	}
}

func (m *Machine) reply(ctx context.Context, out Outgoing) {
	m.deps.Replier.Reply(ctx, m.key, out)
}

// packFailure wraps a pack-mutation error so the failure message can
// forward the collaborator's reason.
type packFailure struct {
	err error
}

func (p *packFailure) Error() string { return p.err.Error() }
func (p *packFailure) Unwrap() error { return p.err }

func failureMessage(err error) string {
	var pf *packFailure
	switch {
	case errors.As(err, &pf):
		return msgFailPack + pf.err.Error()
	case errors.Is(err, media.ErrUnsupportedMedia):
		return msgFailUnsupported
	case errors.Is(err, media.ErrFetchFailure):
		return msgFailFetch
	case errors.Is(err, media.ErrSizeBudgetExceeded):
		return msgFailOversized
	default:
		return msgFailEncoding
	}
}
