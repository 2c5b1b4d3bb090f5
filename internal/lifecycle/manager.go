// Package lifecycle keeps exactly one live, pinned game view per chat and posts
// short-lived notices around it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/quartz"

	"throne/internal/view"
)

const (
	DefaultNoticeTTL = 3 * time.Second

	noticeDeleteTimeout = 10 * time.Second
)

var ErrPublish = errors.New("publish game message")

// Messenger is the chat platform. Every call may fail independently.
type Messenger interface {
	Send(ctx context.Context, chatID string, msg view.Message) (string, error)
	SendText(ctx context.Context, chatID, text string) (string, error)
	Pin(ctx context.Context, chatID, messageID string) error
	Unpin(ctx context.Context, chatID, messageID string) error
	Delete(ctx context.Context, chatID, messageID string) error
}

// Pointers records the live message per chat.
type Pointers interface {
	LastMessageID(chatID string) (string, bool)
	SetLastMessageID(ctx context.Context, chatID, messageID string)
	ClearLastMessageID(ctx context.Context, chatID string)
}

type Manager struct {
	msgr      Messenger
	ptrs      Pointers
	clock     quartz.Clock
	noticeTTL time.Duration
	log       *slog.Logger
}

func NewManager(msgr Messenger, ptrs Pointers, clock quartz.Clock, noticeTTL time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	if noticeTTL <= 0 {
		noticeTTL = DefaultNoticeTTL
	}
	return &Manager{
		msgr:      msgr,
		ptrs:      ptrs,
		clock:     clock,
		noticeTTL: noticeTTL,
		log:       logger,
	}
}

// Published describes how far the best-effort steps of a publish got.
type Published struct {
	MessageID  string
	PreviousID string
	Pinned     bool
	Unpinned   bool
	Deleted    bool
}

// Publish makes msg the chat's live view:
//  1. send the new message; failure aborts with ErrPublish and nothing else runs
//  2. pin it (best-effort)
//  3. run apply, then record the new id as the chat's last message
//  4. unpin and delete the previous message (best-effort)
//
// The pointer is committed before cleanup so it always names a message that exists.
func (m *Manager) Publish(ctx context.Context, chatID string, msg view.Message, apply func(context.Context)) (Published, error) {
	var out Published

	id, err := m.msgr.Send(ctx, chatID, msg)
	if err != nil {
		m.log.Error("game message send failed", "chat_id", chatID, "err", err)
		return out, fmt.Errorf("%w: %w", ErrPublish, err)
	}
	out.MessageID = id

	out.Pinned = m.bestEffort(ctx, "pin", chatID, id, m.msgr.Pin)

	if apply != nil {
		apply(ctx)
	}
	prev, hadPrev := m.ptrs.LastMessageID(chatID)
	m.ptrs.SetLastMessageID(ctx, chatID, id)

	if hadPrev && prev != id {
		out.PreviousID = prev
		out.Unpinned = m.bestEffort(ctx, "unpin", chatID, prev, m.msgr.Unpin)
		out.Deleted = m.bestEffort(ctx, "delete", chatID, prev, m.msgr.Delete)
	}

	if !out.Pinned {
		m.Notice(ctx, chatID, view.PinWarning())
	}
	m.log.Info("game message published", "chat_id", chatID, "message_id", id, "pinned", out.Pinned, "previous_id", out.PreviousID)
	return out, nil
}

// Retire forgets the chat's live view and then best-effort removes it. It reports
// the id that was retired, if any.
func (m *Manager) Retire(ctx context.Context, chatID string) (string, bool) {
	prev, ok := m.ptrs.LastMessageID(chatID)
	if !ok {
		return "", false
	}
	m.ptrs.ClearLastMessageID(ctx, chatID)
	m.bestEffort(ctx, "unpin", chatID, prev, m.msgr.Unpin)
	m.bestEffort(ctx, "delete", chatID, prev, m.msgr.Delete)
	return prev, true
}

// Notice posts a status line and schedules its deletion after the notice TTL.
// Nothing about a notice can fail the caller.
func (m *Manager) Notice(ctx context.Context, chatID, text string) {
	id, err := m.msgr.SendText(ctx, chatID, text)
	if err != nil {
		m.log.Warn("notice send failed", "chat_id", chatID, "err", err)
		return
	}
	detached := context.WithoutCancel(ctx)
	m.clock.AfterFunc(m.noticeTTL, func() {
		delCtx, cancel := context.WithTimeout(detached, noticeDeleteTimeout)
		defer cancel()
		if err := m.msgr.Delete(delCtx, chatID, id); err != nil {
			m.log.Debug("notice delete failed", "chat_id", chatID, "message_id", id, "err", err)
		}
	}, "lifecycle", "notice")
}

// Reply posts a persistent plain message.
func (m *Manager) Reply(ctx context.Context, chatID, text string) error {
	if _, err := m.msgr.SendText(ctx, chatID, text); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

func (m *Manager) bestEffort(ctx context.Context, step, chatID, messageID string, fn func(context.Context, string, string) error) bool {
	if err := fn(ctx, chatID, messageID); err != nil {
		m.log.Warn("best-effort step failed", "step", step, "chat_id", chatID, "message_id", messageID, "err", err)
		return false
	}
	return true
}
