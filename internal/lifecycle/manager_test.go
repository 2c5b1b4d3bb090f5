package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"throne/internal/lifecycle/lifecycletest"
	"throne/internal/view"
)

func newTestManager(t *testing.T) (*Manager, *lifecycletest.Messenger, *lifecycletest.Pointers, *quartz.Mock) {
	t.Helper()
	msgr := lifecycletest.NewMessenger()
	ptrs := lifecycletest.NewPointers()
	clock := quartz.NewMock(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(msgr, ptrs, clock, 3*time.Second, logger), msgr, ptrs, clock
}

var gameView = view.Message{Text: "game", Actions: view.GameActions}

func TestPublishHappyPath(t *testing.T) {
	m, msgr, ptrs, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Publish(ctx, "c", gameView, nil)
	require.NoError(t, err)
	assert.True(t, first.Pinned)
	assert.Empty(t, first.PreviousID)

	applied := false
	second, err := m.Publish(ctx, "c", gameView, func(context.Context) { applied = true })
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, first.MessageID, second.PreviousID)
	assert.True(t, second.Unpinned)
	assert.True(t, second.Deleted)

	id, ok := ptrs.LastMessageID("c")
	require.True(t, ok)
	assert.Equal(t, second.MessageID, id)
	assert.True(t, msgr.Pinned(second.MessageID))
	assert.False(t, msgr.Live(first.MessageID))
}

func TestPublishSendFailureAbortsEverything(t *testing.T) {
	m, msgr, ptrs, _ := newTestManager(t)
	ctx := context.Background()

	prev, err := m.Publish(ctx, "c", gameView, nil)
	require.NoError(t, err)

	msgr.SetFail(lifecycletest.Failures{Send: true})
	applied := false
	_, err = m.Publish(ctx, "c", gameView, func(context.Context) { applied = true })
	require.ErrorIs(t, err, ErrPublish)
	require.True(t, errors.Is(err, lifecycletest.ErrInjected))

	assert.False(t, applied, "apply must not run when send fails")
	id, _ := ptrs.LastMessageID("c")
	assert.Equal(t, prev.MessageID, id)
	assert.True(t, msgr.Live(prev.MessageID), "previous view must stay")
	assert.False(t, msgr.Deleted(prev.MessageID))
}

func TestPublishPinFailureStillCommits(t *testing.T) {
	m, msgr, ptrs, _ := newTestManager(t)
	ctx := context.Background()

	msgr.SetFail(lifecycletest.Failures{Pin: true})
	out, err := m.Publish(ctx, "c", gameView, nil)
	require.NoError(t, err)
	assert.False(t, out.Pinned)

	id, _ := ptrs.LastMessageID("c")
	assert.Equal(t, out.MessageID, id)
	assert.Contains(t, msgr.Texts(), view.PinWarning())
}

func TestPublishCleanupFailuresAreSwallowed(t *testing.T) {
	m, msgr, ptrs, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Publish(ctx, "c", gameView, nil)
	require.NoError(t, err)

	msgr.SetFail(lifecycletest.Failures{Unpin: true, Delete: true})
	second, err := m.Publish(ctx, "c", gameView, nil)
	require.NoError(t, err)
	assert.False(t, second.Unpinned)
	assert.False(t, second.Deleted)
	assert.Equal(t, first.MessageID, second.PreviousID)

	id, _ := ptrs.LastMessageID("c")
	assert.Equal(t, second.MessageID, id, "pointer follows the newest message even when cleanup fails")
}

func TestPublishSameIDSkipsCleanup(t *testing.T) {
	m, msgr, ptrs, _ := newTestManager(t)
	ctx := context.Background()

	out, err := m.Publish(ctx, "c", gameView, nil)
	require.NoError(t, err)
	ptrs.SetLastMessageID(ctx, "c", "m2")

	// The fake hands out m2 next, colliding with the stored pointer.
	again, err := m.Publish(ctx, "c", gameView, nil)
	require.NoError(t, err)
	assert.Equal(t, "m2", again.MessageID)
	assert.Empty(t, again.PreviousID)
	assert.False(t, msgr.Deleted("m2"))
	assert.True(t, msgr.Live(out.MessageID))
}

func TestRetireClearsPointerBeforeCleanup(t *testing.T) {
	m, msgr, ptrs, _ := newTestManager(t)
	ctx := context.Background()

	out, err := m.Publish(ctx, "c", gameView, nil)
	require.NoError(t, err)

	msgr.SetFail(lifecycletest.Failures{Delete: true})
	id, ok := m.Retire(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, out.MessageID, id)
	_, ok = ptrs.LastMessageID("c")
	assert.False(t, ok)

	_, ok = m.Retire(ctx, "c")
	assert.False(t, ok)
}

func TestNoticeDeletedAfterTTL(t *testing.T) {
	m, msgr, _, clock := newTestManager(t)
	ctx := context.Background()

	m.Notice(ctx, "c", "hello")
	texts := msgr.Texts()
	require.Equal(t, []string{"hello"}, texts)
	assert.False(t, msgr.Deleted("m1"))

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	d, w := clock.AdvanceNext()
	w.MustWait(waitCtx)
	assert.Equal(t, 3*time.Second, d)
	assert.True(t, msgr.Deleted("m1"))
}

func TestNoticeFailuresNeverSurface(t *testing.T) {
	m, msgr, _, clock := newTestManager(t)
	ctx := context.Background()

	msgr.SetFail(lifecycletest.Failures{SendText: true})
	m.Notice(ctx, "c", "lost")
	assert.Empty(t, msgr.Texts())

	msgr.SetFail(lifecycletest.Failures{Delete: true})
	m.Notice(ctx, "c", "sticky")

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, w := clock.AdvanceNext()
	w.MustWait(waitCtx)
	assert.True(t, msgr.Deleted("m1"))
	assert.True(t, msgr.Live("m1"))
}
