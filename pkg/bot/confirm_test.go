package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfirm_BeginRejectsDuplicate(t *testing.T) {
	m := NewConfirmManager()

	assert.True(t, m.Begin("user-1", 7))
	assert.False(t, m.Begin("user-1", 7))

	// Different user or expense is an independent token.
	assert.True(t, m.Begin("user-2", 7))
	assert.True(t, m.Begin("user-1", 8))
}

func TestConfirm_ResolveWithoutBegin(t *testing.T) {
	m := NewConfirmManager()
	assert.False(t, m.Resolve("user-1", 7, true))
}

func TestConfirm_Confirmed(t *testing.T) {
	m := NewConfirmManager()
	m.Begin("user-1", 7)

	done := make(chan Decision, 1)
	go func() {
		done <- m.Await(context.Background(), "user-1", 7, time.Second)
	}()

	// Resolve may race ahead of Await; the buffered channel absorbs it.
	assert.True(t, m.Resolve("user-1", 7, true))
	assert.Equal(t, DecisionConfirmed, <-done)
}

func TestConfirm_Declined(t *testing.T) {
	m := NewConfirmManager()
	m.Begin("user-1", 7)

	assert.True(t, m.Resolve("user-1", 7, false))
	assert.Equal(t, DecisionDeclined, m.Await(context.Background(), "user-1", 7, time.Second))
}

func TestConfirm_AnswerBeforeAwaiterAttaches(t *testing.T) {
	m := NewConfirmManager()
	m.Begin("user-1", 7)

	// The button press can land before the awaiting goroutine starts; the
	// answer must be held for it, not dropped.
	assert.True(t, m.Resolve("user-1", 7, true))

	// Exactly one answer counts per token.
	assert.False(t, m.Resolve("user-1", 7, false))

	assert.Equal(t, DecisionConfirmed, m.Await(context.Background(), "user-1", 7, time.Second))

	// Await consumed the token.
	assert.False(t, m.Resolve("user-1", 7, true))
	assert.True(t, m.Begin("user-1", 7))
}

func TestConfirm_Timeout(t *testing.T) {
	m := NewConfirmManager()
	m.Begin("user-1", 7)

	decision := m.Await(context.Background(), "user-1", 7, 10*time.Millisecond)
	assert.Equal(t, DecisionTimedOut, decision)

	// The token is gone; a late answer is rejected and a new prompt can open.
	assert.False(t, m.Resolve("user-1", 7, true))
	assert.True(t, m.Begin("user-1", 7))
}

func TestConfirm_ContextCanceled(t *testing.T) {
	m := NewConfirmManager()
	m.Begin("user-1", 7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	decision := m.Await(ctx, "user-1", 7, time.Minute)
	assert.Equal(t, DecisionTimedOut, decision)
	assert.False(t, m.Resolve("user-1", 7, true))
}

func TestConfirm_AwaitWithoutBegin(t *testing.T) {
	m := NewConfirmManager()
	assert.Equal(t, DecisionTimedOut, m.Await(context.Background(), "user-1", 7, time.Second))
}
