package bot

import (
	"context"
	"sync"
	"time"
)

// DefaultConfirmTimeout is how long a deletion confirmation stays open.
const DefaultConfirmTimeout = 30 * time.Second

// Decision is the resolution of a pending confirmation. Exactly one decision
// is reached per token; the token is discarded afterward.
type Decision int

const (
	// DecisionConfirmed means the user pressed Yes within the window.
	DecisionConfirmed Decision = iota
	// DecisionDeclined means the user pressed No within the window.
	DecisionDeclined
	// DecisionTimedOut means the window elapsed without a response.
	DecisionTimedOut
)

type confirmKey struct {
	userID    string
	expenseID int64
}

// ConfirmManager tracks short-lived confirmation tokens, each scoped to a
// (caller, target id) pair. Safe for concurrent use.
type ConfirmManager struct {
	mu      sync.Mutex
	pending map[confirmKey]chan bool
}

// NewConfirmManager creates an empty confirmation manager.
func NewConfirmManager() *ConfirmManager {
	return &ConfirmManager{pending: make(map[confirmKey]chan bool)}
}

// Begin opens a confirmation token for the pair. It returns false if one is
// already pending, so a user cannot stack prompts for the same expense.
func (m *ConfirmManager) Begin(userID string, expenseID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := confirmKey{userID: userID, expenseID: expenseID}
	if _, exists := m.pending[key]; exists {
		return false
	}
	m.pending[key] = make(chan bool, 1)
	return true
}

// Resolve delivers the user's answer to a pending token. The token stays
// registered so an awaiter that has not attached yet still receives the
// answer through the buffered channel; only Await removes tokens. Resolve
// returns false if no token is pending or it was already answered.
func (m *ConfirmManager) Resolve(userID string, expenseID int64, confirmed bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := confirmKey{userID: userID, expenseID: expenseID}
	ch, exists := m.pending[key]
	if !exists {
		return false
	}
	select {
	case ch <- confirmed:
		return true
	default:
		return false
	}
}

// Await blocks until the token is answered, the timeout elapses, or the
// context is canceled. The token is discarded on every path. An answer
// delivered before Await attaches is still observed, never dropped.
func (m *ConfirmManager) Await(ctx context.Context, userID string, expenseID int64, timeout time.Duration) Decision {
	m.mu.Lock()
	key := confirmKey{userID: userID, expenseID: expenseID}
	ch, exists := m.pending[key]
	m.mu.Unlock()

	if !exists {
		return DecisionTimedOut
	}

	defer func() {
		m.mu.Lock()
		delete(m.pending, key)
		m.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case confirmed := <-ch:
		if confirmed {
			return DecisionConfirmed
		}
		return DecisionDeclined
	case <-timer.C:
	case <-ctx.Done():
	}
	return DecisionTimedOut
}
