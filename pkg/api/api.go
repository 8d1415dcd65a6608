// Package api defines the core data structures and contracts shared across
// the budget tracker.
package api

import (
	"context"
	"time"
)

// Expense is one recorded spend event. Expenses are immutable after creation;
// the only mutation the store supports is deletion.
type Expense struct {
	ID int64 `json:"id"`
	// UserID is the opaque identity of the owning caller (a Discord user ID).
	UserID string `json:"user_id"`
	// Amount is the original value as entered, in Currency.
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	// ConvertedAmount is Amount converted to the base currency at the rate
	// in effect when the expense was recorded. It is never recomputed.
	ConvertedAmount float64 `json:"converted_amount"`
	Description     string  `json:"description"`
	// Location is a snapshot of the user's location at record time. Changing
	// the location later does not alter past expenses.
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// BreakdownEntry carries the display fields of a single expense inside a
// breakdown group. ID is zero unless the breakdown was requested with IDs.
type BreakdownEntry struct {
	ID             int64     `json:"id,omitempty"`
	Amount         float64   `json:"amount"`
	OriginalAmount float64   `json:"original_amount"`
	Currency       string    `json:"currency"`
	Location       string    `json:"location"`
	Timestamp      time.Time `json:"timestamp"`
}

// Breakdown maps a lower-cased location to its expenses in insertion order.
type Breakdown map[string][]BreakdownEntry

// AddOutcome distinguishes the three possible results of recording an expense.
type AddOutcome int

const (
	// AddRecorded means the expense was persisted.
	AddRecorded AddOutcome = iota
	// AddNoLocation means the user has no location set; nothing was persisted.
	AddNoLocation
	// AddInvalidCurrency means the currency code is not in the directory;
	// nothing was persisted.
	AddInvalidCurrency
)

// AddResult is the tagged result of Store.AddExpense.
// Expense is non-nil only when Outcome is AddRecorded.
type AddResult struct {
	Outcome AddOutcome
	Expense *Expense
}

// RateSource resolves a point-in-time conversion rate between two currencies.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// Store is the contract the command layer depends on. Implementations must be
// safe for concurrent use across callers.
type Store interface {
	SetLocation(ctx context.Context, userID, location string) error
	GetLocation(ctx context.Context, userID string) (string, bool, error)
	AddExpense(ctx context.Context, userID string, amount float64, currency, description string) (AddResult, error)
	GetExpenseByID(ctx context.Context, userID string, id int64) (*Expense, error)
	DeleteExpense(ctx context.Context, userID string, id int64) (bool, error)
	TotalSpent(ctx context.Context, userID, location string) (float64, error)
	Breakdown(ctx context.Context, userID, location string, includeIDs bool) (Breakdown, error)
}
