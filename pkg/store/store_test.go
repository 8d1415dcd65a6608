package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahar080/discord-travel-budget-tracker/pkg/api"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/currency"
)

// fixedRates returns a fixed rate per source currency, so conversions in the
// tests are deterministic.
type fixedRates struct {
	rates map[string]float64
	err   error
}

func (f *fixedRates) Rate(_ context.Context, from, _ string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.rates[from], nil
}

// newTestStore connects to the database named by TEST_DATABASE_URL, or skips
// the test when it is not set.
func newTestStore(t *testing.T, rates api.RateSource) *Store {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	if rates == nil {
		rates = &fixedRates{rates: map[string]float64{"USD": 3.65, "EUR": 4.0, "ILS": 1.0}}
	}
	directory := currency.NewDirectory([]string{"USD", "EUR", "ILS"})

	s, err := New(context.Background(), Config{
		DatabaseURL:  dbURL,
		BaseCurrency: "ILS",
		MaxPoolSize:  4,
	}, rates, directory, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

// testUserID returns a unique user id per test so runs do not interfere.
func testUserID(t *testing.T) string {
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestNew_ConnectionFailure(t *testing.T) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	_, err := New(context.Background(), Config{
		DatabaseURL:  "postgres://nobody@nonexistent-host:5432/nothing",
		BaseCurrency: "ILS",
	}, &fixedRates{}, currency.NewDirectory(nil), nil)
	require.Error(t, err)
}

func TestLocation_SetGetUpsert(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	userID := testUserID(t)

	_, ok, err := s.GetLocation(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetLocation(ctx, userID, "tokyo"))

	location, ok, err := s.GetLocation(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tokyo", location)

	// Setting again replaces, it does not duplicate.
	require.NoError(t, s.SetLocation(ctx, userID, "osaka"))

	location, ok, err = s.GetLocation(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "osaka", location)
}

func TestAddExpense_NoLocation(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	result, err := s.AddExpense(ctx, testUserID(t), 100, "USD", "dinner")
	require.NoError(t, err)
	assert.Equal(t, api.AddNoLocation, result.Outcome)
	assert.Nil(t, result.Expense)
}

func TestAddExpense_InvalidCurrency(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	userID := testUserID(t)

	require.NoError(t, s.SetLocation(ctx, userID, "tokyo"))

	result, err := s.AddExpense(ctx, userID, 100, "XYZ", "dinner")
	require.NoError(t, err)
	assert.Equal(t, api.AddInvalidCurrency, result.Outcome)

	total, err := s.TotalSpent(ctx, userID, "")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAddExpense_RecordsConverted(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	userID := testUserID(t)

	require.NoError(t, s.SetLocation(ctx, userID, "tokyo"))

	result, err := s.AddExpense(ctx, userID, 100, "usd", "dinner")
	require.NoError(t, err)
	require.Equal(t, api.AddRecorded, result.Outcome)
	require.NotNil(t, result.Expense)

	e := result.Expense
	assert.NotZero(t, e.ID)
	assert.Equal(t, "USD", e.Currency)
	assert.Equal(t, 100.0, e.Amount)
	assert.Equal(t, 365.0, e.ConvertedAmount)
	assert.Equal(t, "tokyo", e.Location)
	assert.False(t, e.Timestamp.IsZero())
}

func TestAddExpense_RateFailure(t *testing.T) {
	rateErr := errors.New("rates down")
	s := newTestStore(t, &fixedRates{err: rateErr})
	ctx := context.Background()
	userID := testUserID(t)

	require.NoError(t, s.SetLocation(ctx, userID, "tokyo"))

	_, err := s.AddExpense(ctx, userID, 100, "USD", "dinner")
	require.ErrorIs(t, err, rateErr)

	// Nothing was persisted.
	total, err := s.TotalSpent(ctx, userID, "")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAddExpense_LocationSnapshot(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	userID := testUserID(t)

	require.NoError(t, s.SetLocation(ctx, userID, "tokyo"))
	result, err := s.AddExpense(ctx, userID, 10, "ILS", "coffee")
	require.NoError(t, err)
	require.Equal(t, api.AddRecorded, result.Outcome)

	// Moving does not rewrite past expenses.
	require.NoError(t, s.SetLocation(ctx, userID, "osaka"))

	e, err := s.GetExpenseByID(ctx, userID, result.Expense.ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "tokyo", e.Location)
}

func TestTotalSpent(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	userID := testUserID(t)

	require.NoError(t, s.SetLocation(ctx, userID, "tokyo"))
	mustAdd(t, s, userID, 100, "USD", "dinner") // 365.00
	mustAdd(t, s, userID, 50, "ILS", "snack")   // 50.00

	require.NoError(t, s.SetLocation(ctx, userID, "osaka"))
	mustAdd(t, s, userID, 10, "EUR", "train") // 40.00

	total, err := s.TotalSpent(ctx, userID, "")
	require.NoError(t, err)
	assert.InDelta(t, 455.0, total, 1e-9)

	total, err = s.TotalSpent(ctx, userID, "Tokyo")
	require.NoError(t, err)
	assert.InDelta(t, 415.0, total, 1e-9)

	total, err = s.TotalSpent(ctx, userID, "nowhere")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestBreakdown(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	userID := testUserID(t)

	require.NoError(t, s.SetLocation(ctx, userID, "Tokyo"))
	mustAdd(t, s, userID, 100, "USD", "dinner")
	require.NoError(t, s.SetLocation(ctx, userID, "osaka"))
	mustAdd(t, s, userID, 10, "EUR", "train")

	breakdown, err := s.Breakdown(ctx, userID, "", false)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)

	// Keys are lower-cased regardless of how the location was stored.
	require.Contains(t, breakdown, "tokyo")
	require.Contains(t, breakdown, "osaka")

	tokyo := breakdown["tokyo"]
	require.Len(t, tokyo, 1)
	assert.Equal(t, 365.0, tokyo[0].Amount)
	assert.Equal(t, 100.0, tokyo[0].OriginalAmount)
	assert.Equal(t, "USD", tokyo[0].Currency)
	assert.Zero(t, tokyo[0].ID)

	// IDs show up only when asked for.
	withIDs, err := s.Breakdown(ctx, userID, "", true)
	require.NoError(t, err)
	assert.NotZero(t, withIDs["tokyo"][0].ID)

	// Location filter is case-insensitive.
	filtered, err := s.Breakdown(ctx, userID, "TOKYO", false)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Contains(t, filtered, "tokyo")
}

func TestGetExpenseByID_Ownership(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	owner := testUserID(t)
	other := owner + "-other"

	require.NoError(t, s.SetLocation(ctx, owner, "tokyo"))
	result := mustAdd(t, s, owner, 100, "USD", "dinner")

	e, err := s.GetExpenseByID(ctx, owner, result.Expense.ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, owner, e.UserID)

	// Someone else's id and a missing id are indistinguishable.
	e, err = s.GetExpenseByID(ctx, other, result.Expense.ID)
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = s.GetExpenseByID(ctx, owner, -1)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestDeleteExpense(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	owner := testUserID(t)
	other := owner + "-other"

	require.NoError(t, s.SetLocation(ctx, owner, "tokyo"))
	result := mustAdd(t, s, owner, 100, "USD", "dinner")
	id := result.Expense.ID

	// Another user cannot delete it.
	deleted, err := s.DeleteExpense(ctx, other, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteExpense(ctx, owner, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	// The second delete of the same id reports nothing to delete.
	deleted, err = s.DeleteExpense(ctx, owner, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	e, err := s.GetExpenseByID(ctx, owner, id)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func mustAdd(t *testing.T, s *Store, userID string, amount float64, currencyCode, description string) api.AddResult {
	t.Helper()
	result, err := s.AddExpense(context.Background(), userID, amount, currencyCode, description)
	require.NoError(t, err)
	require.Equal(t, api.AddRecorded, result.Outcome)
	return result
}

func TestWrapDBErr(t *testing.T) {
	err := wrapDBErr("querying", errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrUnavailable)

	// Server-reported errors are bugs, not outages.
	pgErr := &pgconn.PgError{Code: "23505"}
	err = wrapDBErr("inserting", pgErr)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, pgErr)

	err = wrapDBErr("querying", context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestRoundCents(t *testing.T) {
	assert.InDelta(t, 365.0, roundCents(100*3.65), 1e-9)
	assert.InDelta(t, 1.23, roundCents(1.2312), 1e-9)
	assert.InDelta(t, 4.57, roundCents(4.567), 1e-9)
}
