package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/shahar080/discord-travel-budget-tracker/pkg/api"
)

// AddExpense records a new expense for the user. The location is snapshotted
// at lookup time and the conversion rate is the one in effect now; neither is
// ever recomputed. The returned AddResult distinguishes success from the two
// precondition failures, none of which persist a row.
func (s *Store) AddExpense(ctx context.Context, userID string, amount float64, currencyCode, description string) (api.AddResult, error) {
	location, ok, err := s.GetLocation(ctx, userID)
	if err != nil {
		return api.AddResult{}, err
	}
	if !ok {
		return api.AddResult{Outcome: api.AddNoLocation}, nil
	}

	currencyCode = strings.ToUpper(currencyCode)
	if !s.directory.IsValid(currencyCode) {
		return api.AddResult{Outcome: api.AddInvalidCurrency}, nil
	}

	rate, err := s.rates.Rate(ctx, currencyCode, s.baseCurrency)
	if err != nil {
		return api.AddResult{}, fmt.Errorf("resolving conversion rate: %w", err)
	}
	converted := roundCents(amount * rate)

	expense := api.Expense{
		UserID:          userID,
		Amount:          amount,
		Currency:        currencyCode,
		ConvertedAmount: converted,
		Description:     description,
		Location:        location,
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO expenses (user_id, amount, currency, converted_amount, description, location)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, timestamp
	`, userID, amount, currencyCode, converted, description, location).Scan(&expense.ID, &expense.Timestamp)
	if err != nil {
		return api.AddResult{}, wrapDBErr("inserting expense", err)
	}

	s.logger.Info("expense recorded",
		"user_id", userID,
		"expense_id", expense.ID,
		"amount", amount,
		"currency", currencyCode,
		"converted_amount", converted,
		"location", location,
	)

	return api.AddResult{Outcome: api.AddRecorded, Expense: &expense}, nil
}

// GetExpenseByID returns the expense with the given id if it belongs to the
// user. A missing id and someone else's id are both (nil, nil); the two cases
// are indistinguishable so ids cannot be probed across users.
func (s *Store) GetExpenseByID(ctx context.Context, userID string, id int64) (*api.Expense, error) {
	var e api.Expense
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, amount, currency, converted_amount, description, location, timestamp
		FROM expenses
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.ConvertedAmount, &e.Description, &e.Location, &e.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(fmt.Sprintf("getting expense %d", id), err)
	}
	return &e, nil
}

// DeleteExpense deletes the expense if it exists and belongs to the user.
// It returns false, not an error, when the row is already gone, so concurrent
// deletes of the same id resolve to one true and one false.
func (s *Store) DeleteExpense(ctx context.Context, userID string, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM expenses WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, wrapDBErr(fmt.Sprintf("deleting expense %d", id), err)
	}
	return tag.RowsAffected() > 0, nil
}

// TotalSpent sums the converted amounts of the user's expenses, optionally
// filtered by location (case-insensitive). No matching rows yields 0.
func (s *Store) TotalSpent(ctx context.Context, userID, location string) (float64, error) {
	var total float64
	var err error
	if location != "" {
		err = s.pool.QueryRow(ctx, `
			SELECT COALESCE(SUM(converted_amount), 0)
			FROM expenses
			WHERE user_id = $1 AND LOWER(location) = LOWER($2)
		`, userID, location).Scan(&total)
	} else {
		err = s.pool.QueryRow(ctx, `
			SELECT COALESCE(SUM(converted_amount), 0)
			FROM expenses
			WHERE user_id = $1
		`, userID).Scan(&total)
	}
	if err != nil {
		return 0, wrapDBErr("summing expenses", err)
	}
	return total, nil
}

// Breakdown groups the user's expenses by stored location, preserving
// insertion order within each group. IDs are populated only when includeIDs
// is set, so listings that do not need them cannot leak them into display.
func (s *Store) Breakdown(ctx context.Context, userID, location string, includeIDs bool) (api.Breakdown, error) {
	query := `
		SELECT id, location, amount, currency, converted_amount, timestamp
		FROM expenses
		WHERE user_id = $1
	`
	args := []any{userID}
	if location != "" {
		query += ` AND LOWER(location) = LOWER($2)`
		args = append(args, location)
	}
	query += ` ORDER BY location, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBErr("querying breakdown", err)
	}
	defer rows.Close()

	breakdown := make(api.Breakdown)
	for rows.Next() {
		var entry api.BreakdownEntry
		var id int64
		var loc string
		if err := rows.Scan(&id, &loc, &entry.OriginalAmount, &entry.Currency, &entry.Amount, &entry.Timestamp); err != nil {
			return nil, wrapDBErr("scanning breakdown row", err)
		}
		if includeIDs {
			entry.ID = id
		}
		loc = strings.ToLower(loc)
		entry.Location = loc
		breakdown[loc] = append(breakdown[loc], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("reading breakdown rows", err)
	}

	return breakdown, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
