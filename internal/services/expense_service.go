package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"propman/internal/core"
	"propman/internal/store"
)

// ExpenseStore is the slice of the document store the expense ledger needs.
type ExpenseStore interface {
	store.ExpenseLedger
	store.PropertyReader
}

// ExpenseService books operating expenses against properties.
type ExpenseService struct {
	store ExpenseStore
	now   func() time.Time
}

func NewExpenseService(st ExpenseStore) *ExpenseService {
	return &ExpenseService{store: st, now: time.Now}
}

// CreateExpense validates e, assigns an id and saves it.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.store.GetProperty(ctx, e.PropertyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.Expense{}, fmt.Errorf("%w: %q", ErrUnknownProperty, e.PropertyID)
		}
		return core.Expense{}, fmt.Errorf("get property: %w", err)
	}

	e.ID = uuid.NewString()
	e.CreatedAt = s.now().UTC()
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense booked",
		"expense_id", e.ID,
		"property_id", e.PropertyID,
		"amount_cents", e.Amount.Cents)
	return e, nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, f)
}
