package core

import (
	"errors"
	"strings"
	"time"
)

// Expense is an operating cost booked against a property.
type Expense struct {
	ID          string    `json:"id"`
	PropertyID  string    `json:"propertyId"`
	Date        Date      `json:"date"`
	Description string    `json:"description"`
	Amount      Money     `json:"amount"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ExpenseFilter selects ledger entries. Empty fields match everything.
type ExpenseFilter struct {
	PropertyID string
	Range      DateRange
}

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

func (e Expense) Validate() error {
	if strings.TrimSpace(e.PropertyID) == "" {
		return ErrEmptyPropertyID
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (f ExpenseFilter) Matches(e Expense) bool {
	if f.PropertyID != "" && e.PropertyID != f.PropertyID {
		return false
	}
	return f.Range.Contains(e.Date)
}
