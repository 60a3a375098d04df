// Package reporting turns invoices into financial summaries, per-property
// breakdowns and time series, and exports them as CSV.
//
// This file implements the Strategy Pattern for expense estimation. Expenses
// default to a fixed share of revenue; the ledger strategy sums booked
// operating expenses instead.
package reporting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"propman/internal/core"
)

// EstimatorKind names an expense strategy.
type EstimatorKind string

const (
	FixedRatioKind EstimatorKind = "fixed_ratio"
	LedgerKind     EstimatorKind = "ledger"
)

// DefaultExpenseRatio is the share of revenue assumed to be spent when no
// booked expenses are available.
var DefaultExpenseRatio = decimal.RequireFromString("0.30")

// Scope identifies what an expense figure is being computed for.
// An empty PropertyID means every property.
type Scope struct {
	PropertyID string
	Range      core.DateRange
}

// ExpenseEstimator is the strategy interface for deriving expenses.
type ExpenseEstimator interface {
	// Expenses returns the expenses for scope and whether the figure is an estimate.
	Expenses(scope Scope, revenue core.Money) (core.Money, bool)
	Kind() EstimatorKind
}

// FixedRatio estimates expenses as revenue × Ratio.
type FixedRatio struct {
	Ratio decimal.Decimal
}

func (f FixedRatio) Expenses(_ Scope, revenue core.Money) (core.Money, bool) {
	m, err := core.MoneyFromDecimal(revenue.Decimal().Mul(f.Ratio))
	if err != nil {
		return core.Money{}, true
	}
	return m, true
}

func (FixedRatio) Kind() EstimatorKind { return FixedRatioKind }

// Ledger sums booked expenses that fall in scope.
type Ledger struct {
	Entries []core.Expense
}

func (l Ledger) Expenses(scope Scope, _ core.Money) (core.Money, bool) {
	f := core.ExpenseFilter{PropertyID: scope.PropertyID, Range: scope.Range}
	var total core.Money
	for _, e := range l.Entries {
		if f.Matches(e) {
			total = total.Add(e.Amount)
		}
	}
	return total, false
}

func (Ledger) Kind() EstimatorKind { return LedgerKind }

// ParseEstimatorKind validates a configured strategy name.
func ParseEstimatorKind(s string) (EstimatorKind, error) {
	switch k := EstimatorKind(s); k {
	case FixedRatioKind, LedgerKind:
		return k, nil
	}
	return "", fmt.Errorf("unknown expense strategy %q", s)
}

func estimate(est ExpenseEstimator, scope Scope, revenue core.Money) (core.Money, bool) {
	if est == nil {
		return core.Money{}, false
	}
	return est.Expenses(scope, revenue)
}
