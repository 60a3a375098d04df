package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

type (
	LineItem struct {
		Description string          `json:"description"`
		Quantity    decimal.Decimal `json:"quantity"`
		UnitPrice   Money           `json:"unitPrice"`
		Total       Money           `json:"total"`
	}

	Invoice struct {
		ID         string        `json:"id"`
		Number     string        `json:"number,omitempty"`
		PropertyID string        `json:"propertyId"`
		ProviderID string        `json:"providerId,omitempty"`
		IssueDate  Date          `json:"issueDate"`
		DueDate    Date          `json:"dueDate"`
		PaidDate   Date          `json:"paidDate"`
		Status     InvoiceStatus `json:"status"`
		LineItems  []LineItem    `json:"lineItems"`
		Subtotal   Money         `json:"subtotal"`
		Tax        Money         `json:"tax"`
		Total      Money         `json:"total"`
		Notes      string        `json:"notes,omitempty"`
		CreatedAt  time.Time     `json:"createdAt"`
		UpdatedAt  time.Time     `json:"updatedAt"`
	}

	// InvoiceFilter selects invoices. Empty fields match everything.
	InvoiceFilter struct {
		PropertyID string
		Range      DateRange
		Status     InvoiceStatus
	}
)

var (
	ErrEmptyPropertyID    = errors.New("empty property id")
	ErrMissingIssueDate   = errors.New("missing issue date")
	ErrDueBeforeIssue     = errors.New("due date before issue date")
	ErrInvalidStatus      = errors.New("invalid invoice status")
	ErrNoLineItems        = errors.New("invoice has no line items")
	ErrInvalidLineItem    = errors.New("invalid line item")
	ErrTotalsMismatch     = errors.New("invoice totals do not match line items")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// invoiceTransitions lists the statuses reachable from each status.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:   {InvoiceSent},
	InvoiceSent:    {InvoicePaid, InvoiceOverdue},
	InvoiceOverdue: {InvoicePaid},
	InvoicePaid:    nil,
}

func (s InvoiceStatus) Valid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

// CanTransition reports whether an invoice may move from s to next.
func (s InvoiceStatus) CanTransition(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ComputeTotal returns quantity × unit price rounded half-up to the cent.
func (li LineItem) ComputeTotal() Money {
	m, err := MoneyFromDecimal(li.Quantity.Mul(li.UnitPrice.Decimal()))
	if err != nil {
		return Money{}
	}
	return m
}

func (li LineItem) Validate() error {
	if strings.TrimSpace(li.Description) == "" {
		return fmt.Errorf("%w: empty description", ErrInvalidLineItem)
	}
	if len(li.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if !li.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidLineItem)
	}
	if li.UnitPrice.Cents < 0 {
		return fmt.Errorf("%w: negative unit price", ErrInvalidLineItem)
	}
	return nil
}

// Recalculate derives every line total, the subtotal and the invoice total.
func (inv *Invoice) Recalculate() {
	var subtotal Money
	for i := range inv.LineItems {
		inv.LineItems[i].Total = inv.LineItems[i].ComputeTotal()
		subtotal = subtotal.Add(inv.LineItems[i].Total)
	}
	inv.Subtotal = subtotal
	inv.Total = subtotal.Add(inv.Tax)
}

func (inv Invoice) Validate() error {
	if strings.TrimSpace(inv.PropertyID) == "" {
		return ErrEmptyPropertyID
	}
	if inv.IssueDate.IsZero() {
		return ErrMissingIssueDate
	}
	if !inv.DueDate.IsZero() && inv.DueDate.Before(inv.IssueDate) {
		return ErrDueBeforeIssue
	}
	if !inv.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(inv.Status))
	}
	if len(inv.LineItems) == 0 {
		return ErrNoLineItems
	}
	var subtotal Money
	for i, li := range inv.LineItems {
		if err := li.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if li.Total != li.ComputeTotal() {
			return fmt.Errorf("line %d: %w", i+1, ErrTotalsMismatch)
		}
		subtotal = subtotal.Add(li.Total)
	}
	if inv.Tax.Cents < 0 {
		return fmt.Errorf("%w: negative tax", ErrInvalidAmount)
	}
	if inv.Subtotal != subtotal || inv.Total != inv.Subtotal.Add(inv.Tax) {
		return ErrTotalsMismatch
	}
	return nil
}

// Transition moves the invoice to next, stamping the paid date when it becomes paid.
func (inv *Invoice) Transition(next InvoiceStatus, on Date) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(next))
	}
	if !inv.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, next)
	}
	inv.Status = next
	if next == InvoicePaid {
		inv.PaidDate = on
	}
	return nil
}

// IsPastDue reports whether a sent invoice's due date is before today.
func (inv Invoice) IsPastDue(today Date) bool {
	return inv.Status == InvoiceSent && !inv.DueDate.IsZero() && inv.DueDate.Before(today)
}

// Matches reports whether the invoice passes the filter. Property match is exact
// and the date range is inclusive on the issue date.
func (f InvoiceFilter) Matches(inv Invoice) bool {
	if f.PropertyID != "" && inv.PropertyID != f.PropertyID {
		return false
	}
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	return f.Range.Contains(inv.IssueDate)
}

// FilterInvoices returns the invoices matching f, preserving order.
func FilterInvoices(invoices []Invoice, f InvoiceFilter) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if f.Matches(inv) {
			out = append(out, inv)
		}
	}
	return out
}
