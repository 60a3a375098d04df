package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func sampleInvoice() Invoice {
	inv := Invoice{
		ID:         "inv-1",
		PropertyID: "p1",
		IssueDate:  NewDate(2024, 3, 1),
		DueDate:    NewDate(2024, 3, 31),
		Status:     InvoiceSent,
		LineItems: []LineItem{
			{Description: "Plumbing", Quantity: decimal.RequireFromString("1.5"), UnitPrice: Money{Cents: 4000}},
			{Description: "Parts", Quantity: decimal.NewFromInt(3), UnitPrice: Money{Cents: 333}},
		},
		Tax: Money{Cents: 1000},
	}
	inv.Recalculate()
	return inv
}

func TestInvoiceRecalculate(t *testing.T) {
	inv := sampleInvoice()
	if inv.LineItems[0].Total.Cents != 6000 || inv.LineItems[1].Total.Cents != 999 {
		t.Fatalf("line totals = %d, %d", inv.LineItems[0].Total.Cents, inv.LineItems[1].Total.Cents)
	}
	if inv.Subtotal.Cents != 6999 || inv.Total.Cents != 7999 {
		t.Fatalf("subtotal=%d total=%d", inv.Subtotal.Cents, inv.Total.Cents)
	}
	if err := inv.Validate(); err != nil {
		t.Fatalf("expected valid invoice, got %v", err)
	}
}

func TestInvoiceValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Invoice)
		want   error
	}{
		{"missing property", func(i *Invoice) { i.PropertyID = " " }, ErrEmptyPropertyID},
		{"missing issue date", func(i *Invoice) { i.IssueDate = Date{} }, ErrMissingIssueDate},
		{"due before issue", func(i *Invoice) { i.DueDate = NewDate(2024, 2, 1) }, ErrDueBeforeIssue},
		{"bad status", func(i *Invoice) { i.Status = "void" }, ErrInvalidStatus},
		{"no lines", func(i *Invoice) { i.LineItems = nil }, ErrNoLineItems},
		{"zero quantity", func(i *Invoice) { i.LineItems[0].Quantity = decimal.Zero }, ErrInvalidLineItem},
		{"tampered total", func(i *Invoice) { i.Total.Cents++ }, ErrTotalsMismatch},
		{"tampered line", func(i *Invoice) { i.LineItems[1].Total.Cents = 1 }, ErrTotalsMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := sampleInvoice()
			tt.mutate(&inv)
			if err := inv.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInvoiceTransition(t *testing.T) {
	tests := []struct {
		from, to InvoiceStatus
		ok       bool
	}{
		{InvoiceDraft, InvoiceSent, true},
		{InvoiceDraft, InvoicePaid, false},
		{InvoiceSent, InvoicePaid, true},
		{InvoiceSent, InvoiceOverdue, true},
		{InvoiceOverdue, InvoicePaid, true},
		{InvoicePaid, InvoiceSent, false},
		{InvoiceOverdue, InvoiceDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			inv := sampleInvoice()
			inv.Status = tt.from
			err := inv.Transition(tt.to, NewDate(2024, 4, 2))
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("err = %v, want ErrInvalidTransition", err)
			}
			if tt.ok && tt.to == InvoicePaid && !inv.PaidDate.Equal(NewDate(2024, 4, 2)) {
				t.Fatalf("paid date not stamped: %v", inv.PaidDate)
			}
		})
	}
}

func TestInvoiceIsPastDue(t *testing.T) {
	inv := sampleInvoice()
	if inv.IsPastDue(NewDate(2024, 3, 31)) {
		t.Error("due today is not past due")
	}
	if !inv.IsPastDue(NewDate(2024, 4, 1)) {
		t.Error("expected past due")
	}
	inv.Status = InvoicePaid
	if inv.IsPastDue(NewDate(2024, 5, 1)) {
		t.Error("paid invoice is never past due")
	}
}

func TestFilterInvoices(t *testing.T) {
	invs := []Invoice{
		{ID: "a", PropertyID: "p1", IssueDate: NewDate(2024, 1, 1)},
		{ID: "b", PropertyID: "p2", IssueDate: NewDate(2024, 1, 15)},
		{ID: "c", PropertyID: "p1", IssueDate: NewDate(2024, 1, 31)},
		{ID: "d", PropertyID: "p10", IssueDate: NewDate(2024, 1, 20)},
	}
	got := FilterInvoices(invs, InvoiceFilter{
		PropertyID: "p1",
		Range:      DateRange{From: NewDate(2024, 1, 1), To: NewDate(2024, 1, 31)},
	})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("got %+v", got)
	}
	got = FilterInvoices(invs, InvoiceFilter{Range: DateRange{From: NewDate(2024, 1, 2), To: NewDate(2024, 1, 20)}})
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "d" {
		t.Fatalf("range only: got %+v", got)
	}
}
