// Package store declares the document-store ports the application depends on.
// Collections: users, serviceProviders, properties, invoices, expenses and the
// local identity provider's credentials.
package store

import (
	"context"
	"errors"

	"propman/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Ports for outbound adapters.
type (
	InvoiceReader interface {
		// ListInvoices returns invoices matching f ordered by issue date.
		ListInvoices(ctx context.Context, f core.InvoiceFilter) ([]core.Invoice, error)
		GetInvoice(ctx context.Context, id string) (core.Invoice, error)
		// InvoiceSetVersion changes whenever any invoice is written.
		InvoiceSetVersion(ctx context.Context) (int64, error)
	}

	InvoiceWriter interface {
		CreateInvoice(ctx context.Context, inv core.Invoice) error
		UpdateInvoice(ctx context.Context, inv core.Invoice) error
	}

	PropertyReader interface {
		ListProperties(ctx context.Context) ([]core.Property, error)
		GetProperty(ctx context.Context, id string) (core.Property, error)
	}

	PropertyWriter interface {
		CreateProperty(ctx context.Context, p core.Property) error
		UpdateProperty(ctx context.Context, p core.Property) error
		DeleteProperty(ctx context.Context, id string) error
	}

	ProviderStore interface {
		CreateProvider(ctx context.Context, p core.ServiceProvider) error
		GetProvider(ctx context.Context, id string) (core.ServiceProvider, error)
		ListProviders(ctx context.Context) ([]core.ServiceProvider, error)
		UpdateProvider(ctx context.Context, p core.ServiceProvider) error
		DeleteProvider(ctx context.Context, id string) error
	}

	UserStore interface {
		CreateUserProfile(ctx context.Context, u core.UserProfile) error
		GetUserProfile(ctx context.Context, id string) (core.UserProfile, error)
		UpdateUserProfile(ctx context.Context, u core.UserProfile) error
		DeleteUserProfile(ctx context.Context, id string) error
	}

	ExpenseLedger interface {
		ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) error
	}

	CredentialStore interface {
		CreateCredential(ctx context.Context, c core.Credential) error
		GetCredentialByEmail(ctx context.Context, email string) (core.Credential, error)
		DeleteCredential(ctx context.Context, uid string) error
	}

	// Store is everything a backend provides.
	Store interface {
		InvoiceReader
		InvoiceWriter
		PropertyReader
		PropertyWriter
		ProviderStore
		UserStore
		ExpenseLedger
		CredentialStore
		Close() error
	}
)
