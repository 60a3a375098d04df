// Package memory is an in-process implementation of the store ports, used by
// tests and the default development backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"propman/internal/core"
	"propman/internal/store"
)

type Store struct {
	mu          sync.Mutex
	version     int64
	invoices    map[string]core.Invoice
	properties  map[string]core.Property
	providers   map[string]core.ServiceProvider
	users       map[string]core.UserProfile
	expenses    []core.Expense
	credentials map[string]core.Credential // keyed by lower-cased email
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		invoices:    make(map[string]core.Invoice),
		properties:  make(map[string]core.Property),
		providers:   make(map[string]core.ServiceProvider),
		users:       make(map[string]core.UserProfile),
		credentials: make(map[string]core.Credential),
	}
}

func (s *Store) Close() error { return nil }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrNotFound)
}

func conflict(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrConflict)
}

// Invoices

func (s *Store) ListInvoices(_ context.Context, f core.InvoiceFilter) ([]core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		if f.Matches(inv) {
			out = append(out, cloneInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.Before(out[j].IssueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return core.Invoice{}, notFound("invoice", id)
	}
	return cloneInvoice(inv), nil
}

func (s *Store) InvoiceSetVersion(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, nil
}

func (s *Store) CreateInvoice(_ context.Context, inv core.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; ok {
		return conflict("invoice", inv.ID)
	}
	s.invoices[inv.ID] = cloneInvoice(inv)
	s.version++
	return nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv core.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		return notFound("invoice", inv.ID)
	}
	s.invoices[inv.ID] = cloneInvoice(inv)
	s.version++
	return nil
}

func cloneInvoice(inv core.Invoice) core.Invoice {
	inv.LineItems = append([]core.LineItem(nil), inv.LineItems...)
	return inv
}

// Properties

func (s *Store) ListProperties(_ context.Context) ([]core.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Property, 0, len(s.properties))
	for _, p := range s.properties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetProperty(_ context.Context, id string) (core.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[id]
	if !ok {
		return core.Property{}, notFound("property", id)
	}
	return p, nil
}

func (s *Store) CreateProperty(_ context.Context, p core.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[p.ID]; ok {
		return conflict("property", p.ID)
	}
	s.properties[p.ID] = p
	return nil
}

func (s *Store) UpdateProperty(_ context.Context, p core.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[p.ID]; !ok {
		return notFound("property", p.ID)
	}
	s.properties[p.ID] = p
	return nil
}

func (s *Store) DeleteProperty(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[id]; !ok {
		return notFound("property", id)
	}
	delete(s.properties, id)
	return nil
}

// Service providers

func (s *Store) CreateProvider(_ context.Context, p core.ServiceProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[p.ID]; ok {
		return conflict("service provider", p.ID)
	}
	s.providers[p.ID] = p
	return nil
}

func (s *Store) GetProvider(_ context.Context, id string) (core.ServiceProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok {
		return core.ServiceProvider{}, notFound("service provider", id)
	}
	return p, nil
}

func (s *Store) ListProviders(_ context.Context) ([]core.ServiceProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ServiceProvider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessName < out[j].BusinessName })
	return out, nil
}

func (s *Store) UpdateProvider(_ context.Context, p core.ServiceProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[p.ID]; !ok {
		return notFound("service provider", p.ID)
	}
	s.providers[p.ID] = p
	return nil
}

func (s *Store) DeleteProvider(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[id]; !ok {
		return notFound("service provider", id)
	}
	delete(s.providers, id)
	return nil
}

// User profiles

func (s *Store) CreateUserProfile(_ context.Context, u core.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return conflict("user", u.ID)
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUserProfile(_ context.Context, id string) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.UserProfile{}, notFound("user", id)
	}
	return u, nil
}

func (s *Store) UpdateUserProfile(_ context.Context, u core.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return notFound("user", u.ID)
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) DeleteUserProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFound("user", id)
	}
	delete(s.users, id)
	return nil
}

// Expenses

func (s *Store) ListExpenses(_ context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.expenses {
		if existing.ID == e.ID {
			return conflict("expense", e.ID)
		}
	}
	s.expenses = append(s.expenses, e)
	return nil
}

// Credentials

func (s *Store) CreateCredential(_ context.Context, c core.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(c.Email)
	if _, ok := s.credentials[key]; ok {
		return conflict("credential", c.Email)
	}
	s.credentials[key] = c
	return nil
}

func (s *Store) GetCredentialByEmail(_ context.Context, email string) (core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[strings.ToLower(email)]
	if !ok {
		return core.Credential{}, notFound("credential", email)
	}
	return c, nil
}

func (s *Store) DeleteCredential(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.credentials {
		if c.UID == uid {
			delete(s.credentials, key)
			return nil
		}
	}
	return notFound("credential", uid)
}

// CredentialCount is used by tests to check rollbacks.
func (s *Store) CredentialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.credentials)
}
