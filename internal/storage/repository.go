// Package storage is the SQLite backend of the store ports. Every collection
// is a table of JSON documents plus the few columns queries filter on.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"propman/internal/core"
	"propman/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps writes from failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := MigrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite store ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrNotFound)
}

func conflict(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrConflict)
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

// getDoc loads the document with the given id from table into dst.
func (r *SQLiteRepository) getDoc(ctx context.Context, table, kind, id string, dst any) error {
	var doc string
	err := r.db.QueryRowContext(ctx, "SELECT doc FROM "+table+" WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(kind, id)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(doc), dst); err != nil {
		return fmt.Errorf("decode %s %q: %w", kind, id, err)
	}
	return nil
}

// listDocs runs query and decodes one document per row.
func listDocs[T any](ctx context.Context, db *sql.DB, kind, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// affectedOne maps a write that touched no row to err.
func affectedOne(res sql.Result, err error, onZero error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return onZero
	}
	return nil
}

func deleteDoc(ctx context.Context, ex execer, table, kind, id string) error {
	res, err := ex.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	return wrapWrite("delete "+kind, affectedOne(res, err, notFound(kind, id)))
}

// Invoices

func (r *SQLiteRepository) ListInvoices(ctx context.Context, f core.InvoiceFilter) ([]core.Invoice, error) {
	var (
		where []string
		args  []any
	)
	if f.PropertyID != "" {
		where, args = append(where, "property_id = ?"), append(args, f.PropertyID)
	}
	if f.Status != "" {
		where, args = append(where, "status = ?"), append(args, string(f.Status))
	}
	if !f.Range.From.IsZero() {
		where, args = append(where, "issue_date >= ?"), append(args, f.Range.From.String())
	}
	if !f.Range.To.IsZero() {
		where, args = append(where, "issue_date <= ?"), append(args, f.Range.To.String())
	}

	q := "SELECT doc FROM invoices"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY issue_date, id"
	return listDocs[core.Invoice](ctx, r.db, "invoices", q, args...)
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	var inv core.Invoice
	err := r.getDoc(ctx, "invoices", "invoice", id, &inv)
	return inv, err
}

func (r *SQLiteRepository) InvoiceSetVersion(ctx context.Context) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'invoice_set_version'").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read invoice set version: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) error {
	doc, err := encode(inv)
	if err != nil {
		return err
	}
	return r.writeInvoice(ctx, "create invoice", conflict("invoice", inv.ID),
		`INSERT INTO invoices (id, property_id, issue_date, status, doc)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		inv.ID, inv.PropertyID, inv.IssueDate.String(), string(inv.Status), doc)
}

func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, inv core.Invoice) error {
	doc, err := encode(inv)
	if err != nil {
		return err
	}
	return r.writeInvoice(ctx, "update invoice", notFound("invoice", inv.ID),
		`UPDATE invoices SET property_id = ?, issue_date = ?, status = ?, doc = ?,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		inv.PropertyID, inv.IssueDate.String(), string(inv.Status), doc, inv.ID)
}

// writeInvoice runs the insert or update and bumps the invoice set version in
// the same transaction.
func (r *SQLiteRepository) writeInvoice(ctx context.Context, op string, onZero error, query string, args ...any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err := wrapWrite(op, affectedOne(res, err, onZero)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE meta SET value = value + 1 WHERE key = 'invoice_set_version'"); err != nil {
		return fmt.Errorf("bump invoice set version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit invoice: %w", err)
	}
	return nil
}

// Properties

func (r *SQLiteRepository) ListProperties(ctx context.Context) ([]core.Property, error) {
	return listDocs[core.Property](ctx, r.db, "properties", "SELECT doc FROM properties ORDER BY id")
}

func (r *SQLiteRepository) GetProperty(ctx context.Context, id string) (core.Property, error) {
	var p core.Property
	err := r.getDoc(ctx, "properties", "property", id, &p)
	return p, err
}

func (r *SQLiteRepository) CreateProperty(ctx context.Context, p core.Property) error {
	doc, err := encode(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO properties (id, doc) VALUES (?, ?) ON CONFLICT(id) DO NOTHING", p.ID, doc)
	return wrapWrite("create property", affectedOne(res, err, conflict("property", p.ID)))
}

func (r *SQLiteRepository) UpdateProperty(ctx context.Context, p core.Property) error {
	doc, err := encode(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE properties SET doc = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", doc, p.ID)
	return wrapWrite("update property", affectedOne(res, err, notFound("property", p.ID)))
}

func (r *SQLiteRepository) DeleteProperty(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.db, "properties", "property", id)
}

// Service providers

func (r *SQLiteRepository) CreateProvider(ctx context.Context, p core.ServiceProvider) error {
	doc, err := encode(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO service_providers (id, business_name, doc) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING",
		p.ID, p.BusinessName, doc)
	return wrapWrite("create service provider", affectedOne(res, err, conflict("service provider", p.ID)))
}

func (r *SQLiteRepository) GetProvider(ctx context.Context, id string) (core.ServiceProvider, error) {
	var p core.ServiceProvider
	err := r.getDoc(ctx, "service_providers", "service provider", id, &p)
	return p, err
}

func (r *SQLiteRepository) ListProviders(ctx context.Context) ([]core.ServiceProvider, error) {
	return listDocs[core.ServiceProvider](ctx, r.db, "service providers",
		"SELECT doc FROM service_providers ORDER BY business_name, id")
}

func (r *SQLiteRepository) UpdateProvider(ctx context.Context, p core.ServiceProvider) error {
	doc, err := encode(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE service_providers SET business_name = ?, doc = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		p.BusinessName, doc, p.ID)
	return wrapWrite("update service provider", affectedOne(res, err, notFound("service provider", p.ID)))
}

func (r *SQLiteRepository) DeleteProvider(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.db, "service_providers", "service provider", id)
}

// User profiles

func (r *SQLiteRepository) CreateUserProfile(ctx context.Context, u core.UserProfile) error {
	doc, err := encode(u)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, doc) VALUES (?, ?) ON CONFLICT(id) DO NOTHING", u.ID, doc)
	return wrapWrite("create user", affectedOne(res, err, conflict("user", u.ID)))
}

func (r *SQLiteRepository) GetUserProfile(ctx context.Context, id string) (core.UserProfile, error) {
	var u core.UserProfile
	err := r.getDoc(ctx, "users", "user", id, &u)
	return u, err
}

func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, u core.UserProfile) error {
	doc, err := encode(u)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET doc = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", doc, u.ID)
	return wrapWrite("update user", affectedOne(res, err, notFound("user", u.ID)))
}

func (r *SQLiteRepository) DeleteUserProfile(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.db, "users", "user", id)
}

// Expenses

func (r *SQLiteRepository) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	var (
		where []string
		args  []any
	)
	if f.PropertyID != "" {
		where, args = append(where, "property_id = ?"), append(args, f.PropertyID)
	}
	if !f.Range.From.IsZero() {
		where, args = append(where, "date >= ?"), append(args, f.Range.From.String())
	}
	if !f.Range.To.IsZero() {
		where, args = append(where, "date <= ?"), append(args, f.Range.To.String())
	}

	q := "SELECT doc FROM expenses"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date, id"
	return listDocs[core.Expense](ctx, r.db, "expenses", q, args...)
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	doc, err := encode(e)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO expenses (id, property_id, date, doc) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING",
		e.ID, e.PropertyID, e.Date.String(), doc)
	return wrapWrite("create expense", affectedOne(res, err, conflict("expense", e.ID)))
}

// Credentials

func (r *SQLiteRepository) CreateCredential(ctx context.Context, c core.Credential) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO credentials (uid, email, password_hash, created_at) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING",
		c.UID, c.Email, c.PasswordHash, createdAt.Format(time.RFC3339Nano))
	return wrapWrite("create credential", affectedOne(res, err, conflict("credential", c.Email)))
}

func (r *SQLiteRepository) GetCredentialByEmail(ctx context.Context, email string) (core.Credential, error) {
	var (
		c         core.Credential
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT uid, email, password_hash, CAST(created_at AS TEXT) FROM credentials WHERE email = ?", email).
		Scan(&c.UID, &c.Email, &c.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Credential{}, notFound("credential", email)
	}
	if err != nil {
		return core.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return c, nil
}

func (r *SQLiteRepository) DeleteCredential(ctx context.Context, uid string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE uid = ?", uid)
	return wrapWrite("delete credential", affectedOne(res, err, notFound("credential", uid)))
}

// wrapWrite adds op to driver errors and passes store sentinels through.
func wrapWrite(op string, err error) error {
	if err == nil || errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
