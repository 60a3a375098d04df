package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"propman/internal/core"
	ports "propman/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// InvoiceColumns is the header layout of the invoices tab.
var InvoiceColumns = []string{
	"Invoice", "Number", "Property", "Issued", "Due", "Status", "Subtotal", "Tax", "Total",
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	invoicesSheet string
}

var (
	_ ports.InvoiceExporter = (*Client)(nil)
	_ ports.ReportWriter    = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Invoices"), prefixed with the current year.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	base := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if base == "" {
		base = "Invoices"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		invoicesSheet: yearPrefixedName(base, time.Now().Year()),
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendInvoice writes inv on the first empty row of the invoices tab. Row 1
// carries the header, which is written when the tab is empty.
func (c *Client) AppendInvoice(ctx context.Context, inv core.Invoice, propertyName string) (string, error) {
	if inv.ID == "" {
		return "", errors.New("invoice without id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.invoicesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.invoicesSheet, err)
	}

	values := [][]any{invoiceRow(inv, propertyName)}
	nextRow := len(resp.Values) + 1
	if nextRow == 1 {
		values = append([][]any{toValues(InvoiceColumns)}, values...)
		nextRow = 2
	}
	startRow := nextRow - len(values) + 1

	dataRange := fmt.Sprintf("%s!A%d:%s%d", c.invoicesSheet, startRow, lastColumn(len(InvoiceColumns)), nextRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return fmt.Sprintf("%s!A%d:%s%d", c.invoicesSheet, nextRow, lastColumn(len(InvoiceColumns)), nextRow), nil
}

// ReplaceSheet clears tab (creating it when missing) and writes rows from A1.
func (c *Client) ReplaceSheet(ctx context.Context, tab string, rows [][]string) error {
	tab = strings.TrimSpace(tab)
	if tab == "" {
		return errors.New("empty sheet name")
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	if err := c.ensureSheet(ctx, tab); err != nil {
		return err
	}
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tab, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", tab, err)
	}
	if len(rows) == 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: make([][]any, 0, len(rows))}
	for _, r := range rows {
		vr.Values = append(vr.Values, toValues(r))
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet %s: %w", tab, err)
	}
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, tab string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Created sheet tab", "tab", tab)
	return nil
}

// invoiceRow lays out inv following InvoiceColumns. Amounts are plain
// decimals so the sheet can sum them.
func invoiceRow(inv core.Invoice, propertyName string) []any {
	if strings.TrimSpace(propertyName) == "" {
		propertyName = inv.PropertyID
	}
	return []any{
		inv.ID,
		inv.Number,
		propertyName,
		inv.IssueDate.String(),
		inv.DueDate.String(),
		string(inv.Status),
		inv.Subtotal.String(),
		inv.Tax.String(),
		inv.Total.String(),
	}
}

func toValues(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// lastColumn returns the A1 letter of the n-th column (1-based, up to 26).
func lastColumn(n int) string {
	if n < 1 || n > 26 {
		return "Z"
	}
	return string(rune('A' + n - 1))
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
