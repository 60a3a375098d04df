package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"propman/internal/core"
)

// CSVHeader is the column layout of the per-property financial export.
var CSVHeader = []string{"Property", "Revenue", "Profit", "Margin%", "Invoices Paid%"}

// CSVFilename returns the download name for a report covering r.
func CSVFilename(r core.DateRange) string {
	return fmt.Sprintf("financial-report_%s_%s.csv", r.From, r.To)
}

// CSVRows renders one row per property, in the order given.
func CSVRows(rows []core.PropertyFinancialData) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.PropertyName,
			r.Revenue.String(),
			r.Profit.String(),
			formatPct(r.MarginPct),
			formatPct(r.InvoicesPaidPct),
		})
	}
	return out
}

// WriteCSV writes the header and one row per property to w.
func WriteCSV(w io.Writer, rows []core.PropertyFinancialData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(CSVRows(rows)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
