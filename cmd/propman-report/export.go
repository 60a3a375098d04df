package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"propman/internal/cli"
	"propman/internal/core"
	"propman/internal/log"
	"propman/internal/reporting"
	gsheet "propman/internal/sheets/google"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Build a financial report and write it as CSV, JSON or a sheet tab",
	Example: `  # Current year by month, CSV on stdout
  propman-report export

  # One property, weekly, explicit range, to a file
  propman-report export --granularity week --from 2025-01-01 --to 2025-03-31 --property p-1 --out q1.csv

  # Replace the "Report" tab of the configured spreadsheet
  propman-report export --sheet Report`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("granularity", string(core.Month), "Bucket size: week, month or year")
	exportCmd.Flags().String("from", "", "First day of the report (YYYY-MM-DD, default: start of the granularity's default range)")
	exportCmd.Flags().String("to", "", "Last day of the report (YYYY-MM-DD, default: end of the granularity's default range)")
	exportCmd.Flags().String("property", "", "Restrict the report to one property ID")
	exportCmd.Flags().String("format", "csv", "Output format: csv or json")
	exportCmd.Flags().StringP("out", "o", "-", "Output file, - for stdout")
	exportCmd.Flags().String("sheet", "", "Write the per-property rows to this spreadsheet tab instead of a file")
}

// buildRequest turns flag values into a report request. The granularity is
// applied before the explicit range so that the range is kept as given.
func buildRequest(granularity, from, to, property string, now time.Time) (reporting.Request, error) {
	g, err := core.ParseGranularity(granularity)
	if err != nil {
		return reporting.Request{}, err
	}
	state, err := reporting.NewReportState(g)
	if err != nil {
		return reporting.Request{}, err
	}

	var explicit core.DateRange
	for _, b := range []struct {
		name, value string
		dst         *core.Date
	}{{"from", from, &explicit.From}, {"to", to, &explicit.To}} {
		v := strings.TrimSpace(b.value)
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return reporting.Request{}, fmt.Errorf("--%s: %w", b.name, err)
		}
		*b.dst = d
	}
	if err := state.SetRange(explicit); err != nil {
		return reporting.Request{}, err
	}
	r, err := state.Range(now)
	if err != nil {
		return reporting.Request{}, err
	}
	return reporting.Request{
		PropertyID:  strings.TrimSpace(property),
		Granularity: state.Granularity(),
		Range:       r,
	}, nil
}

// writeReport renders report to w in the given format.
func writeReport(w io.Writer, report reporting.Report, format string) error {
	switch strings.ToLower(format) {
	case "csv":
		return reporting.WriteCSV(w, report.ByProperty)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return fmt.Errorf("unknown format %q: must be csv or json", format)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	granularity, _ := cmd.Flags().GetString("granularity")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	property, _ := cmd.Flags().GetString("property")
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	sheet, _ := cmd.Flags().GetString("sheet")

	req, err := buildRequest(granularity, from, to, property, time.Now())
	if err != nil {
		return err
	}
	logger, cfg, err := setup()
	if err != nil {
		return err
	}
	if sheet != "" && !cfg.SheetsEnabled() {
		return errors.New("--sheet needs GOOGLE_SPREADSHEET_ID")
	}

	ctx := cmd.Context()
	st, closeStore := cli.OpenStore(ctx, logger, cfg)
	defer closeStore()

	reports, err := cli.NewReportService(st, nil, cfg)
	if err != nil {
		return err
	}
	report, err := reports.Financial(ctx, req)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	logger.Info("Report built",
		log.FieldRange, report.Range.String(),
		log.FieldGranularity, report.Granularity,
		log.FieldPropertyID, report.PropertyID,
		"properties", len(report.ByProperty))

	if sheet != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return fmt.Errorf("sheets client: %w", err)
		}
		rows := append([][]string{reporting.CSVHeader}, reporting.CSVRows(report.ByProperty)...)
		if err := client.ReplaceSheet(ctx, sheet, rows); err != nil {
			return err
		}
		logger.Info("Report written to sheet", "sheet", sheet, "rows", len(rows))
		return nil
	}

	if out == "-" || out == "" {
		return writeReport(cmd.OutOrStdout(), report, format)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := writeReport(f, report, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("Report written", "path", out, "format", format)
	return nil
}
