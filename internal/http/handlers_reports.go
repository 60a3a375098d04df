package http

import (
	"bytes"
	"fmt"
	"net/http"

	"propman/internal/log"
	"propman/internal/reporting"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dashboard.Summary(r.Context(), s.now())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().JSON(summary).Write(w)
}

func (s *Server) financial(r *http.Request) (reporting.Report, error) {
	req, err := ParseReportRequest(r.URL.Query())
	if err != nil {
		return reporting.Report{}, err
	}
	report, err := s.reports.Financial(r.Context(), req)
	if err != nil {
		return reporting.Report{}, err
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Financial report served",
		log.FieldGranularity, report.Granularity,
		log.FieldRange, report.Range.String(),
		log.FieldPropertyID, report.PropertyID)
	return report, nil
}

func (s *Server) handleFinancialReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.financial(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().JSON(report).Write(w)
}

// handleFinancialCSV streams the per-property breakdown as a download.
func (s *Server) handleFinancialCSV(w http.ResponseWriter, r *http.Request) {
	report, err := s.financial(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var buf bytes.Buffer
	if err := reporting.WriteCSV(&buf, report.ByProperty); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().
		Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reporting.CSVFilename(report.Range))).
		Raw("text/csv; charset=utf-8", buf.Bytes()).
		Write(w)
}
