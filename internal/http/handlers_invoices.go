package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"propman/internal/auth"
	"propman/internal/core"
	"propman/internal/services"
)

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent paid overdue"`
}

type expenseRequest struct {
	PropertyID  string     `json:"propertyId" validate:"required"`
	Date        core.Date  `json:"date"`
	Description string     `json:"description" validate:"required,max=200"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category" validate:"required,max=100"`
}

// visibleTo reports whether caller may read inv. Service providers only see
// invoices they issued.
func visibleTo(caller core.UserProfile, inv core.Invoice) bool {
	return caller.Role == core.RoleAdmin || (caller.ProviderID != "" && caller.ProviderID == inv.ProviderID)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	f, err := ParseInvoiceFilter(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	invoices, err := s.invoices.List(r.Context(), f)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	caller, _ := ProfileFromContext(r.Context())
	out := make([]core.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if visibleTo(caller, inv) {
			out = append(out, inv)
		}
	}
	NewJSONResponse().JSON(out).Write(w)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invoices.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if caller, _ := ProfileFromContext(r.Context()); !visibleTo(caller, inv) {
		writeError(r.Context(), w, auth.ErrForbidden)
		return
	}
	NewJSONResponse().JSON(inv).Write(w)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var in services.CreateInvoiceInput
	if err := DecodeJSON(r, &in); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	inv, err := s.invoices.Create(r.Context(), in)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Header("Location", "/api/invoices/"+inv.ID).JSON(inv).Write(w)
}

func (s *Server) handleChangeInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := s.validate.Struct(req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	inv, err := s.invoices.ChangeStatus(r.Context(), mux.Vars(r)["id"], core.InvoiceStatus(req.Status))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().JSON(inv).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := ParseExpenseFilter(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	expenses, err := s.expenses.ListExpenses(r.Context(), f)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	NewJSONResponse().JSON(expenses).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	e, err := s.expenses.CreateExpense(r.Context(), core.Expense{
		PropertyID:  strings.TrimSpace(req.PropertyID),
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(e).Write(w)
}
