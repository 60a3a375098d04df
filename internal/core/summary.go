package core

// FinancialSummary aggregates a set of invoices. When ExpensesEstimated is set,
// Expenses and everything derived from it come from an estimate rather than
// booked costs.
type FinancialSummary struct {
	Revenue           Money   `json:"revenue"`
	Expenses          Money   `json:"expenses"`
	Profit            Money   `json:"profit"`
	MarginPct         float64 `json:"marginPct"`
	InvoicesPaidPct   float64 `json:"invoicesPaidPct"`
	InvoiceCount      int     `json:"invoiceCount"`
	PaidCount         int     `json:"paidCount"`
	ExpensesEstimated bool    `json:"expensesEstimated"`
}

// PropertyFinancialData is a FinancialSummary for one property.
type PropertyFinancialData struct {
	PropertyID   string `json:"propertyId"`
	PropertyName string `json:"propertyName"`
	FinancialSummary
}

// TimeSeriesPoint is one bucket of the revenue/expense chart.
type TimeSeriesPoint struct {
	Period
	Revenue           Money `json:"revenue"`
	Expenses          Money `json:"expenses"`
	Profit            Money `json:"profit"`
	InvoiceCount      int   `json:"invoiceCount"`
	ExpensesEstimated bool  `json:"expensesEstimated"`
}
