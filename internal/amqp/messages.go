package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"propman/internal/core"
)

type EventType string

const (
	EventInvoiceCreated       EventType = "invoice.created"
	EventInvoiceStatusChanged EventType = "invoice.status_changed"
)

// InvoiceEvent announces an invoice write. It carries only identifiers and
// the store version; consumers fetch the full invoice themselves.
type InvoiceEvent struct {
	Type       EventType          `json:"type"`
	InvoiceID  string             `json:"invoiceId"`
	PropertyID string             `json:"propertyId"`
	Status     core.InvoiceStatus `json:"status"`
	Version    int64              `json:"version"`
	Timestamp  time.Time          `json:"timestamp"`
}

func NewInvoiceEvent(typ EventType, inv core.Invoice, version int64) *InvoiceEvent {
	return &InvoiceEvent{
		Type:       typ,
		InvoiceID:  inv.ID,
		PropertyID: inv.PropertyID,
		Status:     inv.Status,
		Version:    version,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *InvoiceEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvoiceEventFromJSON decodes an event and rejects ones without an invoice id.
func InvoiceEventFromJSON(data []byte) (*InvoiceEvent, error) {
	var msg InvoiceEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.InvoiceID == "" {
		return nil, errors.New("invoice event without invoice id")
	}
	return &msg, nil
}
