package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

type PropertyStatus string

const (
	PropertyActive      PropertyStatus = "active"
	PropertyInactive    PropertyStatus = "inactive"
	PropertyMaintenance PropertyStatus = "maintenance"
)

type (
	FinancialInfo struct {
		MonthlyRent Money  `json:"monthlyRent"`
		Deposit     Money  `json:"deposit"`
		Currency    string `json:"currency"`
	}

	Property struct {
		ID            string            `json:"id"`
		Name          string            `json:"name"`
		Address       string            `json:"address"`
		Status        PropertyStatus    `json:"status"`
		PropertyType  string            `json:"propertyType"`
		FinancialInfo FinancialInfo     `json:"financialInfo"`
		Metadata      map[string]string `json:"metadata,omitempty"`
		CreatedAt     time.Time         `json:"createdAt"`
		UpdatedAt     time.Time         `json:"updatedAt"`
	}

	// PropertyQuery filters the property catalog. Empty fields match everything.
	PropertyQuery struct {
		Status PropertyStatus
		Type   string
		Search string
	}
)

var (
	ErrEmptyName             = errors.New("empty name")
	ErrInvalidPropertyStatus = errors.New("invalid property status")
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyActive, PropertyInactive, PropertyMaintenance:
		return true
	}
	return false
}

func (p Property) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 200 {
		return ErrDescriptionTooLong
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPropertyStatus, string(p.Status))
	}
	if p.FinancialInfo.MonthlyRent.Cents < 0 || p.FinancialInfo.Deposit.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// FilterProperties applies q and returns the matches sorted by name.
// Search is a case-insensitive substring match on name or address.
func FilterProperties(properties []Property, q PropertyQuery) []Property {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Property, 0, len(properties))
	for _, p := range properties {
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.Type != "" && !strings.EqualFold(p.PropertyType, q.Type) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Address), needle) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
