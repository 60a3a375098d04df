package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	Role           string
	UserStatus     string
	ProviderStatus string
)

const (
	RoleAdmin           Role = "admin"
	RoleServiceProvider Role = "service_provider"

	UserPending UserStatus = "pending"
	UserActive  UserStatus = "active"

	ProviderPending   ProviderStatus = "pending"
	ProviderActive    ProviderStatus = "active"
	ProviderSuspended ProviderStatus = "suspended"
)

type (
	// UserProfile is keyed by the identity provider uid.
	UserProfile struct {
		ID          string     `json:"id"`
		Email       string     `json:"email"`
		DisplayName string     `json:"displayName"`
		Phone       string     `json:"phone,omitempty"`
		Role        Role       `json:"role"`
		Status      UserStatus `json:"status"`
		ProviderID  string     `json:"providerId,omitempty"`
		CreatedAt   time.Time  `json:"createdAt"`
		UpdatedAt   time.Time  `json:"updatedAt"`
	}

	ServiceProvider struct {
		ID              string         `json:"id"`
		UserID          string         `json:"userId"`
		BusinessName    string         `json:"businessName"`
		ServiceCategory string         `json:"serviceCategory"`
		ContactName     string         `json:"contactName"`
		Phone           string         `json:"phone,omitempty"`
		Status          ProviderStatus `json:"status"`
		Rating          float64        `json:"rating"`
		PropertyIDs     []string       `json:"propertyIds,omitempty"`
		CreatedAt       time.Time      `json:"createdAt"`
		UpdatedAt       time.Time      `json:"updatedAt"`
	}
)

var (
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
	ErrEmptyUserID   = errors.New("empty user id")
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleServiceProvider
}

func (u UserProfile) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrEmptyUserID
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, string(u.Role))
	}
	if u.Status != UserPending && u.Status != UserActive {
		return fmt.Errorf("invalid user status %q", string(u.Status))
	}
	return nil
}

func (p ServiceProvider) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(p.BusinessName) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(p.ServiceCategory) == "" {
		return errors.New("empty service category")
	}
	switch p.Status {
	case ProviderPending, ProviderActive, ProviderSuspended:
	default:
		return fmt.Errorf("invalid provider status %q", string(p.Status))
	}
	if p.Rating < 0 || p.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

// Credential is the local identity provider's record of a login.
type Credential struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
