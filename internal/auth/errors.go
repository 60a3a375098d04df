// Package auth implements signup, login and role routing on top of an
// identity provider. Identity provider failures are reported as *Error
// values carrying one of a fixed set of codes.
package auth

import (
	"context"
	"errors"
	"net"
)

// Code is a provider-neutral identity error code.
type Code string

const (
	CodeUserNotFound      Code = "user-not-found"
	CodeWrongPassword     Code = "wrong-password"
	CodeInvalidEmail      Code = "invalid-email"
	CodeWeakPassword      Code = "weak-password"
	CodeEmailAlreadyInUse Code = "email-already-in-use"
	CodeNetworkFailed     Code = "network-request-failed"
	CodeInvalidToken      Code = "invalid-token"
	CodeUnknown           Code = "unknown"
)

var userMessages = map[Code]string{
	CodeUserNotFound:      "No account found with this email.",
	CodeWrongPassword:     "Incorrect password.",
	CodeInvalidEmail:      "Please enter a valid email address.",
	CodeWeakPassword:      "Password must be at least 6 characters.",
	CodeEmailAlreadyInUse: "An account with this email already exists.",
	CodeNetworkFailed:     "Network error. Please check your connection and try again.",
	CodeInvalidToken:      "Your session has expired. Please sign in again.",
	CodeUnknown:           "Something went wrong. Please try again.",
}

// Error is an identity provider failure.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

var (
	// ErrProfileMissing means an authenticated identity has no UserProfile.
	ErrProfileMissing      = errors.New("authenticated user has no profile")
	ErrAdminSignupDisabled = errors.New("admin signup is disabled")
	ErrForbidden           = errors.New("forbidden")
)

// CodeOf maps err onto the code table. Context and network failures count as
// network-request-failed; anything unrecognized is unknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return CodeNetworkFailed
	}
	return CodeUnknown
}

// UserMessage returns the message shown to the user for err.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, ErrProfileMissing) {
		return "Your account is not set up correctly. Please sign in again."
	}
	if errors.Is(err, ErrAdminSignupDisabled) {
		return "Admin registration is not available."
	}
	return userMessages[CodeOf(err)]
}
