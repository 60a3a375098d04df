package auth

import (
	"context"
	"time"
)

// Identity is an account at the identity provider.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Session is a signed-in identity and its ID token.
type Session struct {
	Identity
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IdentityProvider is the external authentication collaborator. Errors are
// returned as *Error.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	DeleteAccount(ctx context.Context, uid string) error
	VerifyToken(ctx context.Context, token string) (Identity, error)
}
