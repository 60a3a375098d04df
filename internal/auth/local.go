package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"propman/internal/core"
	"propman/internal/store"
)

// MinPasswordLength is the shortest password either provider side accepts.
const MinPasswordLength = 6

// LocalProvider is an IdentityProvider backed by the document store: bcrypt
// password hashes and HS256 ID tokens. Signed-out token ids are kept until
// the token would have expired anyway.
type LocalProvider struct {
	creds    store.CredentialStore
	tokens   *TokenIssuer
	validate *validator.Validate
	cost     int

	mu      sync.Mutex
	revoked map[string]time.Time
}

var _ IdentityProvider = (*LocalProvider)(nil)

func NewLocalProvider(creds store.CredentialStore, tokens *TokenIssuer) *LocalProvider {
	return &LocalProvider{
		creds:    creds,
		tokens:   tokens,
		validate: validator.New(),
		cost:     bcrypt.DefaultCost,
		revoked:  make(map[string]time.Time),
	}
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(email)
	if err := p.validate.Var(email, "required,email"); err != nil {
		return Identity{}, newError(CodeInvalidEmail, err)
	}
	if len(password) < MinPasswordLength {
		return Identity{}, newError(CodeWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return Identity{}, newError(CodeUnknown, fmt.Errorf("hash password: %w", err))
	}
	cred := core.Credential{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.creds.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return Identity{}, newError(CodeEmailAlreadyInUse, err)
		}
		return Identity{}, storeError(err)
	}
	return Identity{UID: cred.UID, Email: cred.Email}, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if err := p.validate.Var(email, "required,email"); err != nil {
		return Session{}, newError(CodeInvalidEmail, err)
	}
	cred, err := p.creds.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, newError(CodeUserNotFound, err)
		}
		return Session{}, storeError(err)
	}
	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		return Session{}, newError(CodeWrongPassword, nil)
	}

	id := Identity{UID: cred.UID, Email: cred.Email}
	token, expiresAt, err := p.tokens.Issue(id)
	if err != nil {
		return Session{}, newError(CodeUnknown, err)
	}
	return Session{Identity: id, Token: token, ExpiresAt: expiresAt}, nil
}

// SignOut revokes token. Signing out an already invalid token is a no-op.
func (p *LocalProvider) SignOut(_ context.Context, token string) error {
	claims, err := p.tokens.Parse(token)
	if err != nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for jti, exp := range p.revoked {
		if now.After(exp) {
			delete(p.revoked, jti)
		}
	}
	p.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

func (p *LocalProvider) DeleteAccount(ctx context.Context, uid string) error {
	if err := p.creds.DeleteCredential(ctx, uid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(CodeUserNotFound, err)
		}
		return storeError(err)
	}
	return nil
}

func (p *LocalProvider) VerifyToken(_ context.Context, token string) (Identity, error) {
	claims, err := p.tokens.Parse(token)
	if err != nil {
		return Identity{}, newError(CodeInvalidToken, err)
	}
	p.mu.Lock()
	_, revoked := p.revoked[claims.ID]
	p.mu.Unlock()
	if revoked {
		return Identity{}, newError(CodeInvalidToken, errors.New("token revoked"))
	}
	return Identity{UID: claims.Subject, Email: claims.Email}, nil
}

func storeError(err error) *Error {
	if CodeOf(err) == CodeNetworkFailed {
		return newError(CodeNetworkFailed, err)
	}
	return newError(CodeUnknown, err)
}
