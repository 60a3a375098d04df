package http

import (
	"context"
	"errors"
	"net/http"

	"propman/internal/auth"
	"propman/internal/core"
	"propman/internal/log"
)

type profileKey struct{}

// ProfileFromContext returns the caller resolved by requireAuth.
func ProfileFromContext(ctx context.Context) (core.UserProfile, bool) {
	p, ok := ctx.Value(profileKey{}).(core.UserProfile)
	return p, ok
}

// requireAuth resolves the bearer token to a profile or answers 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			UnauthorizedError("missing bearer token").Write(w)
			return
		}
		profile, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		ctx := context.WithValue(r.Context(), profileKey{}, profile)
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldUserID, profile.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := ProfileFromContext(r.Context())
		if !ok || p.Role != core.RoleAdmin {
			writeError(r.Context(), w, auth.ErrForbidden)
			return
		}
		h(w, r)
	}
}

// activeUser admits administrators and active service providers.
func (s *Server) activeUser(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := ProfileFromContext(r.Context())
		if !ok || (p.Role != core.RoleAdmin && p.Status != core.UserActive) {
			writeError(r.Context(), w, auth.ErrForbidden)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.auth.SignUpProvider(r.Context(), req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(res).Write(w)
}

func (s *Server) handleAdminSignup(w http.ResponseWriter, r *http.Request) {
	var req auth.AdminSignupRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.auth.SignUpAdmin(r.Context(), req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(res).Write(w)
}

// handleLogin answers with the session and landing route. A user without a
// profile gets 401 and the login route as redirect.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrProfileMissing) {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Login without profile", log.FieldOperation, log.OpLogin)
		}
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().JSON(res).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" {
		UnauthorizedError("missing bearer token").Write(w)
		return
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().JSON(map[string]string{"redirect": auth.RouteLogin}).Write(w)
}
