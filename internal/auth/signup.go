package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"propman/internal/core"
	"propman/internal/metrics"
	"propman/internal/store"
)

// Landing routes returned after login and signup.
const (
	RouteAdminDashboard = "/dashboard"
	RouteProvider       = "/provider"
	RoutePending        = "/pending"
	RouteLogin          = "/login"
)

// SignupResult is what a successful signup created.
type SignupResult struct {
	Identity Identity              `json:"identity"`
	Profile  core.UserProfile      `json:"profile"`
	Provider *core.ServiceProvider `json:"provider,omitempty"`
	Redirect string                `json:"redirect"`
}

// LoginResult carries the session and where the user should land.
type LoginResult struct {
	Session  Session          `json:"session"`
	Profile  core.UserProfile `json:"profile"`
	Redirect string           `json:"redirect"`
}

type ServiceConfig struct {
	AllowAdminSignup bool
}

// Service orchestrates signup and login against the identity provider and
// the users/serviceProviders collections.
type Service struct {
	idp       IdentityProvider
	users     store.UserStore
	providers store.ProviderStore
	validate  *validator.Validate
	cfg       ServiceConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(idp IdentityProvider, users store.UserStore, providers store.ProviderStore, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		idp:       idp,
		users:     users,
		providers: providers,
		validate:  validator.New(),
		cfg:       cfg,
		logger:    logger.With("component", "auth"),
		now:       time.Now,
	}
}

// SignUpProvider registers a service provider: credential, user profile,
// provider profile, then the profile link. A failure after the credential
// exists undoes every completed step.
func (s *Service) SignUpProvider(ctx context.Context, req SignupRequest) (SignupResult, error) {
	if err := validateForm(s.validate, req); err != nil {
		metrics.Signups.WithLabelValues("invalid").Inc()
		return SignupResult{}, err
	}

	now := s.now().UTC()
	var (
		ident    Identity
		profile  core.UserProfile
		provider core.ServiceProvider
	)

	err := RunSaga(ctx, s.logger,
		Step{
			Name: "create credential",
			Action: func(ctx context.Context) error {
				var err error
				ident, err = s.idp.SignUp(ctx, req.Email, req.Password)
				return err
			},
			Compensate: func(ctx context.Context) error {
				return s.idp.DeleteAccount(ctx, ident.UID)
			},
		},
		Step{
			Name: "create user profile",
			Action: func(ctx context.Context) error {
				profile = core.UserProfile{
					ID:          ident.UID,
					Email:       ident.Email,
					DisplayName: displayName(req.DisplayName, req.ContactName),
					Phone:       strings.TrimSpace(req.Phone),
					Role:        core.RoleServiceProvider,
					Status:      core.UserPending,
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				return s.users.CreateUserProfile(ctx, profile)
			},
			Compensate: func(ctx context.Context) error {
				return ignoreNotFound(s.users.DeleteUserProfile(ctx, profile.ID))
			},
		},
		Step{
			Name: "create service provider",
			Action: func(ctx context.Context) error {
				provider = core.ServiceProvider{
					ID:              uuid.NewString(),
					UserID:          ident.UID,
					BusinessName:    strings.TrimSpace(req.BusinessName),
					ServiceCategory: strings.TrimSpace(req.ServiceCategory),
					ContactName:     strings.TrimSpace(req.ContactName),
					Phone:           strings.TrimSpace(req.Phone),
					Status:          core.ProviderPending,
					CreatedAt:       now,
					UpdatedAt:       now,
				}
				return s.providers.CreateProvider(ctx, provider)
			},
			Compensate: func(ctx context.Context) error {
				return ignoreNotFound(s.providers.DeleteProvider(ctx, provider.ID))
			},
		},
		Step{
			Name: "link provider to profile",
			Action: func(ctx context.Context) error {
				profile.ProviderID = provider.ID
				return s.users.UpdateUserProfile(ctx, profile)
			},
		},
	)
	if err != nil {
		outcome := "rolled_back"
		if ident.UID == "" {
			outcome = "failed"
		}
		metrics.Signups.WithLabelValues(outcome).Inc()
		return SignupResult{}, err
	}

	metrics.Signups.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "Service provider signed up", "user_id", ident.UID, "provider_id", provider.ID)
	return SignupResult{Identity: ident, Profile: profile, Provider: &provider, Redirect: RoutePending}, nil
}

// SignUpAdmin registers an active administrator when enabled by configuration.
func (s *Service) SignUpAdmin(ctx context.Context, req AdminSignupRequest) (SignupResult, error) {
	if !s.cfg.AllowAdminSignup {
		return SignupResult{}, ErrAdminSignupDisabled
	}
	if err := validateForm(s.validate, req); err != nil {
		metrics.Signups.WithLabelValues("invalid").Inc()
		return SignupResult{}, err
	}

	now := s.now().UTC()
	var (
		ident   Identity
		profile core.UserProfile
	)
	err := RunSaga(ctx, s.logger,
		Step{
			Name: "create credential",
			Action: func(ctx context.Context) error {
				var err error
				ident, err = s.idp.SignUp(ctx, req.Email, req.Password)
				return err
			},
			Compensate: func(ctx context.Context) error {
				return s.idp.DeleteAccount(ctx, ident.UID)
			},
		},
		Step{
			Name: "create user profile",
			Action: func(ctx context.Context) error {
				profile = core.UserProfile{
					ID:          ident.UID,
					Email:       ident.Email,
					DisplayName: strings.TrimSpace(req.DisplayName),
					Role:        core.RoleAdmin,
					Status:      core.UserActive,
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				return s.users.CreateUserProfile(ctx, profile)
			},
		},
	)
	if err != nil {
		metrics.Signups.WithLabelValues("failed").Inc()
		return SignupResult{}, err
	}
	metrics.Signups.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "Administrator signed up", "user_id", ident.UID)
	return SignupResult{Identity: ident, Profile: profile, Redirect: RouteAdminDashboard}, nil
}

// Login signs the user in and picks the landing route from their profile.
// A valid identity without a profile is signed out again and sent to the
// login page together with ErrProfileMissing.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if err := validateForm(s.validate, req); err != nil {
		return LoginResult{}, err
	}
	sess, err := s.idp.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return LoginResult{}, err
	}

	profile, err := s.users.GetUserProfile(ctx, sess.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.ErrorContext(ctx, "Authenticated user has no profile, signing out", "user_id", sess.UID)
			if serr := s.idp.SignOut(ctx, sess.Token); serr != nil {
				s.logger.WarnContext(ctx, "Sign out failed", "user_id", sess.UID, "error", serr)
			}
			return LoginResult{Redirect: RouteLogin}, ErrProfileMissing
		}
		return LoginResult{}, fmt.Errorf("load profile: %w", err)
	}

	return LoginResult{Session: sess, Profile: profile, Redirect: LandingRoute(profile)}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.idp.SignOut(ctx, token)
}

// Authenticate resolves a bearer token to the caller's profile.
func (s *Service) Authenticate(ctx context.Context, token string) (core.UserProfile, error) {
	ident, err := s.idp.VerifyToken(ctx, token)
	if err != nil {
		return core.UserProfile{}, err
	}
	profile, err := s.users.GetUserProfile(ctx, ident.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.UserProfile{}, ErrProfileMissing
		}
		return core.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

// LandingRoute maps a profile to the page it should see after login.
func LandingRoute(p core.UserProfile) string {
	switch {
	case p.Role == core.RoleAdmin:
		return RouteAdminDashboard
	case p.Role == core.RoleServiceProvider && p.Status == core.UserActive:
		return RouteProvider
	case p.Role == core.RoleServiceProvider:
		return RoutePending
	}
	return RouteLogin
}

func displayName(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return strings.TrimSpace(fallback)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
