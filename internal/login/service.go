// Package login turns verified external identities into internal sessions.
package login

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ravikumarch040/StudyAsist/internal/auth"
	"github.com/ravikumarch040/StudyAsist/internal/users"
	"go.uber.org/zap"
)

var (
	// ErrMissingEmail indicates a provider token verified but carried no email.
	ErrMissingEmail = errors.New("login: identity token missing email")
	// ErrMissingEmailOnFirstLogin indicates a first Apple sign-in without an email.
	ErrMissingEmailOnFirstLogin = errors.New("login: email required on first sign-in")
	// ErrMissingSubject indicates a provider token verified but carried no subject.
	ErrMissingSubject = errors.New("login: identity token missing subject")

	errMissingVerifier  = errors.New("login: identity verifier required")
	errMissingDirectory = errors.New("login: user directory required")
	errMissingIssuer    = errors.New("login: session issuer required")
)

// IdentityVerifier validates provider identity tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, provider auth.Provider, rawToken string) (auth.IdentityClaims, error)
}

// UserDirectory resolves profiles to internal users.
type UserDirectory interface {
	ResolveOrCreate(ctx context.Context, profile users.Profile) (users.User, error)
	FindByAppleSubject(ctx context.Context, subject string) (users.User, error)
}

// SessionIssuer mints bearer tokens for internal users.
type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (auth.IssuedToken, error)
}

// Config wires the login service.
type Config struct {
	Verifier  IdentityVerifier
	Directory UserDirectory
	Issuer    SessionIssuer
	Logger    *zap.Logger
}

// Result is the outcome of a successful login.
type Result struct {
	User  users.User
	Token auth.IssuedToken
}

// Service runs the Google, Apple and legacy login flows.
type Service struct {
	verifier  IdentityVerifier
	directory UserDirectory
	issuer    SessionIssuer
	logger    *zap.Logger
}

// NewService validates dependencies and constructs the service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Verifier == nil {
		return nil, errMissingVerifier
	}
	if cfg.Directory == nil {
		return nil, errMissingDirectory
	}
	if cfg.Issuer == nil {
		return nil, errMissingIssuer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		verifier:  cfg.Verifier,
		directory: cfg.Directory,
		issuer:    cfg.Issuer,
		logger:    logger,
	}, nil
}

// LoginWithGoogle verifies a Google ID token; the token must carry an email.
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (Result, error) {
	claims, err := s.verifier.Verify(ctx, auth.ProviderGoogle, idToken)
	if err != nil {
		return Result{}, err
	}
	if claims.Email == "" {
		return Result{}, ErrMissingEmail
	}
	if claims.Subject == "" {
		return Result{}, ErrMissingSubject
	}
	return s.complete(ctx, users.Profile{
		Email:         claims.Email,
		Name:          claims.Name,
		GoogleSubject: claims.Subject,
	})
}

// LoginWithApple verifies an Apple identity token. Apple omits email after the first
// authorization, so an email-less token must match an already linked subject.
func (s *Service) LoginWithApple(ctx context.Context, idToken string) (Result, error) {
	claims, err := s.verifier.Verify(ctx, auth.ProviderApple, idToken)
	if err != nil {
		return Result{}, err
	}
	if claims.Subject == "" {
		return Result{}, ErrMissingSubject
	}

	email := claims.Email
	if email == "" {
		existing, err := s.directory.FindByAppleSubject(ctx, claims.Subject)
		if errors.Is(err, users.ErrUserNotFound) {
			return Result{}, ErrMissingEmailOnFirstLogin
		}
		if err != nil {
			return Result{}, err
		}
		email = existing.Email
	}

	return s.complete(ctx, users.Profile{
		Email:        email,
		Name:         claims.Name,
		AppleSubject: claims.Subject,
	})
}

// LegacyRequest is a caller-asserted identity without cryptographic proof.
type LegacyRequest struct {
	Email         string
	Name          string
	GoogleSubject string
	AppleSubject  string
}

// LoginLegacy trusts the caller-supplied identity. It exists for older clients only.
func (s *Service) LoginLegacy(ctx context.Context, request LegacyRequest) (Result, error) {
	if strings.TrimSpace(request.Email) == "" {
		return Result{}, fmt.Errorf("%w: email is required", users.ErrInvalidInput)
	}
	s.logger.Debug("legacy login used")
	return s.complete(ctx, users.Profile{
		Email:         request.Email,
		Name:          request.Name,
		GoogleSubject: request.GoogleSubject,
		AppleSubject:  request.AppleSubject,
	})
}

func (s *Service) complete(ctx context.Context, profile users.Profile) (Result, error) {
	user, err := s.directory.ResolveOrCreate(ctx, profile)
	if err != nil {
		return Result{}, err
	}
	token, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{User: user, Token: token}, nil
}
