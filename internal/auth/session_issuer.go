package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultSessionTTL       = 7 * 24 * time.Hour
	defaultSessionIssuer    = "studyasist-api"
	defaultSessionAlgorithm = "HS256"
)

var (
	ErrMissingSigningSecret     = errors.New("auth: signing secret must be provided")
	ErrUnsupportedAlgorithm     = errors.New("auth: unsupported signing algorithm")
	ErrInvalidSessionToken      = errors.New("auth: invalid session token")
	ErrExpiredSessionToken      = errors.New("auth: session token expired")
	ErrMissingSessionSubject    = errors.New("auth: session token missing user id")
	errMissingSessionUserID     = errors.New("user id must be provided")
	symmetricSigningMethodByAlg = map[string]*jwt.SigningMethodHMAC{
		jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
		jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
		jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
	}
)

// SessionIssuerConfig configures the backend bearer token issuer.
type SessionIssuerConfig struct {
	SigningSecret []byte
	Algorithm     string
	Issuer        string
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// IssuedToken is a freshly minted bearer token.
type IssuedToken struct {
	AccessToken string
	ExpiresAt   time.Time
	ExpiresIn   int64
}

// SessionIssuer mints and resolves bearer tokens bound to an internal user id.
type SessionIssuer struct {
	signingSecret []byte
	method        *jwt.SigningMethodHMAC
	issuer        string
	ttl           time.Duration
	clock         func() time.Time
}

// NewSessionIssuer constructs a SessionIssuer; TTL defaults to seven days and algorithm to HS256.
func NewSessionIssuer(cfg SessionIssuerConfig) (*SessionIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	algorithm := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if algorithm == "" {
		algorithm = defaultSessionAlgorithm
	}
	method, ok := symmetricSigningMethodByAlg[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultSessionIssuer
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionIssuer{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		method:        method,
		issuer:        issuer,
		ttl:           ttl,
		clock:         clock,
	}, nil
}

// Issue produces a signed token whose subject is userID, expiring after the configured lifetime.
func (i *SessionIssuer) Issue(_ context.Context, userID string) (IssuedToken, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return IssuedToken{}, errMissingSessionUserID
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.ttl)

	registered := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(i.method, registered).SignedString(i.signingSecret)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		ExpiresIn:   int64(i.ttl.Seconds()),
	}, nil
}

// Resolve validates tokenString and returns the user id it binds. Expired tokens
// satisfy both ErrExpiredSessionToken and ErrInvalidSessionToken.
func (i *SessionIssuer) Resolve(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", fmt.Errorf("%w: token required", ErrInvalidSessionToken)
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			return i.signingSecret, nil
		},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", ErrInvalidSessionToken, ErrExpiredSessionToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return "", ErrInvalidSessionToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidSessionToken, ErrMissingSessionSubject)
	}
	return subject, nil
}
