package login

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ravikumarch040/StudyAsist/internal/auth"
	"github.com/ravikumarch040/StudyAsist/internal/database"
	"github.com/ravikumarch040/StudyAsist/internal/users"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubVerifier struct {
	claims map[string]auth.IdentityClaims
}

func (s stubVerifier) Verify(_ context.Context, provider auth.Provider, rawToken string) (auth.IdentityClaims, error) {
	claims, ok := s.claims[rawToken]
	if !ok || claims.Provider != provider {
		return auth.IdentityClaims{}, auth.ErrInvalidIdentityToken
	}
	return claims, nil
}

type testHarness struct {
	service   *Service
	directory *users.Directory
	issuer    *auth.SessionIssuer
}

func newHarness(t *testing.T, claims map[string]auth.IdentityClaims) testHarness {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "login.db"), zap.NewNop(), &users.User{})
	require.NoError(t, err)
	directory, err := users.NewDirectory(users.DirectoryConfig{Database: db})
	require.NoError(t, err)
	issuer, err := auth.NewSessionIssuer(auth.SessionIssuerConfig{SigningSecret: []byte("login-secret")})
	require.NoError(t, err)

	service, err := NewService(Config{
		Verifier:  stubVerifier{claims: claims},
		Directory: directory,
		Issuer:    issuer,
	})
	require.NoError(t, err)
	return testHarness{service: service, directory: directory, issuer: issuer}
}

func TestLoginWithGoogleReturnsSameUserForSameSubject(t *testing.T) {
	harness := newHarness(t, map[string]auth.IdentityClaims{
		"google-token": {Provider: auth.ProviderGoogle, Subject: "g-1", Email: "learner@example.com", Name: "Learner"},
	})
	ctx := context.Background()

	first, err := harness.service.LoginWithGoogle(ctx, "google-token")
	require.NoError(t, err)
	second, err := harness.service.LoginWithGoogle(ctx, "google-token")
	require.NoError(t, err)
	require.Equal(t, first.User.ID, second.User.ID)

	userID, err := harness.issuer.Resolve(second.Token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, first.User.ID, userID)
}

func TestLoginWithGoogleRequiresEmail(t *testing.T) {
	harness := newHarness(t, map[string]auth.IdentityClaims{
		"no-email": {Provider: auth.ProviderGoogle, Subject: "g-1"},
	})

	_, err := harness.service.LoginWithGoogle(context.Background(), "no-email")
	require.ErrorIs(t, err, ErrMissingEmail)
}

func TestLoginWithGooglePropagatesInvalidToken(t *testing.T) {
	harness := newHarness(t, nil)

	_, err := harness.service.LoginWithGoogle(context.Background(), "forged")
	require.ErrorIs(t, err, auth.ErrInvalidIdentityToken)
}

func TestLoginWithAppleFirstLoginWithoutEmailFails(t *testing.T) {
	harness := newHarness(t, map[string]auth.IdentityClaims{
		"apple-no-email": {Provider: auth.ProviderApple, Subject: "S"},
	})

	_, err := harness.service.LoginWithApple(context.Background(), "apple-no-email")
	require.ErrorIs(t, err, ErrMissingEmailOnFirstLogin)
}

func TestLoginWithAppleSubsequentLoginWithoutEmailReturnsSameUser(t *testing.T) {
	harness := newHarness(t, map[string]auth.IdentityClaims{
		"apple-first":   {Provider: auth.ProviderApple, Subject: "S", Email: "learner@privaterelay.appleid.com"},
		"apple-no-mail": {Provider: auth.ProviderApple, Subject: "S"},
	})
	ctx := context.Background()

	first, err := harness.service.LoginWithApple(ctx, "apple-first")
	require.NoError(t, err)
	require.Equal(t, "learner", first.User.Name)

	second, err := harness.service.LoginWithApple(ctx, "apple-no-mail")
	require.NoError(t, err)
	require.Equal(t, first.User.ID, second.User.ID)
	require.Equal(t, "learner@privaterelay.appleid.com", second.User.Email)
}

func TestLoginWithAppleRequiresSubject(t *testing.T) {
	harness := newHarness(t, map[string]auth.IdentityClaims{
		"apple-no-sub": {Provider: auth.ProviderApple, Email: "learner@example.com"},
	})

	_, err := harness.service.LoginWithApple(context.Background(), "apple-no-sub")
	require.ErrorIs(t, err, ErrMissingSubject)
}

func TestLoginAcrossProvidersLinksByEmail(t *testing.T) {
	harness := newHarness(t, map[string]auth.IdentityClaims{
		"google-token": {Provider: auth.ProviderGoogle, Subject: "g-1", Email: "learner@example.com"},
		"apple-token":  {Provider: auth.ProviderApple, Subject: "a-1", Email: "learner@example.com"},
		"other-google": {Provider: auth.ProviderGoogle, Subject: "g-2", Email: "learner@example.com"},
	})
	ctx := context.Background()

	google, err := harness.service.LoginWithGoogle(ctx, "google-token")
	require.NoError(t, err)
	apple, err := harness.service.LoginWithApple(ctx, "apple-token")
	require.NoError(t, err)
	require.Equal(t, google.User.ID, apple.User.ID)

	_, err = harness.service.LoginWithGoogle(ctx, "other-google")
	require.True(t, errors.Is(err, users.ErrIdentityConflict))
}

func TestLoginLegacyCreatesAndReuses(t *testing.T) {
	harness := newHarness(t, nil)
	ctx := context.Background()

	first, err := harness.service.LoginLegacy(ctx, LegacyRequest{Email: "legacy@example.com"})
	require.NoError(t, err)
	require.Equal(t, "legacy", first.User.Name)

	second, err := harness.service.LoginLegacy(ctx, LegacyRequest{Email: "legacy@example.com", Name: "Legacy User", GoogleSubject: "g-9"})
	require.NoError(t, err)
	require.Equal(t, first.User.ID, second.User.ID)
	require.Equal(t, "Legacy User", second.User.Name)

	_, err = harness.service.LoginLegacy(ctx, LegacyRequest{})
	require.ErrorIs(t, err, users.ErrInvalidInput)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Config{})
	require.Error(t, err)
}
