package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ravikumarch040/StudyAsist/internal/auth"
	"github.com/ravikumarch040/StudyAsist/internal/config"
	"github.com/ravikumarch040/StudyAsist/internal/database"
	"github.com/ravikumarch040/StudyAsist/internal/leaderboard"
	"github.com/ravikumarch040/StudyAsist/internal/logging"
	"github.com/ravikumarch040/StudyAsist/internal/login"
	"github.com/ravikumarch040/StudyAsist/internal/server"
	"github.com/ravikumarch040/StudyAsist/internal/sharing"
	"github.com/ravikumarch040/StudyAsist/internal/syncstore"
	"github.com/ravikumarch040/StudyAsist/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand(config.NewViper()).Execute(); err != nil {
		os.Exit(1)
	}
}

type commandOptions struct {
	cfgFile string
	envFile string
}

func newRootCommand(configViper *viper.Viper) *cobra.Command {
	options := &commandOptions{}
	rootCmd := &cobra.Command{
		Use:          "studyasist-api",
		Short:        "StudyAsist backend service",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(configViper, *options)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), configViper)
		},
	}

	setupFlags(rootCmd, configViper, options)
	return rootCmd
}

func setupFlags(cmd *cobra.Command, configViper *viper.Viper, options *commandOptions) {
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&options.cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&options.envFile, "env-file", ".env", "Path to dotenv file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("api-prefix", defaults.GetString("http.api_prefix"), "Route prefix for API endpoints")
	cmd.PersistentFlags().String("database-url", defaults.GetString("database.url"), "Database connection string (sqlite:// or postgres://)")
	cmd.PersistentFlags().String("google-client-id", defaults.GetString("google.client_id"), "Google OAuth client ID")
	cmd.PersistentFlags().String("apple-bundle-id", defaults.GetString("apple.bundle_id"), "Apple bundle ID")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Access token TTL in minutes")
	cmd.PersistentFlags().String("redis-url", defaults.GetString("redis.url"), "Redis URL for the shared JWKS cache")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Access token signing secret (overrides env)")

	bindFlag(cmd, configViper, "http.address", "http-address")
	bindFlag(cmd, configViper, "http.api_prefix", "api-prefix")
	bindFlag(cmd, configViper, "database.url", "database-url")
	bindFlag(cmd, configViper, "google.client_id", "google-client-id")
	bindFlag(cmd, configViper, "apple.bundle_id", "apple-bundle-id")
	bindFlag(cmd, configViper, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, configViper, "redis.url", "redis-url")
	bindFlag(cmd, configViper, "log.level", "log-level")
	bindFlag(cmd, configViper, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, configViper *viper.Viper, key, flag string) {
	if err := configViper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig(configViper *viper.Viper, options commandOptions) error {
	if options.envFile != "" {
		if err := godotenv.Load(options.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if options.cfgFile == "" {
		return nil
	}
	configViper.SetConfigFile(options.cfgFile)
	if err := configViper.ReadInConfig(); err != nil {
		return err
	}

	return nil
}

func runServer(ctx context.Context, configViper *viper.Viper) error {
	appConfig, err := config.Load(configViper)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseURL, logger,
		&users.User{},
		&leaderboard.Entry{},
		&sharing.SharedAssessment{},
		&syncstore.Payload{},
	)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	keyCache, closeCache := buildKeyCache(ctx, appConfig, logger)
	defer closeCache()

	googleVerifier, err := auth.NewGoogleVerifier(auth.GoogleVerifierConfig{
		Audience:     appConfig.GoogleClientID,
		JWKSURL:      appConfig.GoogleJWKSURL,
		KeyCache:     keyCache,
		CacheTTL:     appConfig.JWKSCacheTTL,
		FetchTimeout: appConfig.JWKSTimeout,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if !googleVerifier.Configured() {
		logger.Warn("google.client_id is empty; Google sign-in will reject every token")
	}
	appleVerifier, err := auth.NewAppleVerifier(auth.AppleVerifierConfig{
		BundleID:     appConfig.AppleBundleID,
		JWKSURL:      appConfig.AppleJWKSURL,
		KeyCache:     keyCache,
		CacheTTL:     appConfig.JWKSCacheTTL,
		FetchTimeout: appConfig.JWKSTimeout,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	sessionIssuer, err := auth.NewSessionIssuer(auth.SessionIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Algorithm:     appConfig.TokenAlgorithm,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}
	sessionValidator, err := auth.NewSessionValidator(sessionIssuer)
	if err != nil {
		return err
	}

	directory, err := users.NewDirectory(users.DirectoryConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}

	loginService, err := login.NewService(login.Config{
		Verifier:  auth.NewIdentityVerifier(googleVerifier, appleVerifier),
		Directory: directory,
		Issuer:    sessionIssuer,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	leaderboardService, err := leaderboard.NewService(leaderboard.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	shareRegistry, err := sharing.NewRegistry(sharing.RegistryConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	syncStore, err := syncstore.NewStore(syncstore.Config{Database: db, Logger: logger})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Login:       loginService,
		Sessions:    sessionValidator,
		Users:       directory,
		Leaderboard: leaderboardService,
		Sharing:     shareRegistry,
		Sync:        syncStore,
		APIPrefix:   appConfig.APIPrefix,
		CORSOrigins: appConfig.CORSOrigins,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("api_prefix", appConfig.APIPrefix))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildKeyCache prefers Redis when configured and falls back to process memory.
func buildKeyCache(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (auth.KeySetCache, func()) {
	if appConfig.RedisURL == "" {
		return auth.NewMemoryKeySetCache(time.Now), func() {}
	}
	redisCache, err := auth.NewRedisKeySetCache(ctx, appConfig.RedisURL, logger)
	if err != nil {
		logger.Warn("redis key cache unavailable; using in-memory cache", zap.Error(err))
		return auth.NewMemoryKeySetCache(time.Now), func() {}
	}
	return redisCache, func() {
		if closeErr := redisCache.Close(); closeErr != nil {
			logger.Warn("redis key cache close failed", zap.Error(closeErr))
		}
	}
}
