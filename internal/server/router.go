package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ravikumarch040/StudyAsist/internal/auth"
	"github.com/ravikumarch040/StudyAsist/internal/leaderboard"
	"github.com/ravikumarch040/StudyAsist/internal/login"
	"github.com/ravikumarch040/StudyAsist/internal/sharing"
	"github.com/ravikumarch040/StudyAsist/internal/syncstore"
	"github.com/ravikumarch040/StudyAsist/internal/users"
	"go.uber.org/zap"
)

const (
	userIDContextKey = "studyasist_user_id"
	serviceName      = "StudyAsist API"
)

var (
	errMissingLoginService    = errors.New("login service dependency required")
	errMissingSessions        = errors.New("session validator dependency required")
	errMissingUserLookup      = errors.New("user lookup dependency required")
	errMissingLeaderboard     = errors.New("leaderboard dependency required")
	errMissingShareRegistry   = errors.New("share registry dependency required")
	errMissingSyncStore       = errors.New("sync store dependency required")
	errMissingCallerInContext = errors.New("authenticated caller missing from context")
)

type LoginService interface {
	LoginWithGoogle(ctx context.Context, idToken string) (login.Result, error)
	LoginWithApple(ctx context.Context, idToken string) (login.Result, error)
	LoginLegacy(ctx context.Context, request login.LegacyRequest) (login.Result, error)
}

type SessionValidator interface {
	ValidateRequest(r *http.Request) (string, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id string) (users.User, error)
}

type Leaderboard interface {
	Submit(ctx context.Context, userID string, submission leaderboard.Submission) (leaderboard.Entry, error)
	Top(ctx context.Context, limit int) ([]leaderboard.RankedEntry, error)
	Mine(ctx context.Context, userID string, limit int) ([]leaderboard.Entry, error)
}

type ShareRegistry interface {
	Create(ctx context.Context, request sharing.CreateRequest) (sharing.Issued, error)
	Resolve(ctx context.Context, code string) (sharing.Snapshot, error)
}

type SyncStore interface {
	Upload(ctx context.Context, userID string, payload json.RawMessage, version *int64) (string, error)
	Download(ctx context.Context, userID string) (syncstore.Snapshot, error)
}

// Dependencies wires the HTTP surface to its services.
type Dependencies struct {
	Login       LoginService
	Sessions    SessionValidator
	Users       UserLookup
	Leaderboard Leaderboard
	Sharing     ShareRegistry
	Sync        SyncStore
	APIPrefix   string
	CORSOrigins []string
	Logger      *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	switch {
	case deps.Login == nil:
		return nil, errMissingLoginService
	case deps.Sessions == nil:
		return nil, errMissingSessions
	case deps.Users == nil:
		return nil, errMissingUserLookup
	case deps.Leaderboard == nil:
		return nil, errMissingLeaderboard
	case deps.Sharing == nil:
		return nil, errMissingShareRegistry
	case deps.Sync == nil:
		return nil, errMissingSyncStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.CORSOrigins))

	handler := &httpHandler{
		login:       deps.Login,
		sessions:    deps.Sessions,
		users:       deps.Users,
		leaderboard: deps.Leaderboard,
		sharing:     deps.Sharing,
		sync:        deps.Sync,
		logger:      logger,
	}

	router.GET("/", handler.handleRoot)
	router.GET("/health", handler.handleHealth)

	api := router.Group(apiBasePath(deps.APIPrefix))
	api.POST("/auth/google", handler.handleGoogleAuth)
	api.POST("/auth/apple", handler.handleAppleAuth)
	api.POST("/auth/login", handler.handleLegacyLogin)
	api.GET("/leaderboard/top", handler.handleLeaderboardTop)
	api.GET("/share/resolve/:code", handler.handleShareResolve)

	protected := api.Group("")
	protected.Use(handler.authorizeRequest)
	protected.GET("/auth/me", handler.handleMe)
	protected.POST("/leaderboard/submit", handler.handleLeaderboardSubmit)
	protected.GET("/leaderboard/me", handler.handleLeaderboardMine)
	protected.POST("/share/create", handler.handleShareCreate)
	protected.POST("/sync/upload", handler.handleSyncUpload)
	protected.GET("/sync/download", handler.handleSyncDownload)

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed = append(allowed, origin)
		}
	}
	if len(allowed) == 0 || containsWildcard(allowed) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowed
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func apiBasePath(prefix string) string {
	trimmed := strings.Trim(strings.TrimSpace(prefix), "/")
	return "/" + trimmed
}

type httpHandler struct {
	login       LoginService
	sessions    SessionValidator
	users       UserLookup
	leaderboard Leaderboard
	sharing     ShareRegistry
	sync        SyncStore
	logger      *zap.Logger
}

func (h *httpHandler) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	userID, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingBearerToken):
			h.logger.Debug("bearer token missing", zap.String("path", c.FullPath()))
		case errors.Is(err, auth.ErrExpiredSessionToken):
			h.logger.Info("token validation failed", zap.Error(err))
		default:
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

func callerID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDContextKey)
	return userID, userID != ""
}

func (h *httpHandler) rejectAnonymous(c *gin.Context) {
	h.logger.Error("protected handler reached without caller", zap.Error(errMissingCallerInContext))
	c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}
