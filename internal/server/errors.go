package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ravikumarch040/StudyAsist/internal/auth"
	"github.com/ravikumarch040/StudyAsist/internal/leaderboard"
	"github.com/ravikumarch040/StudyAsist/internal/login"
	"github.com/ravikumarch040/StudyAsist/internal/serviceerr"
	"github.com/ravikumarch040/StudyAsist/internal/sharing"
	"github.com/ravikumarch040/StudyAsist/internal/syncstore"
	"github.com/ravikumarch040/StudyAsist/internal/users"
	"go.uber.org/zap"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{auth.ErrInvalidIdentityToken, http.StatusUnauthorized, "invalid_token"},
	{login.ErrMissingEmail, http.StatusUnauthorized, "missing_email"},
	{login.ErrMissingSubject, http.StatusUnauthorized, "missing_subject"},
	{login.ErrMissingEmailOnFirstLogin, http.StatusBadRequest, "missing_email_on_first_login"},
	{users.ErrIdentityConflict, http.StatusConflict, "identity_conflict"},
	{users.ErrInvalidInput, http.StatusBadRequest, "invalid_request"},
	{users.ErrUserNotFound, http.StatusUnauthorized, "unauthorized"},
	{leaderboard.ErrInvalidSubmission, http.StatusBadRequest, "invalid_request"},
	{sharing.ErrInvalidInput, http.StatusBadRequest, "invalid_request"},
	{sharing.ErrNotFound, http.StatusNotFound, "share_not_found"},
	{sharing.ErrExpired, http.StatusGone, "share_expired"},
	{syncstore.ErrInvalidPayload, http.StatusBadRequest, "invalid_payload"},
}

func classifyError(err error) (int, string) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.target) {
			return mapping.status, mapping.code
		}
	}
	if code, ok := serviceerr.Code(err); ok {
		return http.StatusInternalServerError, code
	}
	return http.StatusInternalServerError, "internal_error"
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	status, code := classifyError(err)
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.String("code", code), zap.Error(err))
	case status == http.StatusUnauthorized:
		h.logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": code})
}

func respondInvalidRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
}
