package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ravikumarch040/StudyAsist/internal/login"
)

const tokenTypeBearer = "bearer"

type idTokenRequestPayload struct {
	IDToken string `json:"id_token"`
}

type legacyLoginRequestPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	GoogleID string `json:"google_id"`
	AppleID  string `json:"apple_id"`
}

type authResponsePayload struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type meResponsePayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *httpHandler) handleGoogleAuth(c *gin.Context) {
	idToken, ok := bindIDToken(c)
	if !ok {
		return
	}
	result, err := h.login.LoginWithGoogle(c.Request.Context(), idToken)
	h.respondLogin(c, result, err)
}

func (h *httpHandler) handleAppleAuth(c *gin.Context) {
	idToken, ok := bindIDToken(c)
	if !ok {
		return
	}
	result, err := h.login.LoginWithApple(c.Request.Context(), idToken)
	h.respondLogin(c, result, err)
}

func (h *httpHandler) handleLegacyLogin(c *gin.Context) {
	var request legacyLoginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	result, err := h.login.LoginLegacy(c.Request.Context(), login.LegacyRequest{
		Email:         request.Email,
		Name:          request.Name,
		GoogleSubject: request.GoogleID,
		AppleSubject:  request.AppleID,
	})
	h.respondLogin(c, result, err)
}

func (h *httpHandler) handleMe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		h.rejectAnonymous(c)
		return
	}
	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meResponsePayload{ID: user.ID, Email: user.Email, Name: user.Name})
}

func bindIDToken(c *gin.Context) (string, bool) {
	var request idTokenRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.IDToken) == "" {
		respondInvalidRequest(c)
		return "", false
	}
	return strings.TrimSpace(request.IDToken), true
}

func (h *httpHandler) respondLogin(c *gin.Context, result login.Result, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: result.Token.AccessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   result.Token.ExpiresIn,
	})
}
