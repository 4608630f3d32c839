package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ravikumarch040/StudyAsist/internal/sharing"
)

type createShareRequestPayload struct {
	Title          string          `json:"title"`
	AssessmentData json.RawMessage `json:"assessment_data" binding:"required"`
	ExpiresHours   *int            `json:"expires_hours"`
}

type createShareResponsePayload struct {
	Code      string  `json:"code"`
	ExpiresAt *string `json:"expires_at"`
}

type resolveShareResponsePayload struct {
	Title          string          `json:"title"`
	AssessmentData json.RawMessage `json:"assessment_data"`
}

func (h *httpHandler) handleShareCreate(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		h.rejectAnonymous(c)
		return
	}
	var request createShareRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	issued, err := h.sharing.Create(c.Request.Context(), sharing.CreateRequest{
		OwnerID:  userID,
		Title:    request.Title,
		Data:     request.AssessmentData,
		TTLHours: request.ExpiresHours,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := createShareResponsePayload{Code: issued.Code}
	if issued.ExpiresAt != nil {
		formatted := issued.ExpiresAt.UTC().Format(time.RFC3339)
		response.ExpiresAt = &formatted
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleShareResolve(c *gin.Context) {
	snapshot, err := h.sharing.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolveShareResponsePayload{Title: snapshot.Title, AssessmentData: snapshot.Data})
}
