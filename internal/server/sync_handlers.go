package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

type syncUploadRequestPayload struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
	Version *int64          `json:"version"`
}

type syncDownloadResponsePayload struct {
	Payload json.RawMessage `json:"payload"`
	Version int64           `json:"version"`
}

func (h *httpHandler) handleSyncUpload(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		h.rejectAnonymous(c)
		return
	}
	var request syncUploadRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	id, err := h.sync.Upload(c.Request.Context(), userID, request.Payload, request.Version)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

func (h *httpHandler) handleSyncDownload(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		h.rejectAnonymous(c)
		return
	}
	snapshot, err := h.sync.Download(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, syncDownloadResponsePayload{Payload: snapshot.Payload, Version: snapshot.Version})
}
