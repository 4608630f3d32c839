package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ravikumarch040/StudyAsist/internal/leaderboard"
)

type submitScoreRequestPayload struct {
	Score           *float64 `json:"score" binding:"required"`
	MaxScore        *float64 `json:"max_score" binding:"required"`
	AssessmentTitle string   `json:"assessment_title"`
	GoalName        string   `json:"goal_name"`
	StreakDays      int      `json:"streak_days"`
}

type rankedEntryPayload struct {
	Rank       int     `json:"rank"`
	UserName   string  `json:"user_name"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Percentage float64 `json:"percentage"`
	StreakDays int     `json:"streak_days"`
}

type ownEntryPayload struct {
	ID              string  `json:"id"`
	Score           float64 `json:"score"`
	MaxScore        float64 `json:"max_score"`
	Percentage      float64 `json:"percentage"`
	AssessmentTitle *string `json:"assessment_title"`
	GoalName        *string `json:"goal_name"`
	StreakDays      int     `json:"streak_days"`
	CreatedAt       string  `json:"created_at"`
}

func (h *httpHandler) handleLeaderboardSubmit(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		h.rejectAnonymous(c)
		return
	}
	var request submitScoreRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	entry, err := h.leaderboard.Submit(c.Request.Context(), userID, leaderboard.Submission{
		Score:           *request.Score,
		MaxScore:        *request.MaxScore,
		AssessmentTitle: request.AssessmentTitle,
		GoalName:        request.GoalName,
		StreakDays:      request.StreakDays,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": entry.ID})
}

func (h *httpHandler) handleLeaderboardTop(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	ranked, err := h.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := make([]rankedEntryPayload, 0, len(ranked))
	for _, entry := range ranked {
		response = append(response, rankedEntryPayload{
			Rank:       entry.Rank,
			UserName:   entry.UserName,
			Score:      entry.Score,
			MaxScore:   entry.MaxScore,
			Percentage: entry.Percentage,
			StreakDays: entry.StreakDays,
		})
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleLeaderboardMine(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		h.rejectAnonymous(c)
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	entries, err := h.leaderboard.Mine(c.Request.Context(), userID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := make([]ownEntryPayload, 0, len(entries))
	for _, entry := range entries {
		response = append(response, ownEntryPayload{
			ID:              entry.ID,
			Score:           entry.Score,
			MaxScore:        entry.MaxScore,
			Percentage:      entry.Percentage(),
			AssessmentTitle: entry.AssessmentTitle,
			GoalName:        entry.GoalName,
			StreakDays:      entry.StreakDays,
			CreatedAt:       entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

// parseLimit returns 0 when the query omits limit; the service applies its default.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
		return 0, false
	}
	return limit, true
}
