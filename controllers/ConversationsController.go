package controllers

import (
	"net/http"

	"clinic-chat/middlewares"
	"clinic-chat/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GetConversations lists the counterparts of participantId with the latest
// message of each conversation.
func (mc *MessageController) GetConversations(c *gin.Context) {
	participantID := c.Query("participantId")
	if p, ok := middlewares.CurrentParticipant(c); ok && participantID == "" {
		participantID = p.ID
	}
	if participantID == "" {
		utils.RespondError(c, http.StatusBadRequest, "participantId is required")
		return
	}
	if !authorized(c, participantID) {
		return
	}

	conversations, err := mc.Repo.Conversations(c.Request.Context(), participantID)
	if err != nil {
		log.Error().Err(err).Str("participant", participantID).Msg("failed to fetch conversations")
		utils.RespondError(c, http.StatusInternalServerError, "failed to fetch conversations")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"conversations": conversations})
}
