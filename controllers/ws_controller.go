package controllers

import (
	"net/http"

	"clinic-chat/middlewares"
	"clinic-chat/services"
	"clinic-chat/utils"

	"github.com/gin-gonic/gin"
)

// WSController upgrades to the live channel. The connection belongs to the
// authenticated participant, or to senderId when authentication is off.
func WSController(m *services.WSManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		participantID := c.Query("senderId")
		if p, ok := middlewares.CurrentParticipant(c); ok {
			if participantID != "" && participantID != p.ID {
				utils.RespondError(c, http.StatusForbidden, "senderId does not match token")
				return
			}
			participantID = p.ID
		}
		if participantID == "" {
			utils.RespondError(c, http.StatusBadRequest, "senderId is required")
			return
		}
		services.HandleWebSocket(c, m, participantID)
	}
}
