package controllers

import (
	"errors"
	"net/http"

	"clinic-chat/middlewares"
	"clinic-chat/models"
	"clinic-chat/services"
	"clinic-chat/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// MessageController serves the durable message history.
type MessageController struct {
	Repo services.MessageRepository
}

func NewMessageController(repo services.MessageRepository) *MessageController {
	return &MessageController{Repo: repo}
}

// GetHistory returns the conversation between user1 and user2, or every
// message addressed to receiverId.
func (mc *MessageController) GetHistory(c *gin.Context) {
	user1, user2 := c.Query("user1"), c.Query("user2")
	receiverID := c.Query("receiverId")

	var (
		messages []models.Message
		err      error
	)
	switch {
	case user1 != "" && user2 != "":
		if !authorized(c, user1, user2) {
			return
		}
		messages, err = mc.Repo.Between(c.Request.Context(), user1, user2)
	case receiverID != "":
		if !authorized(c, receiverID) {
			return
		}
		messages, err = mc.Repo.ReceivedBy(c.Request.Context(), receiverID)
	default:
		utils.RespondError(c, http.StatusBadRequest, "user1 and user2, or receiverId, are required")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch history")
		utils.RespondError(c, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"messages": messages})
}

// GetDoctorChat returns every message a doctor sent or received.
func (mc *MessageController) GetDoctorChat(c *gin.Context) {
	doctorID := c.Query("doctorId")
	if doctorID == "" {
		utils.RespondError(c, http.StatusBadRequest, "doctorId is required")
		return
	}
	if !authorized(c, doctorID) {
		return
	}
	messages, err := mc.Repo.ForDoctor(c.Request.Context(), doctorID)
	if err != nil {
		log.Error().Err(err).Str("doctor", doctorID).Msg("failed to fetch doctor chat")
		utils.RespondError(c, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"messages": messages})
}

// RegisterMessage stores a message sent over the live channel.
func (mc *MessageController) RegisterMessage(c *gin.Context) {
	var msg models.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if p, ok := middlewares.CurrentParticipant(c); ok && p.ID != msg.SenderID {
		utils.RespondError(c, http.StatusForbidden, "sender does not match token")
		return
	}

	err := mc.Repo.Save(c.Request.Context(), &msg)
	switch {
	case errors.Is(err, models.ErrInvalidMessage):
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrDuplicateMessage):
		utils.RespondError(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("id", msg.ID).Msg("failed to store message")
		utils.RespondError(c, http.StatusInternalServerError, "failed to store message")
		return
	}
	utils.RespondSuccess(c, http.StatusCreated, gin.H{"message": msg})
}

// authorized rejects the request unless the authenticated participant is one
// of ids. Without authentication every request passes.
func authorized(c *gin.Context, ids ...string) bool {
	p, ok := middlewares.CurrentParticipant(c)
	if !ok {
		return true
	}
	for _, id := range ids {
		if id == p.ID {
			return true
		}
	}
	utils.RespondError(c, http.StatusForbidden, "not a participant of this conversation")
	return false
}
