package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AyanAhmedKhan/careerly-backend/internal/database"
	"github.com/AyanAhmedKhan/careerly-backend/internal/models"
	"github.com/AyanAhmedKhan/careerly-backend/pkg/logger"
	"github.com/AyanAhmedKhan/careerly-backend/pkg/utils"
)

// messageHistoryLimit caps a single history page.
const messageHistoryLimit = 100

const conversationCacheTTL = 30 * time.Second

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	Conversation models.Conversation  `json:"conversation"`
	Partner      models.PublicProfile `json:"partner"`
	UnreadCount  int64                `json:"unreadCount"`
}

// GetConversations lists the current user's conversations, most recently
// active first, with the partner profile, last message and unread count.
func GetConversations(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	cacheKey := fmt.Sprintf("conversations:%s", userId)
	if database.Redis != nil {
		var cached []ConversationSummary
		if err := database.CacheGet(cacheKey, &cached); err == nil {
			c.JSON(http.StatusOK, gin.H{"conversations": cached})
			return
		}
	}

	var conversations []models.Conversation
	err := database.DB.
		Where("participant_one_id = ? OR participant_two_id = ?", userId, userId).
		Preload("LastMessage").
		Preload("ParticipantOne").
		Preload("ParticipantTwo").
		Order("last_message_at DESC NULLS LAST").
		Find(&conversations).Error
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch conversations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		partner := conv.ParticipantOne
		if partner.ID == userId {
			partner = conv.ParticipantTwo
		}

		var unread int64
		database.DB.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id != ? AND is_read = ?", conv.ID, userId, false).
			Count(&unread)

		summaries = append(summaries, ConversationSummary{
			Conversation: conv,
			Partner:      partner.Public(),
			UnreadCount:  unread,
		})
	}

	if database.Redis != nil {
		if err := database.CacheSet(cacheKey, summaries, conversationCacheTTL); err != nil {
			logger.Debug().Err(err).Msg("Conversation list cache write failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// CreateConversation finds or creates the single conversation between the
// current user and the given participant.
func CreateConversation(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	var req struct {
		ParticipantID string `json:"participantId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participantId required"})
		return
	}
	if req.ParticipantID == userId {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot start a conversation with yourself"})
		return
	}

	var partner models.User
	if err := database.DB.First(&partner, "id = ?", req.ParticipantID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	conv, err := ChatStore.FindOrCreateConversation(c.Request.Context(), userId, req.ParticipantID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to find or create conversation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	// Both sides' cached lists gain a conversation.
	redisListCache{}.InvalidateConversations(userId, req.ParticipantID)

	c.JSON(http.StatusOK, gin.H{"conversation": conv, "partner": partner.Public()})
}

// GetConversationMessages returns the last 100 messages of a conversation in
// ascending time order. Missing conversation and denied access look the same
// to the caller.
func GetConversationMessages(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	conversationID := c.Param("id")

	// Reject malformed IDs before touching the store.
	if !utils.IsUUID(conversationID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	conv, err := ChatStore.ConversationByID(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if !conv.HasParticipant(userId) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	// Newest 100, then served oldest-first.
	var messages []models.Message
	err = database.DB.
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(messageHistoryLimit).
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetOnlineUsers returns the presence registry's current snapshot. Advisory
// only; lost on restart.
func GetOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": Presence.OnlineIDs()})
}
