package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AyanAhmedKhan/careerly-backend/internal/database"
	"github.com/AyanAhmedKhan/careerly-backend/internal/models"
	"github.com/AyanAhmedKhan/careerly-backend/pkg/errors"
)

// GetUser returns a public profile by ID.
func GetUser(c *gin.Context) {
	var user models.User
	if err := database.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.Error(errors.NotFound("User not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

// GetContacts returns users mutually connected with the current user; they
// are the candidates for starting a conversation.
func GetContacts(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	var contacts []models.User
	err := database.DB.
		Joins("JOIN connections outbound ON outbound.followee_id = users.id AND outbound.follower_id = ?", userId).
		Joins("JOIN connections inbound ON inbound.follower_id = users.id AND inbound.followee_id = ?", userId).
		Find(&contacts).Error
	if err != nil {
		c.Error(errors.Internal("Failed to fetch contacts"))
		return
	}

	profiles := make([]models.PublicProfile, 0, len(contacts))
	for _, u := range contacts {
		profiles = append(profiles, u.Public())
	}

	c.JSON(http.StatusOK, gin.H{"contacts": profiles})
}
