package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/AyanAhmedKhan/careerly-backend/pkg/utils"
)

// Connection is a directed follow edge between two users. A mutual pair of
// edges makes the users contacts for messaging purposes.
type Connection struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	FollowerID string `gorm:"index:idx_connection_edge,unique;type:text;not null" json:"followerId"`
	FolloweeID string `gorm:"index:idx_connection_edge,unique;type:text;not null" json:"followeeId"`

	Follower User `gorm:"foreignKey:FollowerID" json:"-"`
	Followee User `gorm:"foreignKey:FolloweeID" json:"followee,omitempty"`
}

func (c *Connection) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = utils.GenerateID()
	}
	return
}
