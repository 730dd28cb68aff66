package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/AyanAhmedKhan/careerly-backend/pkg/utils"
)

type User struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string `json:"name"`
	Email    string `gorm:"uniqueIndex" json:"email"`
	Username string `gorm:"uniqueIndex" json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`

	Password string `json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = utils.GenerateID()
	}
	return
}

// PublicProfile strips everything a stranger should not see. The JSON tags
// already hide the password; this also drops the email.
type PublicProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Bio:      u.Bio,
		Image:    u.Image,
	}
}
