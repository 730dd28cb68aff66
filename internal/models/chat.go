package models

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/AyanAhmedKhan/careerly-backend/pkg/utils"
)

// MaxMessageLength bounds the trimmed message body.
const MaxMessageLength = 2000

// Conversation is a two-party message thread. The participant pair is
// canonicalized (ParticipantOneID < ParticipantTwoID) and carries a composite
// unique index, so any unordered pair of users maps to at most one row.
type Conversation struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ParticipantOneID string `gorm:"index:idx_conversation_pair,unique;type:text;not null" json:"participantOneId"`
	ParticipantTwoID string `gorm:"index:idx_conversation_pair,unique;type:text;not null" json:"participantTwoId"`

	ParticipantOne User `gorm:"foreignKey:ParticipantOneID" json:"participantOne,omitempty"`
	ParticipantTwo User `gorm:"foreignKey:ParticipantTwoID" json:"participantTwo,omitempty"`

	LastMessageID *string    `gorm:"type:text" json:"lastMessageId"`
	LastMessage   *Message   `gorm:"foreignKey:LastMessageID" json:"lastMessage,omitempty"`
	LastMessageAt *time.Time `gorm:"index" json:"lastMessageAt"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = utils.GenerateID()
	}
	return
}

// CanonicalPair orders two user IDs so a pair always lands on the same
// (one, two) columns regardless of who initiated.
func CanonicalPair(a, b string) (string, string) {
	if strings.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantOneID == userID || c.ParticipantTwoID == userID
}

// Message is a single chat utterance inside a conversation.
type Message struct {
	ID             string `gorm:"primaryKey;type:text" json:"id"`
	ConversationID string `gorm:"index;type:text;not null" json:"conversationId"`
	SenderID       string `gorm:"index;type:text;not null" json:"senderId"`

	Content string `gorm:"type:text;not null" json:"content"`

	IsRead bool       `gorm:"default:false" json:"isRead"`
	ReadAt *time.Time `json:"readAt"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = utils.GenerateID()
	}
	return
}
