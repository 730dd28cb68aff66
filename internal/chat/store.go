package chat

import (
	"context"
	"errors"
	"time"

	"github.com/AyanAhmedKhan/careerly-backend/internal/models"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Store is the persistence contract the messaging core depends on. The
// backing store is the sole source of truth for conversations and messages;
// the core never caches beyond the round-trip needed to build a broadcast
// payload.
type Store interface {
	ConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	FindOrCreateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	// TouchConversation updates the lastMessage pointer and activity
	// timestamp. Best-effort index data; not atomic with the message write.
	TouchConversation(ctx context.Context, conversationID, messageID string, at time.Time) error
	// MarkRead flips read=false to read=true on every message in the
	// conversation not authored by readerID. Returns the number updated.
	MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
	MessageByID(ctx context.Context, id string) (*models.Message, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
}

const uniqueViolation = "23505"

// GormStore implements Store on a gorm.DB (postgres in production, sqlite in
// tests).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindOrCreateConversation resolves the single conversation for a pair of
// users, creating it on first contact. The pair is canonicalized before the
// lookup so (A,B) and (B,A) hit the same row, and the unique index on the
// pair makes a concurrent double-create collapse into a retry read.
func (s *GormStore) FindOrCreateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	one, two := models.CanonicalPair(userA, userB)

	var conv models.Conversation
	err := s.db.WithContext(ctx).
		First(&conv, "participant_one_id = ? AND participant_two_id = ?", one, two).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = models.Conversation{ParticipantOneID: one, ParticipantTwoID: two}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the race; the winning row is the conversation.
			var existing models.Conversation
			if ferr := s.db.WithContext(ctx).
				First(&existing, "participant_one_id = ? AND participant_two_id = ?", one, two).Error; ferr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return &conv, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func (s *GormStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *GormStore) TouchConversation(ctx context.Context, conversationID, messageID string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_message_id": messageID,
			"last_message_at": at,
		}).Error
}

func (s *GormStore) MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = ?", conversationID, readerID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	return result.RowsAffected, result.Error
}

func (s *GormStore) MessageByID(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).Preload("Sender").First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *GormStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
