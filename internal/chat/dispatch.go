package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AyanAhmedKhan/careerly-backend/internal/models"
	"github.com/AyanAhmedKhan/careerly-backend/pkg/logger"
	"gorm.io/gorm"
)

// Client-visible rejection reasons. Everything else surfaces as ErrStore so
// store internals never leak to the socket.
var (
	ErrEmptyMessage       = errors.New("message text required")
	ErrMessageTooLong     = errors.New("message text too long")
	ErrConversationAccess = errors.New("conversation not found or access denied")
	ErrStore              = errors.New("something went wrong")
)

type SendMessageInput struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	ReceiverID     string `json:"receiverId"`
}

type TypingInput struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

type MarkReadInput struct {
	ConversationID string `json:"conversationId"`
}

// ListCache drops cached conversation-list responses for the given users
// whenever the data behind them changes. Implementations must tolerate
// being called with users that have nothing cached.
type ListCache interface {
	InvalidateConversations(userIDs ...string)
}

// Dispatcher runs the messaging protocol: it validates and authorizes
// inbound events, persists through the Store, and returns the broadcasts to
// perform as explicit effects. It owns no transport state, so the whole
// state machine is testable with a fake emitter.
type Dispatcher struct {
	store    Store
	presence *Registry
	cache    ListCache // optional; nil disables invalidation
}

func NewDispatcher(store Store, presence *Registry, cache ListCache) *Dispatcher {
	return &Dispatcher{store: store, presence: presence, cache: cache}
}

// Presence accessor for REST snapshots.
func (d *Dispatcher) Presence() *Registry {
	return d.presence
}

// Connected registers presence for a freshly authenticated connection and
// announces the user globally.
func (d *Dispatcher) Connected(socketID string, user models.PublicProfile) []Effect {
	d.presence.Register(user.ID, socketID, user)
	return []Effect{{
		Room:    PresenceRoom,
		Event:   "user-online",
		Payload: map[string]interface{}{"userId": user.ID},
	}}
}

// Disconnected clears presence on transport loss. The offline announcement
// only fires when this socket still owned the presence entry, so a stale
// disconnect after a reconnect stays silent.
func (d *Dispatcher) Disconnected(userID, socketID string) []Effect {
	if !d.presence.Drop(userID, socketID) {
		return nil
	}
	return []Effect{{
		Room:    PresenceRoom,
		Event:   "user-offline",
		Payload: map[string]interface{}{"userId": userID},
	}}
}

// SendMessage runs the send state machine: validate, authorize, persist,
// then fan out. On success it returns the persisted message (sender
// populated) and the broadcasts to perform. Failure before persistence
// leaves all state untouched.
func (d *Dispatcher) SendMessage(ctx context.Context, senderID string, in SendMessageInput) (*models.Message, []Effect, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, nil, ErrEmptyMessage
	}
	if len(text) > models.MaxMessageLength {
		return nil, nil, ErrMessageTooLong
	}

	conv, err := d.store.ConversationByID(ctx, in.ConversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrConversationAccess
		}
		return nil, nil, d.storeFailure("lookup conversation", err)
	}
	// Missing conversation and denied access report identically.
	if !conv.HasParticipant(senderID) {
		return nil, nil, ErrConversationAccess
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        text,
	}
	if err := d.store.CreateMessage(ctx, msg); err != nil {
		return nil, nil, d.storeFailure("persist message", err)
	}

	now := time.Now()
	if err := d.store.TouchConversation(ctx, conv.ID, msg.ID, now); err != nil {
		// The message is durable; the pointer is only list-ordering index
		// data, so log and carry on.
		logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("Failed to update conversation last-message pointer")
	}

	// Both participants' cached conversation lists (ordering, last message,
	// unread count) are stale the moment the message lands.
	if d.cache != nil {
		d.cache.InvalidateConversations(conv.ParticipantOneID, conv.ParticipantTwoID)
	}

	populated, err := d.store.MessageByID(ctx, msg.ID)
	if err != nil {
		logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to reload message with sender")
		populated = msg
	}

	effects := []Effect{{
		Room:    ConversationRoom(conv.ID),
		Event:   "new-message",
		Payload: populated,
	}}

	// Targeted notification when the receiver is online, delivered to their
	// personal room regardless of whether they already sit in the
	// conversation room. Clients de-duplicate by message ID.
	if _, online := d.presence.Find(in.ReceiverID); online && conv.HasParticipant(in.ReceiverID) {
		sender, _ := d.presence.Find(senderID)
		effects = append(effects, Effect{
			Room:  in.ReceiverID,
			Event: "message-notification",
			Payload: map[string]interface{}{
				"conversationId": conv.ID,
				"message":        populated,
				"sender":         sender.User,
			},
		})
	}

	return populated, effects, nil
}

// Typing relays an ephemeral typing signal to the conversation room,
// skipping the sender's own socket. Nothing is persisted or authorized
// beyond the connection itself.
func (d *Dispatcher) Typing(senderID, senderSocketID string, in TypingInput) []Effect {
	if in.ConversationID == "" {
		return nil
	}
	entry, _ := d.presence.Find(senderID)
	return []Effect{{
		Room:          ConversationRoom(in.ConversationID),
		Event:         "user-typing",
		ExcludeSocket: senderSocketID,
		Payload: map[string]interface{}{
			"userId":   senderID,
			"userName": entry.User.Name,
			"isTyping": in.IsTyping,
		},
	}}
}

// MarkRead bulk-flips unread messages from the other participant and tells
// the room. Non-participants (and unknown conversations) no-op silently;
// this is a passive background action, not worth an error event.
func (d *Dispatcher) MarkRead(ctx context.Context, userID, socketID string, in MarkReadInput) ([]Effect, error) {
	conv, err := d.store.ConversationByID(ctx, in.ConversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, d.storeFailure("lookup conversation", err)
	}
	if !conv.HasParticipant(userID) {
		return nil, nil
	}

	if _, err := d.store.MarkRead(ctx, conv.ID, userID, time.Now()); err != nil {
		return nil, d.storeFailure("mark messages read", err)
	}

	// The requester's unread counts just changed.
	if d.cache != nil {
		d.cache.InvalidateConversations(userID)
	}

	return []Effect{{
		Room:          ConversationRoom(conv.ID),
		Event:         "messages-read",
		ExcludeSocket: socketID,
		Payload: map[string]interface{}{
			"conversationId": conv.ID,
			"userId":         userID,
		},
	}}, nil
}

// storeFailure logs the real error and hands the caller the generic one.
func (d *Dispatcher) storeFailure(op string, err error) error {
	logger.Error().Err(err).Str("op", op).Msg("Chat store failure")
	return ErrStore
}
