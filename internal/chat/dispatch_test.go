package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AyanAhmedKhan/careerly-backend/internal/models"
)

type recordedBroadcast struct {
	Room          string
	Event         string
	Payload       interface{}
	ExcludeSocket string
}

type fakeEmitter struct {
	broadcasts []recordedBroadcast
}

func (f *fakeEmitter) Broadcast(room, event string, payload interface{}) {
	f.broadcasts = append(f.broadcasts, recordedBroadcast{Room: room, Event: event, Payload: payload})
}

func (f *fakeEmitter) BroadcastExcluding(excludeSocketID, room, event string, payload interface{}) {
	f.broadcasts = append(f.broadcasts, recordedBroadcast{Room: room, Event: event, Payload: payload, ExcludeSocket: excludeSocketID})
}

type fakeListCache struct {
	invalidated []string
}

func (f *fakeListCache) InvalidateConversations(userIDs ...string) {
	f.invalidated = append(f.invalidated, userIDs...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *GormStore, *Registry) {
	t.Helper()
	store, db := newTestStore(t)
	seedUsers(t, db, "alice", "bob", "mallory")
	registry := NewRegistry()
	return NewDispatcher(store, registry, nil), store, registry
}

func seedConversation(t *testing.T, store *GormStore, a, b string) *models.Conversation {
	t.Helper()
	conv, err := store.FindOrCreateConversation(context.Background(), a, b)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return conv
}

func countMessages(t *testing.T, store *GormStore, conversationID string) int64 {
	t.Helper()
	var count int64
	store.db.Model(&models.Message{}).Where("conversation_id = ?", conversationID).Count(&count)
	return count
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	conv := seedConversation(t, store, "alice", "bob")

	for _, text := range []string{"", "   ", "\n\t "} {
		_, effects, err := d.SendMessage(context.Background(), "alice", SendMessageInput{
			ConversationID: conv.ID,
			Text:           text,
			ReceiverID:     "bob",
		})
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Empty(t, effects)
	}

	assert.Equal(t, int64(0), countMessages(t, store, conv.ID))
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	conv := seedConversation(t, store, "alice", "bob")

	_, effects, err := d.SendMessage(context.Background(), "mallory", SendMessageInput{
		ConversationID: conv.ID,
		Text:           "let me in",
		ReceiverID:     "bob",
	})
	assert.ErrorIs(t, err, ErrConversationAccess)
	assert.Empty(t, effects)
	assert.Equal(t, int64(0), countMessages(t, store, conv.ID))
}

func TestSendMessageUnknownConversationLooksLikeDenied(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, _, err := d.SendMessage(context.Background(), "alice", SendMessageInput{
		ConversationID: "no-such-conversation",
		Text:           "hello?",
		ReceiverID:     "bob",
	})
	assert.ErrorIs(t, err, ErrConversationAccess)
}

func TestSendMessagePersistsAndUpdatesConversation(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	conv := seedConversation(t, store, "alice", "bob")

	msg, effects, err := d.SendMessage(context.Background(), "alice", SendMessageInput{
		ConversationID: conv.ID,
		Text:           "  hi bob  ",
		ReceiverID:     "bob",
	})
	assert.NoError(t, err)
	assert.Equal(t, "hi bob", msg.Content)
	assert.False(t, msg.IsRead)
	assert.Equal(t, "User alice", msg.Sender.Name)

	reloaded, err := store.ConversationByID(context.Background(), conv.ID)
	assert.NoError(t, err)
	if assert.NotNil(t, reloaded.LastMessageID) {
		assert.Equal(t, msg.ID, *reloaded.LastMessageID)
	}

	// Receiver offline: room broadcast only, no targeted notification.
	if assert.Len(t, effects, 1) {
		assert.Equal(t, ConversationRoom(conv.ID), effects[0].Room)
		assert.Equal(t, "new-message", effects[0].Event)
	}
}

func TestSendMessageNotifiesOnlineReceiver(t *testing.T) {
	d, store, registry := newTestDispatcher(t)
	conv := seedConversation(t, store, "alice", "bob")

	registry.Register("alice", "sock-a", models.PublicProfile{ID: "alice", Name: "User alice"})
	registry.Register("bob", "sock-b", models.PublicProfile{ID: "bob", Name: "User bob"})

	_, effects, err := d.SendMessage(context.Background(), "alice", SendMessageInput{
		ConversationID: conv.ID,
		Text:           "hi",
		ReceiverID:     "bob",
	})
	assert.NoError(t, err)

	// Room fan-out plus the personal-room notification; the notification is
	// not suppressed even if bob also sits in the conversation room, clients
	// de-duplicate by message ID.
	if assert.Len(t, effects, 2) {
		assert.Equal(t, ConversationRoom(conv.ID), effects[0].Room)
		assert.Equal(t, "new-message", effects[0].Event)

		assert.Equal(t, "bob", effects[1].Room)
		assert.Equal(t, "message-notification", effects[1].Event)
		payload := effects[1].Payload.(map[string]interface{})
		assert.Equal(t, conv.ID, payload["conversationId"])
		assert.Equal(t, models.PublicProfile{ID: "alice", Name: "User alice"}, payload["sender"])
	}
}

func TestSendMessageIgnoresForgedReceiver(t *testing.T) {
	d, store, registry := newTestDispatcher(t)
	conv := seedConversation(t, store, "alice", "bob")

	// eve is online but not a participant; naming her as the receiver must
	// not leak conversation content into her personal room.
	registry.Register("eve", "sock-e", models.PublicProfile{ID: "eve", Name: "User eve"})

	_, effects, err := d.SendMessage(context.Background(), "alice", SendMessageInput{
		ConversationID: conv.ID,
		Text:           "hi",
		ReceiverID:     "eve",
	})
	assert.NoError(t, err)

	if assert.Len(t, effects, 1) {
		assert.Equal(t, ConversationRoom(conv.ID), effects[0].Room)
		assert.Equal(t, "new-message", effects[0].Event)
	}
}

func TestSendMessageFIFOPerConnection(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	conv := seedConversation(t, store, "alice", "bob")
	emitter := &fakeEmitter{}

	for _, text := range []string{"first", "second"} {
		_, effects, err := d.SendMessage(context.Background(), "alice", SendMessageInput{
			ConversationID: conv.ID,
			Text:           text,
			ReceiverID:     "bob",
		})
		assert.NoError(t, err)
		Apply(emitter, effects)
	}

	assert.Equal(t, int64(2), countMessages(t, store, conv.ID))
	if assert.Len(t, emitter.broadcasts, 2) {
		first := emitter.broadcasts[0].Payload.(*models.Message)
		second := emitter.broadcasts[1].Payload.(*models.Message)
		assert.Equal(t, "first", first.Content)
		assert.Equal(t, "second", second.Content)
	}
}

func TestSendMessageInvalidatesBothParticipantsCaches(t *testing.T) {
	store, db := newTestStore(t)
	seedUsers(t, db, "alice", "bob")
	cache := &fakeListCache{}
	d := NewDispatcher(store, NewRegistry(), cache)
	conv := seedConversation(t, store, "alice", "bob")

	_, _, err := d.SendMessage(context.Background(), "alice", SendMessageInput{
		ConversationID: conv.ID,
		Text:           "hi",
		ReceiverID:     "bob",
	})
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, cache.invalidated)

	// A rejected send leaves every cache untouched.
	cache.invalidated = nil
	_, _, err = d.SendMessage(context.Background(), "alice", SendMessageInput{
		ConversationID: conv.ID,
		Text:           "   ",
		ReceiverID:     "bob",
	})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, cache.invalidated)
}

func TestMarkReadInvalidatesRequesterCache(t *testing.T) {
	store, db := newTestStore(t)
	seedUsers(t, db, "alice", "bob")
	cache := &fakeListCache{}
	d := NewDispatcher(store, NewRegistry(), cache)
	conv := seedConversation(t, store, "alice", "bob")

	msg := &models.Message{ConversationID: conv.ID, SenderID: "bob", Content: "unread"}
	assert.NoError(t, store.CreateMessage(context.Background(), msg))

	_, err := d.MarkRead(context.Background(), "alice", "sock-a", MarkReadInput{ConversationID: conv.ID})
	assert.NoError(t, err)
	assert.Equal(t, []string{"alice"}, cache.invalidated)

	// A silently ignored request (non-participant) invalidates nothing.
	cache.invalidated = nil
	_, err = d.MarkRead(context.Background(), "mallory", "sock-m", MarkReadInput{ConversationID: conv.ID})
	assert.NoError(t, err)
	assert.Empty(t, cache.invalidated)
}

func TestTypingExcludesSender(t *testing.T) {
	d, _, registry := newTestDispatcher(t)
	registry.Register("alice", "sock-a", models.PublicProfile{ID: "alice", Name: "User alice"})

	effects := d.Typing("alice", "sock-a", TypingInput{ConversationID: "conv1", IsTyping: true})
	if assert.Len(t, effects, 1) {
		assert.Equal(t, ConversationRoom("conv1"), effects[0].Room)
		assert.Equal(t, "user-typing", effects[0].Event)
		assert.Equal(t, "sock-a", effects[0].ExcludeSocket)
		payload := effects[0].Payload.(map[string]interface{})
		assert.Equal(t, "alice", payload["userId"])
		assert.Equal(t, "User alice", payload["userName"])
		assert.Equal(t, true, payload["isTyping"])
	}

	assert.Empty(t, d.Typing("alice", "sock-a", TypingInput{}))
}

func TestMarkReadNonParticipantIsSilentNoop(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	conv := seedConversation(t, store, "alice", "bob")

	msg := &models.Message{ConversationID: conv.ID, SenderID: "alice", Content: "hi"}
	assert.NoError(t, store.CreateMessage(context.Background(), msg))

	effects, err := d.MarkRead(context.Background(), "mallory", "sock-m", MarkReadInput{ConversationID: conv.ID})
	assert.NoError(t, err)
	assert.Empty(t, effects)

	loaded, _ := store.MessageByID(context.Background(), msg.ID)
	assert.False(t, loaded.IsRead)

	// Unknown conversation is equally silent.
	effects, err = d.MarkRead(context.Background(), "alice", "sock-a", MarkReadInput{ConversationID: "nope"})
	assert.NoError(t, err)
	assert.Empty(t, effects)
}

func TestMarkReadFlipsAndBroadcasts(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	conv := seedConversation(t, store, "alice", "bob")

	fromBob := &models.Message{ConversationID: conv.ID, SenderID: "bob", Content: "unread"}
	fromAlice := &models.Message{ConversationID: conv.ID, SenderID: "alice", Content: "mine"}
	assert.NoError(t, store.CreateMessage(context.Background(), fromBob))
	assert.NoError(t, store.CreateMessage(context.Background(), fromAlice))

	effects, err := d.MarkRead(context.Background(), "alice", "sock-a", MarkReadInput{ConversationID: conv.ID})
	assert.NoError(t, err)
	if assert.Len(t, effects, 1) {
		assert.Equal(t, "messages-read", effects[0].Event)
		assert.Equal(t, ConversationRoom(conv.ID), effects[0].Room)
		assert.Equal(t, "sock-a", effects[0].ExcludeSocket)
		payload := effects[0].Payload.(map[string]interface{})
		assert.Equal(t, "alice", payload["userId"])
	}

	bobMsg, _ := store.MessageByID(context.Background(), fromBob.ID)
	aliceMsg, _ := store.MessageByID(context.Background(), fromAlice.ID)
	assert.True(t, bobMsg.IsRead)
	assert.False(t, aliceMsg.IsRead)
}

func TestConnectDisconnectLifecycle(t *testing.T) {
	d, _, registry := newTestDispatcher(t)

	online := d.Connected("sock-a", models.PublicProfile{ID: "alice", Name: "User alice"})
	if assert.Len(t, online, 1) {
		assert.Equal(t, PresenceRoom, online[0].Room)
		assert.Equal(t, "user-online", online[0].Event)
	}
	_, ok := registry.Find("alice")
	assert.True(t, ok)

	offline := d.Disconnected("alice", "sock-a")
	if assert.Len(t, offline, 1) {
		assert.Equal(t, "user-offline", offline[0].Event)
		payload := offline[0].Payload.(map[string]interface{})
		assert.Equal(t, "alice", payload["userId"])
	}
	_, ok = registry.Find("alice")
	assert.False(t, ok)

	// Duplicate disconnect stays silent.
	assert.Empty(t, d.Disconnected("alice", "sock-a"))
}

func TestDisconnectAfterReconnectKeepsPresence(t *testing.T) {
	d, _, registry := newTestDispatcher(t)

	d.Connected("sock-1", models.PublicProfile{ID: "alice"})
	d.Connected("sock-2", models.PublicProfile{ID: "alice"})

	// Old socket closing must not announce alice offline.
	assert.Empty(t, d.Disconnected("alice", "sock-1"))
	_, ok := registry.Find("alice")
	assert.True(t, ok)
}
