package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"

	"github.com/AyanAhmedKhan/careerly-backend/internal/chat"
	"github.com/AyanAhmedKhan/careerly-backend/internal/database"
	"github.com/AyanAhmedKhan/careerly-backend/internal/models"
	"github.com/AyanAhmedKhan/careerly-backend/pkg/logger"
	"github.com/AyanAhmedKhan/careerly-backend/pkg/utils"
)

var SocketServer *socketio.Server

// Shared chat core, wired in InitChat before the socket server starts.
var (
	ChatStore chat.Store
	Presence  *chat.Registry
	Dispatch  *chat.Dispatcher
)

// typingThrottle enforces a minimum interval between relayed typing signals
// per sender. Stop signals always pass so a conversation never sticks in the
// typing state.
type typingThrottle struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
}

func newTypingThrottle(interval time.Duration) *typingThrottle {
	return &typingThrottle{last: make(map[string]time.Time), interval: interval}
}

func (t *typingThrottle) allow(senderID string, isTyping bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.last[senderID]; ok && isTyping && time.Since(last) < t.interval {
		return false
	}
	t.last[senderID] = time.Now()
	return true
}

// forget drops the sender's entry; called on disconnect so the table never
// outgrows the set of connected users.
func (t *typingThrottle) forget(senderID string) {
	t.mu.Lock()
	delete(t.last, senderID)
	t.mu.Unlock()
}

func (t *typingThrottle) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

var typingLimiter = newTypingThrottle(3 * time.Second)

// InitChat builds the presence registry, store adapter and dispatcher on the
// shared database handle.
func InitChat() {
	ChatStore = chat.NewGormStore(database.DB)
	Presence = chat.NewRegistry()
	Dispatch = chat.NewDispatcher(ChatStore, Presence, redisListCache{})
}

// redisListCache drops cached conversation-list responses in Redis. No-op
// when Redis is not configured.
type redisListCache struct{}

func (redisListCache) InvalidateConversations(userIDs ...string) {
	if database.Redis == nil {
		return
	}
	for _, id := range userIDs {
		if err := database.CacheInvalidate(fmt.Sprintf("conversations:%s", id)); err != nil {
			logger.Debug().Err(err).Str("user_id", id).Msg("Conversation cache invalidation failed")
		}
	}
}

// roomEmitter adapts the socket.io server to the chat.Emitter contract.
// Delivery is fire-and-forget per member; one member's dead transport never
// blocks the others.
type roomEmitter struct {
	server *socketio.Server
}

func (e roomEmitter) Broadcast(room, event string, payload interface{}) {
	e.server.BroadcastToRoom("/", room, event, payload)
}

func (e roomEmitter) BroadcastExcluding(excludeSocketID, room, event string, payload interface{}) {
	e.server.ForEach("/", room, func(c socketio.Conn) {
		if c.ID() == excludeSocketID {
			return
		}
		c.Emit(event, payload)
	})
}

func emitError(s socketio.Conn, msg string) {
	s.Emit("error", map[string]interface{}{"message": msg})
}

// clientError maps a dispatch error onto the message sent back on the
// originating connection. Store failures stay generic; detail is already
// logged server-side.
func clientError(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, chat.ErrConversationAccess):
		return err.Error()
	default:
		return chat.ErrStore.Error()
	}
}

// authenticateSocket resolves the handshake token to a stored user. Every
// failure collapses into the same generic rejection so a caller cannot probe
// which accounts exist.
func authenticateSocket(s socketio.Conn) (*models.User, error) {
	url := s.URL()
	token := url.Query().Get("token")
	if token == "" {
		token = url.Query().Get("auth_token")
	}
	if token == "" {
		logger.Warn().Str("socket_id", s.ID()).Msg("Socket connection rejected: no token")
		return nil, fmt.Errorf("authentication required")
	}

	claims, err := utils.ValidateToken(token)
	if err != nil {
		logger.Warn().Str("socket_id", s.ID()).Msg("Socket connection rejected: invalid token")
		return nil, fmt.Errorf("authentication required")
	}

	user, err := ChatStore.UserByID(context.Background(), claims.UserID)
	if err != nil {
		logger.Warn().Str("socket_id", s.ID()).Str("user_id", claims.UserID).Msg("Socket connection rejected: unknown user")
		return nil, fmt.Errorf("authentication required")
	}
	return user, nil
}

func InitSocketServer() *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})
	emitter := roomEmitter{server: server}

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")

		user, err := authenticateSocket(s)
		if err != nil {
			return err
		}

		// userId in the socket context gives every event handler an O(1)
		// identity lookup.
		s.SetContext(user.ID)

		// Personal room for targeted notifications, presence room for the
		// global online/offline feed. Neither is ever left explicitly.
		s.Join(user.ID)
		s.Join(chat.PresenceRoom)

		chat.Apply(emitter, Dispatch.Connected(s.ID(), user.Public()))

		// Snapshot of who is online for the connecting client.
		s.Emit("online-users", Presence.OnlineIDs())

		logger.Info().Str("socket_id", s.ID()).Str("user_id", user.ID).Msg("Socket authenticated")
		return nil
	})

	server.OnEvent("/", "join-conversation", func(s socketio.Conn, conversationID string) {
		if conversationID == "" {
			return
		}
		s.Join(chat.ConversationRoom(conversationID))
	})

	server.OnEvent("/", "leave-conversation", func(s socketio.Conn, conversationID string) {
		if conversationID == "" {
			return
		}
		s.Leave(chat.ConversationRoom(conversationID))
	})

	server.OnEvent("/", "send-message", func(s socketio.Conn, in chat.SendMessageInput) {
		senderID, _ := s.Context().(string)
		if senderID == "" {
			return
		}

		_, effects, err := Dispatch.SendMessage(context.Background(), senderID, in)
		if err != nil {
			emitError(s, clientError(err))
			return
		}
		chat.Apply(emitter, effects)
	})

	server.OnEvent("/", "typing", func(s socketio.Conn, in chat.TypingInput) {
		senderID, _ := s.Context().(string)
		if senderID == "" {
			return
		}

		// Throttled per sender to keep a held-down key from flooding the
		// room. Ephemeral signal; dropped events are fine.
		if !typingLimiter.allow(senderID, in.IsTyping) {
			return
		}

		chat.Apply(emitter, Dispatch.Typing(senderID, s.ID(), in))
	})

	server.OnEvent("/", "mark-read", func(s socketio.Conn, in chat.MarkReadInput) {
		userID, _ := s.Context().(string)
		if userID == "" {
			return
		}

		effects, err := Dispatch.MarkRead(context.Background(), userID, s.ID(), in)
		if err != nil {
			emitError(s, clientError(err))
			return
		}
		chat.Apply(emitter, effects)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		userID, _ := s.Context().(string)
		if userID == "" {
			return
		}
		typingLimiter.forget(userID)
		chat.Apply(emitter, Dispatch.Disconnected(userID, s.ID()))
		logger.Info().Str("socket_id", s.ID()).Str("user_id", userID).Str("reason", reason).Msg("Socket disconnected")
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		logger.Error().Err(e).Msg("Socket error")
	})

	go server.Serve()
	SocketServer = server
	return server
}

// SocketHandler mounts the socket.io server under gin.
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
