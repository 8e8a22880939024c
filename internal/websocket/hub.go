package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"recognition-backend/internal/metrics"
	"recognition-backend/internal/middleware"
	"recognition-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type tokenParser interface {
	ParseAccessToken(tokenStr string) (*middleware.AccessClaims, error)
}

// Hub fans job events published on per-user Redis channels out to that
// user's open websocket connections.
type Hub struct {
	mu          sync.Mutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	tokens      tokenParser
	revocations middleware.RevocationChecker
	cancelFuncs map[uuid.UUID]context.CancelFunc
	total       int
}

func NewHub(redisClient *redis.Client, tokens tokenParser, revocations middleware.RevocationChecker) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		redisClient: redisClient,
		tokens:      tokens,
		revocations: revocations,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	h.registerConnection(userID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// authenticate reads the access token from the token query param.
func (h *Hub) authenticate(r *http.Request) (uuid.UUID, bool) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		return uuid.Nil, false
	}

	claims, err := h.tokens.ParseAccessToken(tokenStr)
	if err != nil {
		return uuid.Nil, false
	}

	if h.revocations != nil && claims.JTI != "" {
		revoked, err := h.revocations.IsRevoked(r.Context(), claims.JTI)
		if err != nil || revoked {
			return uuid.Nil, false
		}
	}

	return claims.UserID, true
}

func (h *Hub) registerConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], conn)
	h.total++
	metrics.SetActiveConnections("websocket", float64(h.total))

	// Start pub/sub subscription if this is the first connection for this user
	if len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribeToPubSub(ctx, userID)
	}

	slog.Info("websocket connected", slog.String("user_id", userID.String()), slog.Int("user_connections", len(h.connections[userID])))
}

func (h *Hub) unregisterConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[userID]
	for i, c := range conns {
		if c == conn {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			h.total--
			break
		}
	}
	metrics.SetActiveConnections("websocket", float64(h.total))

	// If no more connections, cancel pub/sub
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	slog.Info("websocket disconnected", slog.String("user_id", userID.String()))
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, services.UserChannel(userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

// broadcast holds the hub lock for the whole fan-out; gorilla connections
// allow only one concurrent writer.
func (h *Hub) broadcast(userID uuid.UUID, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conn := range h.connections[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("websocket write failed", slog.String("user_id", userID.String()), slog.Any("error", err))
		}
	}
}

// SendToUser sends a message directly to a user (for use outside pub/sub)
func (h *Hub) SendToUser(userID uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(userID, data)
}

// Close drops every connection and stops all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.connections {
		for _, conn := range conns {
			conn.Close()
		}
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
		}
	}
	h.connections = make(map[uuid.UUID][]*websocket.Conn)
	h.cancelFuncs = make(map[uuid.UUID]context.CancelFunc)
	h.total = 0
	metrics.SetActiveConnections("websocket", 0)
}
