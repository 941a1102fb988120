package chat

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/projecthub/backend/internal/logger"
	authservice "github.com/zhouzirui/projecthub/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/projecthub/backend/internal/service/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Handler 聊天室的WebSocket处理器
type Handler struct {
	auth     *authservice.Service
	room     *chatservice.Room
	upgrader websocket.Upgrader
}

// New 创建聊天处理器
func New(auth *authservice.Service, room *chatservice.Room) *Handler {
	return &Handler{
		auth: auth,
		room: room,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.handleWebSocket)
}

type inboundMessage struct {
	Message string `json:"message"`
}

// wsConn serializes writes; broadcasts arrive from other sessions'
// goroutines concurrently with this connection's own handshake frames.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// handleWebSocket 处理聊天连接：校验令牌、回放历史、进入读循环。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket dial, so the token rides
	// the query string.
	token := r.URL.Query().Get("token")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("[chat] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	u, err := h.auth.CurrentUser(r.Context(), token)
	if err != nil {
		// Policy violation close; the session is never registered.
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		return
	}

	wc := &wsConn{conn: conn}
	sess, err := h.room.Join(r.Context(), wc, u.ID, u.Username)
	if err != nil {
		logger.Errorf("[chat] handshake failed user=%s: %v", u.Username, err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "handshake failed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		return
	}
	defer h.room.Leave(sess)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Errorf("[chat] read error user=%s: %v", u.Username, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if strings.TrimSpace(msg.Message) == "" {
			continue
		}

		// A persistence failure drops the message, not the connection.
		if _, err := h.room.Post(ctx, sess, msg.Message); err != nil {
			continue
		}
	}
}

// pingLoop 定期发送ping保活
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
