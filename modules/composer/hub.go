package composer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 모든 origin 허용 (CORS 와 동일 정책)
		return true
	},
}

// Client - 세션 상태 이벤트 구독자
type Client struct {
	id      string
	conn    *websocket.Conn
	session *Session
	send    chan []byte
	logger  *zap.Logger
}

// clientMessage - 구독자 → 서버 메시지
type clientMessage struct {
	Type string `json:"type"`
}

// enqueue - 이벤트를 송신 큐에 추가 (가득 차면 버림)
// send 채널은 session.mutex 아래에서만 닫히므로 같은 잠금으로 보호
func (c *Client) enqueue(event Event) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("Error marshaling event", zap.Error(err))
		return
	}

	c.session.mutex.RLock()
	defer c.session.mutex.RUnlock()
	if c.session.clients[c.id] != c {
		return
	}
	select {
	case c.send <- messageBytes:
	default:
		c.logger.Warn("Client send buffer full, event dropped", zap.String("type", event.Type))
	}
}

// ServeWS - 세션 구독 WebSocket 연결
func ServeWS(sm *SessionManager, w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	session, ok := sm.Get(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sm.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:      uuid.NewString(),
		conn:    conn,
		session: session,
		send:    make(chan []byte, sendBuffer),
		logger:  session.logger,
	}

	session.addClient(client)

	go client.writePump()
	go client.readPump()
}

// readPump - 구독자 메시지 읽기 (state 요청 외에는 무시)
func (c *Client) readPump() {
	defer func() {
		c.session.removeClient(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message clientMessage
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket error", zap.Error(err))
			}
			return
		}

		switch message.Type {
		case "request_state":
			c.session.touch()
			for _, snap := range c.session.Snapshots() {
				c.enqueue(Event{Type: EventStateChanged, SessionID: c.session.id, Workspace: &snap, At: time.Now()})
			}
		}
	}
}

// writePump - 송신 큐 → 연결
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("WebSocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
