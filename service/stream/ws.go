package stream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/225715H/chat-app/config"
	"github.com/225715H/chat-app/logger"
	"github.com/225715H/chat-app/tools/ids"
)

const writeWait = 10 * time.Second

// WSHandler upgrades /api/events requests and bridges the connection to the
// hub: one writer goroutine owns all socket writes, the handler goroutine
// reads until the peer goes away.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	pingWait time.Duration
}

func NewWSHandler(hub *Hub, cfg config.Stream) *WSHandler {
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = 25 * time.Second
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBuffer,
			WriteBufferSize: cfg.WriteBuffer,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingWait: ping,
	}
}

func (h *WSHandler) Handle(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[stream] upgrade failed: %v", err)
		return
	}

	connID := ids.NewConnID()
	sub := h.hub.Subscribe(connID)

	// Connect acknowledgment goes out before the writer pump takes over
	// the socket.
	ack, _ := json.Marshal(Frame{Type: EventConnected, ConnID: connID})
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, ack); err != nil {
		h.hub.Unsubscribe(connID)
		_ = ws.Close()
		return
	}

	go h.writePump(ws, sub)
	h.readLoop(ws, connID)
}

func (h *WSHandler) writePump(ws *websocket.Conn, sub *Subscriber) {
	ticker := time.NewTicker(h.pingWait)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	ping, _ := json.Marshal(Frame{Type: EventPing})
	for {
		select {
		case payload := <-sub.Recv():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.hub.Unsubscribe(sub.ID)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, ping); err != nil {
				h.hub.Unsubscribe(sub.ID)
				return
			}
		case <-sub.Done():
			return
		}
	}
}

// readLoop discards inbound frames; its only job is to notice the peer
// closing the connection.
func (h *WSHandler) readLoop(ws *websocket.Conn, connID string) {
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debug("[stream] read error conn=" + connID)
			}
			break
		}
	}
	h.hub.Unsubscribe(connID)
}
