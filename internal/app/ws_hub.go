package app

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
	"tradewatch/clients/console"
	"tradewatch/clients/notifier"
	"tradewatch/internal/tradelog"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 32
)

// WebSocket upgrader for the dashboard feed
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message types pushed over /ws.
const (
	MessageTypeView  = "view"
	MessageTypeTrade = "trade"
)

// WSMessage is one frame of the dashboard feed.
type WSMessage struct {
	Type  string      `json:"type"`
	View  *View       `json:"view,omitempty"`
	Trade *TradeEvent `json:"trade,omitempty"`
}

// TradeEvent is the banner payload for a new trade.
type TradeEvent struct {
	Entry       tradelog.Entry `json:"entry"`
	ActionClass string         `json:"action_class"`
	Banner      string         `json:"banner"`
	DetectedAt  time.Time      `json:"detected_at"`
}

type wsClient struct {
	hub  *WSHub
	conn *websocket.Conn
	send chan []byte
}

// WSHub fans view updates and trade banners out to dashboard WebSocket clients.
// Implements notifier.Notifier interface.
type WSHub struct {
	logger *zap.Logger
	viewFn func() View

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

func NewWSHub(logger *zap.Logger, viewFn func() View) *WSHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHub{
		logger:  logger,
		viewFn:  viewFn,
		clients: make(map[*wsClient]struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastView pushes the current view to every client. The view is built
// under the hub lock so concurrent broadcasts reach clients in build order.
func (h *WSHub) BroadcastView() {
	if h.viewFn == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.clients) == 0 {
		return
	}
	data, err := h.viewMessage()
	if err != nil {
		h.logger.Error("failed to marshal ws view", zap.Error(err))
		return
	}
	h.sendLocked(data)
}

func (h *WSHub) viewMessage() ([]byte, error) {
	v := h.viewFn()
	return json.Marshal(WSMessage{Type: MessageTypeView, View: &v})
}

// SendTradeNotification pushes a trade banner to every client.
func (h *WSHub) SendTradeNotification(n notifier.TradeNotification) {
	h.broadcast(WSMessage{
		Type: MessageTypeTrade,
		Trade: &TradeEvent{
			Entry:       n.Entry,
			ActionClass: n.Entry.ActionClass(),
			Banner:      console.Banner(n),
			DetectedAt:  n.DetectedAt,
		},
	})
}

func (h *WSHub) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal ws message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(data)
}

func (h *WSHub) sendLocked(data []byte) {
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client, drop it
			h.logger.Warn("ws client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

// register adds c with the current view already queued, so no broadcast can
// land between the snapshot and the registration.
func (h *WSHub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.viewFn != nil {
		data, err := h.viewMessage()
		if err != nil {
			h.logger.Error("failed to marshal ws view", zap.Error(err))
		} else {
			c.send <- data
		}
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *WSHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *WSHub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeWS upgrades the request and streams the feed, starting with the current view.
func (h *WSHub) ServeWS(w http.ResponseWriter, req *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}

	if !h.register(c) {
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Close disconnects every client and rejects new ones.
func (h *WSHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	return nil
}

// readPump only services control frames; the feed is one-way.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("ws read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
