package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"tradewatch/clients/notifier"
	"tradewatch/internal/tradelog"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *WSHub) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWSHub_SendsCurrentViewOnConnect(t *testing.T) {
	session := NewSession(nil, tradelog.PnlAll)
	session.Apply(NewReconciler().Reconcile(sampleLog()), time.Now())
	hub := NewWSHub(nil, session.View)

	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeView || msg.View == nil {
		t.Fatalf("expected view message, got %+v", msg)
	}
	if msg.View.State != StateHasData || len(msg.View.Entries) != 2 {
		t.Errorf("unexpected view: %+v", msg.View)
	}
}

func TestWSHub_BroadcastsTradeNotification(t *testing.T) {
	hub := NewWSHub(nil, nil)

	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	waitFor(t, time.Second, func() bool { return hub.ClientCount() == 1 })

	hub.SendTradeNotification(notifier.TradeNotification{
		Entry:      logEntry("2024-01-01 11:00:00", "SELL", 10),
		DetectedAt: time.Date(2024, 1, 1, 11, 0, 2, 0, time.UTC),
	})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeTrade || msg.Trade == nil {
		t.Fatalf("expected trade message, got %+v", msg)
	}
	if msg.Trade.ActionClass != "sell" {
		t.Errorf("unexpected action class: %s", msg.Trade.ActionClass)
	}
	if !strings.Contains(msg.Trade.Banner, "New SELL trade") {
		t.Errorf("unexpected banner: %s", msg.Trade.Banner)
	}
}

func TestWSHub_TradeEntryKeepsWireNames(t *testing.T) {
	data, err := json.Marshal(WSMessage{
		Type:  MessageTypeTrade,
		Trade: &TradeEvent{Entry: logEntry("2024-01-01 11:00:00", "SELL", 10)},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"P/L":10`, `"Net Worth":1010`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}

func TestWSHub_BroadcastView(t *testing.T) {
	session := NewSession(nil, tradelog.PnlAll)
	hub := NewWSHub(nil, session.View)

	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	waitFor(t, time.Second, func() bool { return hub.ClientCount() == 1 })

	// Built at broadcast time, not from a value captured earlier
	session.Apply(NewReconciler().Reconcile(sampleLog()), time.Now())
	hub.BroadcastView()

	first := readMessage(t, conn)
	if first.Type != MessageTypeView || first.View.State != StateNoData {
		t.Errorf("expected initial NO_DATA view first, got %+v", first)
	}
	second := readMessage(t, conn)
	if second.Type != MessageTypeView || second.View.State != StateHasData || len(second.View.Entries) != 2 {
		t.Errorf("unexpected broadcast view: %+v", second.View)
	}
}

func TestWSHub_BroadcastViewWithoutViewFn(t *testing.T) {
	hub := NewWSHub(nil, nil)

	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	waitFor(t, time.Second, func() bool { return hub.ClientCount() == 1 })

	hub.BroadcastView()
	hub.SendTradeNotification(notifier.TradeNotification{Entry: sampleLog()[1], DetectedAt: time.Now()})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeTrade {
		t.Errorf("expected only the trade message, got %+v", msg)
	}
}

func TestWSHub_RegisterQueuesCurrentView(t *testing.T) {
	session := NewSession(nil, tradelog.PnlAll)
	session.Apply(NewReconciler().Reconcile(sampleLog()), time.Now())
	hub := NewWSHub(nil, session.View)

	c := &wsClient{hub: hub, send: make(chan []byte, wsSendBuffer)}
	if !hub.register(c) {
		t.Fatal("expected registration to succeed")
	}
	if len(c.send) != 1 {
		t.Fatalf("expected the current view queued on register, got %d messages", len(c.send))
	}

	hub.BroadcastView()
	if len(c.send) != 2 {
		t.Errorf("expected broadcast after the initial view, got %d messages", len(c.send))
	}

	var msg WSMessage
	if err := json.Unmarshal(<-c.send, &msg); err != nil || msg.View == nil || msg.View.LogLength != 2 {
		t.Errorf("unexpected initial message: %+v err=%v", msg, err)
	}

	hub.Close()
	if hub.register(&wsClient{hub: hub, send: make(chan []byte, 1)}) {
		t.Error("expected register to fail on a closed hub")
	}
}

func TestWSHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewWSHub(nil, nil)

	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	waitFor(t, time.Second, func() bool { return hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, 2*time.Second, func() bool { return hub.ClientCount() == 0 })
}

func TestWSHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewWSHub(nil, nil)

	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	waitFor(t, time.Second, func() bool { return hub.ClientCount() == 1 })

	if err := hub.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("expected no clients, got %d", hub.ClientCount())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}

	// Broadcasting to a closed hub is a no-op
	hub.BroadcastView()
}
