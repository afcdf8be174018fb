package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/abarnes/kudos/internal/logger"
	"github.com/abarnes/kudos/internal/models"
)

func TestNew_CreatesHubWithDependencies(t *testing.T) {
	hub := New(logger.New())

	if hub == nil {
		t.Fatal("expected hub to be created")
	}
	if hub.log == nil {
		t.Error("expected logger to be set")
	}
	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}
	if hub.broadcast == nil {
		t.Error("expected broadcast channel to be initialized")
	}
	if hub.register == nil {
		t.Error("expected register channel to be initialized")
	}
	if hub.unregister == nil {
		t.Error("expected unregister channel to be initialized")
	}
}

func TestHub_BroadcastMessage(t *testing.T) {
	hub := New(logger.New())
	hub.Start()

	// Give hub time to start
	time.Sleep(10 * time.Millisecond)

	// BroadcastMessage should not block even with no clients
	done := make(chan bool)
	go func() {
		hub.BroadcastMessage("test", map[string]string{"key": "value"})
		done <- true
	}()

	select {
	case <-done:
		// Success - didn't block
	case <-time.After(100 * time.Millisecond):
		t.Error("BroadcastMessage blocked with no clients")
	}
}

func TestHub_BroadcastCycleStatus_ImplementsBroadcaster(t *testing.T) {
	hub := New(logger.New())
	hub.Start()

	time.Sleep(10 * time.Millisecond)

	done := make(chan bool)
	go func() {
		hub.BroadcastCycleStatus(uuid.New(), models.CycleOpen)
		hub.BroadcastNomination(uuid.New(), uuid.New(), models.NominationApproved)
		done <- true
	}()

	select {
	case <-done:
		// Success
	case <-time.After(100 * time.Millisecond):
		t.Error("broadcast blocked")
	}
}

func TestHub_ClientReceivesBroadcast(t *testing.T) {
	hub := New(logger.New())
	hub.Start()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()

	// Give the hub time to register the client
	time.Sleep(20 * time.Millisecond)

	cycleID := uuid.New()
	hub.BroadcastCycleStatus(cycleID, models.CycleClosed)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg models.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}
	if msg.Type != "cycle_status" {
		t.Errorf("expected type cycle_status, got %s", msg.Type)
	}
	payload, ok := msg.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected payload shape: %T", msg.Payload)
	}
	if payload["cycle_id"] != cycleID.String() || payload["status"] != "CLOSED" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}
