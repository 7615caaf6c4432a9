package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"practice/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zap.NewNop(), nil)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", hub.ServeWs)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	event := notify.Event{Type: notify.EventAppointmentCreated, EntityID: "appt-1"}
	if err := hub.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var got notify.Event
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != event.Type || got.EntityID != event.EntityID {
		t.Errorf("got %+v, want %+v", got, event)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zap.NewNop(), []string{"https://practice.example"})
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", hub.ServeWs)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := map[string][]string{"Origin": {"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("Dial() from foreign origin succeeded")
	}
}

func TestPublishAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop(), nil)
	stopped := make(chan struct{})
	go func() { hub.Run(ctx); close(stopped) }()
	cancel()
	<-stopped

	// Fill the buffer so the send cannot succeed.
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.broadcast <- nil
	}
	if err := hub.Publish(context.Background(), notify.Event{Type: "x"}); err == nil {
		t.Error("Publish() on stopped hub expected error")
	}
}
