package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func echoServer(t *testing.T, received chan<- event) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var e event
			if err := json.Unmarshal(data, &e); err != nil {
				t.Error(err)
				return
			}
			received <- e
		}
	}))
}

func TestWebSocketNotifierDeliversEvent(t *testing.T) {
	received := make(chan event, 1)
	srv := echoServer(t, received)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	n, err := NewWebSocketNotifier(wsURL)
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close()

	if err := n.Notify("pass_complete", map[string]int{"iteration": 3}); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-received:
		if e.Name != "pass_complete" {
			t.Errorf("event name = %q, want %q", e.Name, "pass_complete")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNewWebSocketNotifierRejectsUnreachableURL(t *testing.T) {
	if _, err := NewWebSocketNotifier("ws://127.0.0.1:1/nope"); err == nil {
		t.Fatal("expected dial error for unreachable URL")
	}
}
