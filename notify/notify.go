// Package notify provides an optional WebSocket adapter implementing
// lirad.SocketNotifier (§6), for streaming pass-progress and lifecycle
// events to an external dashboard. It is never required by the core
// solve/raytrace path.
package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
)

// event is the wire message sent for every Notify call.
type event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// WebSocketNotifier delivers events over a single long-lived WebSocket
// connection, reconnecting with exponential backoff on write failure
// (grounded on sr.go's backoff.RetryNotify(operation, backoff.NewExponentialBackOff(),
// notify) retry pattern). It is safe for concurrent use by the solver's
// worker goroutines.
type WebSocketNotifier struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketNotifier dials url immediately so configuration mistakes
// surface at startup rather than on the first pass.
func NewWebSocketNotifier(url string) (*WebSocketNotifier, error) {
	n := &WebSocketNotifier{url: url}
	if err := n.dial(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *WebSocketNotifier) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(n.url, nil)
	if err != nil {
		return fmt.Errorf("notify: dialing %s: %w", n.url, err)
	}
	n.mu.Lock()
	n.conn = conn
	n.mu.Unlock()
	return nil
}

// Notify implements lirad.SocketNotifier. Each send attempt whose write
// fails redials and writes again; failed attempts are repeated under
// exponential backoff. Notify never blocks the caller indefinitely,
// since backoff.NewExponentialBackOff() has a default MaxElapsedTime,
// after which the last error is returned.
func (n *WebSocketNotifier) Notify(name string, payload interface{}) error {
	msg, err := json.Marshal(event{Name: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("notify: encoding event %q: %w", name, err)
	}

	return backoff.RetryNotify(
		func() error { return n.send(msg) },
		backoff.NewExponentialBackOff(),
		func(err error, d time.Duration) {
			log.Printf("notify: %v: reconnecting in %v", err, d)
		},
	)
}

func (n *WebSocketNotifier) send(msg []byte) error {
	// Writes happen under mu: a websocket.Conn allows only one
	// concurrent writer.
	n.mu.Lock()
	written := n.conn != nil && n.conn.WriteMessage(websocket.TextMessage, msg) == nil
	n.mu.Unlock()
	if written {
		return nil
	}
	if err := n.dial(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conn.WriteMessage(websocket.TextMessage, msg)
}

// Close shuts down the underlying connection. Safe to call once the
// solve/raytrace pipeline has finished emitting events.
func (n *WebSocketNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
