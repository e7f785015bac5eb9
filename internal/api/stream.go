package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClassificationEvent describes websocket payloads emitted while a classify
// request is processed.
type ClassificationEvent struct {
	Type      string             `json:"type"`
	RequestID string             `json:"request_id"`
	Total     int                `json:"total,omitempty"`
	Processed int                `json:"processed,omitempty"`
	Result    *ClassificationDTO `json:"result,omitempty"`
	Message   string             `json:"message,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// ClassificationNotifier keeps track of active websocket clients and
// broadcasts classification progress events.
type ClassificationNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *ClassificationEvent
}

// NewClassificationNotifier constructs a notifier instance.
func NewClassificationNotifier() *ClassificationNotifier {
	return &ClassificationNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle.
// Late subscribers immediately receive the last status snapshot.
func (n *ClassificationNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *ClassificationNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *ClassificationNotifier) Broadcast(event ClassificationEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	if event.Type == "started" || event.Type == "result" || event.Type == "completed" {
		snapshot := event
		snapshot.Result = nil
		n.lastStatus = &snapshot
	}

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastStatus returns a copy of the most recent status event, if any.
func (n *ClassificationNotifier) LastStatus() *ClassificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	copy := *n.lastStatus
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
