// Package statusfeed broadcasts runner events to connected dashboard
// clients over websocket, generalizing the teacher's web/api/sse.go
// single-writer broadcast hub from server-sent events to
// gorilla/websocket connections.
package statusfeed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
	"github.com/hochfrequenz/taskmaster-longrun/internal/rlog"
	"github.com/hochfrequenz/taskmaster-longrun/internal/runexec"
)

// EventType classifies a pushed Event.
type EventType string

const (
	EventTaskStart EventType = "task_start"
	EventTaskEnd   EventType = "task_end"
	EventInfo      EventType = "info"
	EventWarn      EventType = "warn"
	EventChunk     EventType = "chunk"
)

// Event is one message pushed to every connected dashboard client.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TaskID    string      `json:"taskId,omitempty"`
	Attempt   int         `json:"attempt,omitempty"`
	Stream    string      `json:"stream,omitempty"`
	Message   string      `json:"message,omitempty"`
	Entry     interface{} `json:"entry,omitempty"`
}

// Hub fans runner events out to any number of connected websocket clients.
// Its register/unregister/broadcast channel shape mirrors the teacher's
// SSEHub directly; only the transport (websocket frames instead of SSE
// text events) and the event payload differ.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	mu         sync.RWMutex
	log        *rlog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// NewHub returns a Hub; call Run in its own goroutine before accepting
// connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event),
		log:        rlog.New("statusfeed"),
	}
}

// Run drives the hub's registration and broadcast loop until ctx-less
// forever; callers stop it by no longer writing to it and letting the
// process exit, matching the teacher's SSEHub.Run (never itself
// context-aware).
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case event := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- event:
				default:
					h.log.Warn("dropping slow statusfeed client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades an HTTP request to a websocket connection and streams
// every subsequent broadcast Event to it until the client disconnects,
// making Hub usable directly as an http.Handler (e.g. mux.Handle("/ws", hub)).
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan Event, 16)}
	h.register <- c

	go func() {
		defer func() {
			h.unregister <- c
			conn.Close()
		}()
		for event := range c.send {
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	// Drain (and discard) any inbound frames so the read side doesn't
	// buffer up and the disconnect is detected promptly; this feed is
	// push-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast pushes event to every connected client, dropping it for any
// client whose send buffer is full rather than blocking the caller.
func (h *Hub) Broadcast(event Event) {
	h.broadcast <- event
}

// The methods below satisfy internal/runner.Observer, so a Hub can be
// passed directly as the observer argument to runner.Run.

func (h *Hub) OnTaskStart(task *domain.Task, attempt int) {
	h.Broadcast(Event{Type: EventTaskStart, Timestamp: time.Now().UTC(), TaskID: task.ID, Attempt: attempt, Message: task.Title})
}

func (h *Hub) OnTaskEnd(entry domain.LedgerEntry, resolution runexec.Resolution) {
	h.Broadcast(Event{Type: EventTaskEnd, Timestamp: time.Now().UTC(), TaskID: entry.TaskID, Attempt: entry.Attempt, Message: resolution.Note, Entry: entry})
}

func (h *Hub) OnInfo(msg string) {
	h.Broadcast(Event{Type: EventInfo, Timestamp: time.Now().UTC(), Message: msg})
}

func (h *Hub) OnWarn(msg string) {
	h.Broadcast(Event{Type: EventWarn, Timestamp: time.Now().UTC(), Message: msg})
}

func (h *Hub) OnChunk(stream, line string) {
	h.Broadcast(Event{Type: EventChunk, Timestamp: time.Now().UTC(), Stream: stream, Message: line})
}
