package statusfeed

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
	"github.com/hochfrequenz/taskmaster-longrun/internal/runexec"
)

func TestHub_BroadcastsToConnectedClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing test server: %v", err)
	}
	defer conn.Close()

	hub.OnInfo("hello dashboard")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading broadcast event: %v", err)
	}

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unmarshaling event: %v", err)
	}
	if event.Type != EventInfo || event.Message != "hello dashboard" {
		t.Errorf("event = %+v, want type=info message=\"hello dashboard\"", event)
	}
}

func TestHub_ImplementsRunnerObserverShape(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing test server: %v", err)
	}
	defer conn.Close()

	task := &domain.Task{ID: "1", Title: "demo"}
	hub.OnTaskStart(task, 1)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading task_start event: %v", err)
	}
	var startEvent Event
	if err := json.Unmarshal(data, &startEvent); err != nil {
		t.Fatalf("unmarshaling task_start event: %v", err)
	}
	if startEvent.Type != EventTaskStart || startEvent.TaskID != "1" {
		t.Errorf("task_start event = %+v, want type=task_start taskId=1", startEvent)
	}

	entry := domain.LedgerEntry{TaskID: "1", Status: domain.LedgerDone, Attempt: 1}
	hub.OnTaskEnd(entry, runexec.Resolution{Success: true, Note: "ok"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading task_end event: %v", err)
	}
	var endEvent Event
	if err := json.Unmarshal(data, &endEvent); err != nil {
		t.Fatalf("unmarshaling task_end event: %v", err)
	}
	if endEvent.Type != EventTaskEnd || endEvent.TaskID != "1" {
		t.Errorf("task_end event = %+v, want type=task_end taskId=1", endEvent)
	}
}
