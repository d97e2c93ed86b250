// Package realtime provides an in-process publish/subscribe hub used to fan
// out download progress to multiple listeners (e.g. WebSocket sessions).
//
// Delivery is best effort: a listener whose buffer is full misses the event,
// the batch itself is never slowed down. There is no persistence or replay;
// a listener joining mid-batch only sees what happens next. The current
// state of a batch can always be read back from the API.
package realtime

import (
	"sync"
	"time"

	"github.com/rubiojr/fingertips/pkg/download"
)

// Event is the envelope sent to listeners. Type is one of the download
// event types plus "batch_error" for a batch that could not run at all.
type Event struct {
	Type         string    `json:"type"`
	BatchID      string    `json:"batch_id,omitempty"`
	IndicatorID  string    `json:"indicator_id,omitempty"`
	Name         string    `json:"name,omitempty"`
	Status       string    `json:"status,omitempty"`
	Rows         int       `json:"rows,omitempty"`
	LatestPeriod string    `json:"latest_period,omitempty"`
	Message      string    `json:"message,omitempty"`
	Done         int       `json:"done"`
	Total        int       `json:"total"`
	Time         time.Time `json:"time"`

	Report *download.Report `json:"report,omitempty"`
}

const TypeBatchError = "batch_error"

// FromDownload converts a downloader event into a hub event.
func FromDownload(e download.Event) Event {
	ev := Event{
		Type:    e.Type,
		BatchID: e.BatchID,
		Total:   e.Total,
		Time:    time.Now().UTC(),
	}
	switch e.Type {
	case download.EventIndicatorStart:
		ev.IndicatorID = e.Outcome.IndicatorID
		ev.Name = e.Outcome.Name
		ev.Done = e.Index - 1
	case download.EventIndicatorDone:
		ev.IndicatorID = e.Outcome.IndicatorID
		ev.Name = e.Outcome.Name
		ev.Status = string(e.Outcome.Status)
		ev.Rows = e.Outcome.Rows
		ev.LatestPeriod = e.Outcome.LatestPeriod
		ev.Message = e.Outcome.Error
		ev.Done = e.Index
	case download.EventBatchDone:
		ev.Done = e.Total
		ev.Report = e.Report
		if e.Report != nil {
			ev.Message = e.Report.CombinedError
		}
	}
	return ev
}

// Hub is an in-memory fan-out dispatcher. Each registered listener receives
// events via its own buffered channel. The hub is safe for concurrent use.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Event
	nextID    uint64
	bufSize   int
}

// NewHub constructs a hub with the given per-listener buffer size.
// If bufSize <= 0, a default of 32 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan Event),
		bufSize:   bufSize,
	}
}

// Register adds a new listener and returns (listenerID, receiveOnlyChannel).
// Callers must later Unregister(id) to release resources.
func (h *Hub) Register() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener with the given id and closes its channel.
// Unknown ids are ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Broadcast delivers an event to all registered listeners.
func (h *Hub) Broadcast(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			// slow listener
		}
	}
}

// Observer returns a download observer that broadcasts every event.
func (h *Hub) Observer() download.Observer {
	return func(e download.Event) {
		h.Broadcast(FromDownload(e))
	}
}

// Size returns the current number of listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
