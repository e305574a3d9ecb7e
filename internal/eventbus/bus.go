package eventbus

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Type string

const (
	TypeTaskCreated Type = "taskCreated"
	TypeTaskUpdated Type = "taskUpdated"
	TypeTaskDeleted Type = "taskDeleted"
)

// Event is one change notification. Payload is treated as read-only by every
// subscriber since all of them receive the same pointer.
type Event struct {
	ID         string
	Type       Type
	ResourceID string
	Payload    any
	CreatedAt  time.Time
}

func NewEvent(eventType Type, resourceID string, payload any) *Event {
	return &Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		ResourceID: resourceID,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
}

// Publisher is the side of the bus that request handlers see.
type Publisher interface {
	Publish(event *Event)
}

var _ Publisher = (*Bus)(nil)

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Event
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *Event),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *Event) {
	id := ulid.Make().String()
	ch := make(chan *Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish never blocks. A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(event *Event) {
	if event == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Bus) PublishNew(eventType Type, resourceID string, payload any) {
	b.Publish(NewEvent(eventType, resourceID, payload))
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
