package client

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/kazz187/taskflow/internal/event"
	"github.com/kazz187/taskflow/internal/eventbus"
	"github.com/kazz187/taskflow/internal/task"
)

// Synchronizer is a client-side mirror of the task collection, newest first.
// Every merge is idempotent, so a session may see its own mutation twice
// (once in the response, once on the event channel) without harm.
type Synchronizer struct {
	mu      sync.RWMutex
	tasks   []*task.Task
	changed chan struct{}
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{changed: make(chan struct{}, 1)}
}

// Changed receives a value after any merge that modified the collection.
// Notifications coalesce; read Snapshot for the current state.
func (s *Synchronizer) Changed() <-chan struct{} {
	return s.changed
}

func (s *Synchronizer) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Seed replaces the whole collection with a List result.
func (s *Synchronizer) Seed(tasks []*task.Task) {
	cp := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		cp = append(cp, t.Clone())
	}
	s.mu.Lock()
	s.tasks = cp
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer) indexOf(id string) int {
	return slices.IndexFunc(s.tasks, func(t *task.Task) bool { return t.ID == id })
}

// ApplyCreated prepends t unless a task with the same id is already present.
func (s *Synchronizer) ApplyCreated(t *task.Task) bool {
	s.mu.Lock()
	if s.indexOf(t.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.tasks = slices.Insert(s.tasks, 0, t.Clone())
	s.mu.Unlock()
	s.notify()
	return true
}

// ApplyUpdated replaces the entry with the same id. Unknown ids are ignored.
func (s *Synchronizer) ApplyUpdated(t *task.Task) bool {
	s.mu.Lock()
	i := s.indexOf(t.ID)
	if i < 0 || sameTask(s.tasks[i], t) {
		s.mu.Unlock()
		return false
	}
	s.tasks[i] = t.Clone()
	s.mu.Unlock()
	s.notify()
	return true
}

func sameTask(a, b *task.Task) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Status == b.Status &&
		a.IsAIEnhanced == b.IsAIEnhanced &&
		a.CreatedAt.Equal(b.CreatedAt)
}

func (s *Synchronizer) ApplyDeleted(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	s.mu.Unlock()
	s.notify()
	return true
}

// Apply merges one frame from the event channel. Unknown event kinds are
// ignored so older clients keep working against newer servers.
func (s *Synchronizer) Apply(f *event.Frame) (bool, error) {
	switch f.Event {
	case eventbus.TypeTaskCreated, eventbus.TypeTaskUpdated:
		var t task.Task
		if err := json.Unmarshal(f.Data, &t); err != nil {
			return false, fmt.Errorf("failed to decode %s payload: %w", f.Event, err)
		}
		if t.ID == "" {
			return false, fmt.Errorf("%s payload has no id", f.Event)
		}
		if f.Event == eventbus.TypeTaskCreated {
			return s.ApplyCreated(&t), nil
		}
		return s.ApplyUpdated(&t), nil
	case eventbus.TypeTaskDeleted:
		var id string
		if err := json.Unmarshal(f.Data, &id); err != nil {
			return false, fmt.Errorf("failed to decode %s payload: %w", f.Event, err)
		}
		return s.ApplyDeleted(id), nil
	default:
		return false, nil
	}
}

// Snapshot returns a copy of the collection in display order.
func (s *Synchronizer) Snapshot() []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

func (s *Synchronizer) Get(id string) (*task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return nil, false
}

func (s *Synchronizer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
