package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	id1, ch1 := bus.Subscribe(4)
	id2, ch2 := bus.Subscribe(4)
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, bus.Len())

	bus.PublishNew(TypeTaskCreated, "t1", "payload")

	for _, ch := range []<-chan *Event{ch1, ch2} {
		ev := <-ch
		require.NotNil(t, ev)
		assert.Equal(t, TypeTaskCreated, ev.Type)
		assert.Equal(t, "t1", ev.ResourceID)
		assert.Equal(t, "payload", ev.Payload)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.CreatedAt.IsZero())
	}
}

func TestBus_PreservesOrderPerSubscriber(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(8)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TypeTaskCreated, "t1", nil)
	bus.PublishNew(TypeTaskUpdated, "t1", nil)
	bus.PublishNew(TypeTaskDeleted, "t1", nil)

	assert.Equal(t, TypeTaskCreated, (<-ch).Type)
	assert.Equal(t, TypeTaskUpdated, (<-ch).Type)
	assert.Equal(t, TypeTaskDeleted, (<-ch).Type)
}

func TestBus_FullBufferDropsWithoutBlocking(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TypeTaskCreated, "first", nil)
	bus.PublishNew(TypeTaskCreated, "second", nil)

	assert.Equal(t, "first", (<-ch).ResourceID)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.ResourceID)
	default:
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)
	bus.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Len())

	bus.PublishNew(TypeTaskDeleted, "t1", "t1")
	bus.Publish(nil)
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id, _ := bus.Subscribe(16)
			bus.Unsubscribe(id)
		}()
		go func() {
			defer wg.Done()
			bus.PublishNew(TypeTaskUpdated, "t", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, bus.Len())
}
