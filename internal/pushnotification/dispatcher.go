package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kazz187/taskflow/internal/eventbus"
	"github.com/kazz187/taskflow/internal/task"
)

type notifier interface {
	SendToAll(ctx context.Context, payload *NotificationPayload)
}

// Dispatcher turns task events into push notifications. It is one more
// subscriber of the bus and never affects the request that caused the event.
type Dispatcher struct {
	eventBus *eventbus.Bus
	sender   notifier
}

func NewDispatcher(eventBus *eventbus.Bus, sender *Sender) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		sender:   sender,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("push notification dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if payload := notificationFor(event); payload != nil {
				d.sender.SendToAll(ctx, payload)
			}
		}
	}
}

// notificationFor returns nil for events nobody needs to be paged about.
func notificationFor(event *eventbus.Event) *NotificationPayload {
	t, ok := event.Payload.(*task.Task)
	if !ok {
		return nil
	}
	switch event.Type {
	case eventbus.TypeTaskCreated:
		return &NotificationPayload{
			Title: "New task",
			Body:  t.Title,
			URL:   "/",
			Tag:   t.ID,
		}
	case eventbus.TypeTaskUpdated:
		return &NotificationPayload{
			Title: fmt.Sprintf("Task %s", t.Status),
			Body:  t.Title,
			URL:   "/",
			Tag:   t.ID,
		}
	default:
		return nil
	}
}
