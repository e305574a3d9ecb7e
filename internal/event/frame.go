package event

import (
	"encoding/json"
	"fmt"

	"github.com/kazz187/taskflow/internal/eventbus"
)

// Frame is one text message on the /events socket. Data is the full task
// for created/updated and the bare id string for deleted.
type Frame struct {
	Event eventbus.Type   `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func NewFrame(ev *eventbus.Event) (*Frame, error) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", ev.Type, err)
	}
	return &Frame{Event: ev.Type, Data: data}, nil
}
