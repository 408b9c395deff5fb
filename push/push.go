// Package push delivers server-initiated status events to the panel. Two
// sources exist: a websocket feed and an mqtt subscription, both translate
// their wire formats into the same Event values.
package push

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/imperator765/swpanel/status"
)

type EventType string

const (
	EventStatusUpdate EventType = "status_update"
	EventError        EventType = "error"
	EventReconnected  EventType = "reconnected"
)

// Event is a single push notification. Switches is set for status updates,
// Message for errors (may be empty, the store falls back to a generic one).
type Event struct {
	Type     EventType
	Switches []status.SwitchValue
	Message  string
}

// Handler receives events on the source's goroutine.
type Handler func(Event)

// Source is a persistent subscription to the status feed. Connect returns
// once the subscription is running in the background, Disconnect tears it
// down so no duplicate listeners are left behind.
type Source interface {
	Connect(ctx context.Context, handler Handler) error
	Disconnect(ctx context.Context) error
}

type wireEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func decodeEnvelope(data []byte) (ev Event, err error) {
	envelope := wireEnvelope{}
	err = json.Unmarshal(data, &envelope)
	if err != nil {
		err = errors.Wrap(err, "failed to decode push envelope")
		return
	}

	switch envelope.Event {
	case "status_update":
		var switches []status.SwitchValue
		switches, err = status.ParseSwitchMap(envelope.Data)
		if err != nil {
			err = errors.Wrap(err, "failed to parse status_update payload")
			return
		}
		ev = Event{Type: EventStatusUpdate, Switches: switches}
	case "error":
		ev = Event{Type: EventError, Message: errorMessage(envelope.Data)}
	case "reconnected", "device_reconnected":
		ev = Event{Type: EventReconnected}
	default:
		err = errors.Errorf("unknown push event: %s", envelope.Event)
	}

	return
}

// errorMessage digs the reason out of an error payload. The server sends
// {"error_status":"..."}, some variants use "message".
func errorMessage(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	payload := struct {
		ErrorStatus string `json:"error_status"`
		Message     string `json:"message"`
	}{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if len(payload.ErrorStatus) > 0 {
		return payload.ErrorStatus
	}
	return payload.Message
}
