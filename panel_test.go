package swpanel

import (
	"context"
	"testing"

	"github.com/imperator765/swpanel/push"
	"github.com/imperator765/swpanel/state"
	"github.com/imperator765/swpanel/status"
)

func initializedPanel(t *testing.T) *Panel {
	t.Helper()

	panel := &Panel{ServerAddress: "http://device.local:5000"}
	if err := panel.Init(); err != nil {
		t.Fatal(err)
	}
	return panel
}

func TestPanelInitValidation(t *testing.T) {
	panel := &Panel{ServerAddress: "missing scheme"}
	if err := panel.Init(); err == nil {
		t.Error("expected error for bad server address")
	}

	panel = &Panel{ServerAddress: "http://device.local:5000", PollInterval: "soon"}
	if err := panel.Init(); err == nil {
		t.Error("expected error for unparseable poll interval")
	}

	panel = &Panel{
		ServerAddress: "http://device.local:5000",
		PushWebsocket: &push.WebsocketSource{Url: "ws://device.local:5000/ws"},
		PushMqtt:      &push.MqttSource{Broker: "mqtt://broker.local:1883"},
	}
	if err := panel.Init(); err == nil {
		t.Error("expected error for two configured push sources")
	}
}

func TestHandlePushEventStatusUpdate(t *testing.T) {
	panel := initializedPanel(t)
	panel.store.PullSucceeded([]status.SwitchValue{{Name: "Alpha", Value: 0}})
	panel.store.PushFailed("not connected")

	panel.handlePushEvent(push.Event{
		Type: push.EventStatusUpdate,
		Switches: []status.SwitchValue{
			{Name: "Alpha", Value: 1},
			{Name: "Bravo", Value: 1},
		},
	})

	snap := panel.store.Snapshot()
	if !snap.Connected {
		t.Error("status update should mark connection up")
	}
	if len(snap.Error) != 0 {
		t.Errorf("status update should clear the banner, got: %q", snap.Error)
	}
	if value, _ := snap.Get("Alpha"); value != 1 {
		t.Error("status update not merged")
	}
	if value, _ := snap.Get("Bravo"); value != 1 {
		t.Error("new switch from partial update missing")
	}
}

func TestHandlePushEventError(t *testing.T) {
	panel := initializedPanel(t)

	panel.handlePushEvent(push.Event{Type: push.EventError, Message: "not connected"})
	snap := panel.store.Snapshot()
	if snap.Connected {
		t.Error("error event should mark connection down")
	}
	if snap.Error != "not connected" {
		t.Errorf("expected payload message, got: %q", snap.Error)
	}

	panel.handlePushEvent(push.Event{Type: push.EventError})
	if got := panel.store.Snapshot().Error; got != state.GenericPushError {
		t.Errorf("expected generic fallback, got: %q", got)
	}
}

func TestHandlePushEventReconnected(t *testing.T) {
	panel := initializedPanel(t)
	panel.handlePushEvent(push.Event{Type: push.EventError, Message: "whatever was here before"})

	panel.handlePushEvent(push.Event{Type: push.EventReconnected})

	if got := panel.store.Snapshot().Error; len(got) != 0 {
		t.Errorf("reconnected must clear the banner regardless of content, got: %q", got)
	}
}

func TestToggleUnknownSwitch(t *testing.T) {
	panel := initializedPanel(t)

	if err := panel.Toggle(context.Background(), "Echo"); err == nil {
		t.Error("expected error for a switch the panel does not know")
	}
}
