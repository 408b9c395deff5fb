package web

import (
	"strings"
	"testing"

	"github.com/imperator765/swpanel/state"
	"github.com/imperator765/swpanel/status"
)

func sampleSnapshot() state.Snapshot {
	store := state.NewStore()
	store.PullSucceeded([]status.SwitchValue{
		{Name: "Alpha", Value: 0},
		{Name: "Bravo", Value: 1},
	})
	return store.Snapshot()
}

func TestBuildViewReflectsSnapshot(t *testing.T) {
	view := BuildView(sampleSnapshot(), false)

	if len(view.Rows) != 2 {
		t.Fatalf("expected 2 rows, got: %d", len(view.Rows))
	}
	if view.Rows[0].Name != "Alpha" || view.Rows[0].On {
		t.Errorf("unexpected first row: %+v", view.Rows[0])
	}
	if view.Rows[1].Name != "Bravo" || !view.Rows[1].On {
		t.Errorf("unexpected second row: %+v", view.Rows[1])
	}
	for _, row := range view.Rows {
		if row.Disabled {
			t.Errorf("row %s disabled while connected", row.Name)
		}
	}
}

func TestBuildViewPullUpdatesRow(t *testing.T) {
	store := state.NewStore()
	store.PullSucceeded([]status.SwitchValue{
		{Name: "Alpha", Value: 0},
		{Name: "Bravo", Value: 1},
	})
	store.PullSucceeded([]status.SwitchValue{
		{Name: "Alpha", Value: 1},
		{Name: "Bravo", Value: 1},
	})

	view := BuildView(store.Snapshot(), false)
	if !view.Rows[0].On {
		t.Error("Alpha must render ON after the refreshed snapshot")
	}
}

func TestBuildViewDisconnected(t *testing.T) {
	store := state.NewStore()
	store.PullSucceeded([]status.SwitchValue{{Name: "Alpha", Value: 1}})
	store.PullFailed()

	view := BuildView(store.Snapshot(), false)

	if view.Connected {
		t.Error("view should reflect lost connection")
	}
	if len(view.Error) == 0 {
		t.Error("view should carry the banner message")
	}
	for _, row := range view.Rows {
		if !row.Disabled {
			t.Errorf("row %s must be disabled while disconnected", row.Name)
		}
	}
}

func TestRender(t *testing.T) {
	var buf strings.Builder
	err := Render(&buf, BuildView(sampleSnapshot(), false))
	if err != nil {
		t.Fatal(err)
	}
	page := buf.String()

	for _, want := range []string{"Alpha", "Bravo", "OFF", "ON", "/switch/Alpha/toggle"} {
		if !strings.Contains(page, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
	if strings.Contains(page, "disabled") {
		t.Error("controls must not be disabled while connected")
	}
	if !strings.Contains(page, `class="light"`) {
		t.Error("expected light theme body class")
	}
}

func TestRenderDisconnected(t *testing.T) {
	store := state.NewStore()
	store.PullSucceeded([]status.SwitchValue{{Name: "Alpha", Value: 1}})
	store.PullFailed()

	var buf strings.Builder
	if err := Render(&buf, BuildView(store.Snapshot(), true)); err != nil {
		t.Fatal(err)
	}
	page := buf.String()

	if !strings.Contains(page, "disabled") {
		t.Error("controls must be disabled while disconnected")
	}
	if !strings.Contains(page, state.GenericPullError) {
		t.Error("banner message missing from the page")
	}
	if !strings.Contains(page, `class="dark"`) {
		t.Error("expected dark theme body class")
	}
}
