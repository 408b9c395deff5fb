package status

import (
	"testing"
)

func assertSwitches(t *testing.T, got []SwitchValue, want []SwitchValue) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("switch count mismatch, got: %d want: %d (%v)", len(got), len(want), got)
	}
	for ix := range want {
		if got[ix] != want[ix] {
			t.Errorf("switch %d mismatch, got: %v want: %v", ix, got[ix], want[ix])
		}
	}
}

func TestParseSwitchMapWrapped(t *testing.T) {
	body := `{"status":"success","data":{"Alpha":1,"Bravo":0,"Charlie":1,"Delta":0}}`

	switches, err := ParseSwitchMap([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	assertSwitches(t, switches, []SwitchValue{
		{"Alpha", 1},
		{"Bravo", 0},
		{"Charlie", 1},
		{"Delta", 0},
	})
}

func TestParseSwitchMapBare(t *testing.T) {
	// deployment variant without the envelope, key order is display order
	body := `{"Bravo":1,"Alpha":0}`

	switches, err := ParseSwitchMap([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	assertSwitches(t, switches, []SwitchValue{
		{"Bravo", 1},
		{"Alpha", 0},
	})
}

func TestParseSwitchMapBooleans(t *testing.T) {
	switches, err := ParseSwitchMap([]byte(`{"data":{"Alpha":true,"Bravo":false}}`))
	if err != nil {
		t.Fatal(err)
	}

	assertSwitches(t, switches, []SwitchValue{
		{"Alpha", 1},
		{"Bravo", 0},
	})
}

func TestParseSwitchMapSkipsForeignKeys(t *testing.T) {
	body := `{"status":"success","meta":{"uptime":[1,2,3],"build":{"rev":"abc"}},"data":{"Alpha":0}}`

	switches, err := ParseSwitchMap([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	assertSwitches(t, switches, []SwitchValue{{"Alpha", 0}})
}

func TestParseSwitchMapNullData(t *testing.T) {
	switches, err := ParseSwitchMap([]byte(`{"status":"error","data":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(switches) != 0 {
		t.Errorf("expected no switches from null data, got: %v", switches)
	}
}

func TestParseSwitchMapRejectsNonObject(t *testing.T) {
	if _, err := ParseSwitchMap([]byte(`[1,2,3]`)); err == nil {
		t.Error("expected error for array payload")
	}
	if _, err := ParseSwitchMap([]byte(`"Alpha"`)); err == nil {
		t.Error("expected error for string payload")
	}
	if _, err := ParseSwitchMap([]byte(`{"Alpha":`)); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestMarshalSwitchMapKeepsOrder(t *testing.T) {
	switches := []SwitchValue{
		{"Delta", 1},
		{"Alpha", 0},
		{"Charlie", 7},
	}

	encoded := MarshalSwitchMap(switches)
	if string(encoded) != `{"Delta":1,"Alpha":0,"Charlie":1}` {
		t.Errorf("unexpected encoding: %s", encoded)
	}

	parsed, err := ParseSwitchMap(encoded)
	if err != nil {
		t.Fatal(err)
	}
	assertSwitches(t, parsed, []SwitchValue{
		{"Delta", 1},
		{"Alpha", 0},
		{"Charlie", 1},
	})
}
