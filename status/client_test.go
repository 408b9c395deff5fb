package status

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
)

func TestNewClientAddressValidation(t *testing.T) {
	if _, err := NewClient("not a url at all"); err == nil {
		t.Error("expected error for address without scheme")
	}
	if _, err := NewClient("http://device.local:5000"); err != nil {
		t.Errorf("unexpected error for valid address: %v", err)
	}
}

func TestFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"status":"success","data":{"Alpha":1,"Bravo":0}}`)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	switches, err := client.FetchStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	assertSwitches(t, switches, []SwitchValue{
		{"Alpha", 1},
		{"Bravo", 0},
	})
}

func TestFetchStatusServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error","error_code":"CONNECTION_ERROR","message":"device not connected"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.FetchStatus(context.Background()); err == nil {
		t.Error("expected error from non success status code")
	}
}

func TestFetchStatusServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	server.Close()

	if _, err := client.FetchStatus(context.Background()); err == nil {
		t.Error("expected error when server is unreachable")
	}
}

func TestSetSwitch(t *testing.T) {
	var gotMethod, gotParam string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/set_switch" {
			http.NotFound(w, r)
			return
		}
		gotMethod = r.Method
		gotParam = r.URL.Query().Get("switch")
		fmt.Fprint(w, `{"status":"success","data":{"Alpha":1,"Bravo":0}}`)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	switches, err := client.SetSwitch(context.Background(), "Alpha", 1)
	if err != nil {
		t.Fatal(err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got: %s", gotMethod)
	}
	if gotParam != "Alpha:1" {
		t.Errorf("switch parameter mismatch, got: %s want: Alpha:1", gotParam)
	}
	assertSwitches(t, switches, []SwitchValue{
		{"Alpha", 1},
		{"Bravo", 0},
	})
}

func TestSetSwitchesMultiple(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()["switch"]
		if len(params) != 2 || params[0] != "Alpha:1" || params[1] != "Bravo:0" {
			t.Errorf("unexpected switch parameters: %v", params)
		}
		fmt.Fprint(w, `{"data":{"Alpha":1,"Bravo":0}}`)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.SetSwitches(context.Background(), []SwitchValue{
		{"Alpha", 1},
		{"Bravo", 0},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSetSwitchRejection(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{"message field", `{"status":"error","error_code":"TIMEOUT","message":"device timed out"}`, "device timed out"},
		{"error field", `{"error":"invalid switch"}`, "invalid switch"},
		{"no reason", `{}`, ""},
		{"garbage body", `oops`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tc.body, http.StatusBadRequest)
			}))
			defer server.Close()

			client, err := NewClient(server.URL)
			if err != nil {
				t.Fatal(err)
			}

			_, err = client.SetSwitch(context.Background(), "Alpha", 0)
			if err == nil {
				t.Fatal("expected error from rejected set_switch")
			}

			var srvErr *ServerError
			if !errors.As(err, &srvErr) {
				t.Fatalf("expected ServerError, got: %v", err)
			}
			if srvErr.Message != tc.wantMessage {
				t.Errorf("message mismatch, got: %q want: %q", srvErr.Message, tc.wantMessage)
			}
		})
	}
}
