package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/imperator765/swpanel/status"
)

// mock instance of the switch server for development and manual testing:
// serves /api/status, /api/set_switch and the /ws push feed with four fake
// switches, no device attached.

var (
	addr = flag.String("addr", ":9000", "listen address")
	flip = flag.String("flip", "", "interval for random switch flips (time.Duration), empty disables")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type mockServer struct {
	mu       sync.Mutex
	switches []status.SwitchValue
	clients  map[*websocket.Conn]bool
}

func newMockServer() *mockServer {
	return &mockServer{
		switches: []status.SwitchValue{
			{Name: "Alpha"},
			{Name: "Bravo", Value: 1},
			{Name: "Charlie"},
			{Name: "Delta"},
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

func (ms *mockServer) statusBody() []byte {
	return []byte(fmt.Sprintf(`{"status":"success","data":%s}`, status.MarshalSwitchMap(ms.switches)))
}

func (ms *mockServer) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ms.mu.Lock()
	body := ms.statusBody()
	ms.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func errorBody(code, message string) string {
	return fmt.Sprintf(`{"status":"error","error_code":"%s","message":"%s"}`, code, message)
}

func (ms *mockServer) handleSetSwitch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")

	requested := map[string]int{}
	for _, param := range r.URL.Query()["switch"] {
		name, stateRaw, found := strings.Cut(param, ":")
		if !found {
			http.Error(w, errorBody("INVALID_OPERATION", "malformed switch parameter"), http.StatusBadRequest)
			return
		}
		state, err := strconv.Atoi(stateRaw)
		if err != nil || (state != 0 && state != 1) {
			http.Error(w, errorBody("INVALID_OPERATION", "switch state must be 0 or 1"), http.StatusBadRequest)
			return
		}
		requested[name] = state
	}

	ms.mu.Lock()
	for name := range requested {
		known := false
		for _, sv := range ms.switches {
			if sv.Name == name {
				known = true
				break
			}
		}
		if !known {
			ms.mu.Unlock()
			http.Error(w, errorBody("INVALID_OPERATION", "unknown switch: "+name), http.StatusBadRequest)
			return
		}
	}
	for ix, sv := range ms.switches {
		if state, found := requested[sv.Name]; found {
			ms.switches[ix].Value = state
		}
	}
	body := ms.statusBody()
	ms.mu.Unlock()

	w.Write(body)
	ms.broadcastStatus()
}

func (ms *mockServer) handleWs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("websocket upgrade failed:", err)
		return
	}

	ms.mu.Lock()
	ms.clients[conn] = true
	initial := ms.pushEnvelope()
	ms.mu.Unlock()

	// send the current snapshot right away, like the real server does on connect
	if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
		ms.dropClient(conn)
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				ms.dropClient(conn)
				return
			}
		}
	}()
}

func (ms *mockServer) pushEnvelope() []byte {
	return []byte(fmt.Sprintf(`{"event":"status_update","data":%s}`, status.MarshalSwitchMap(ms.switches)))
}

func (ms *mockServer) broadcastStatus() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	envelope := ms.pushEnvelope()
	for conn := range ms.clients {
		if err := conn.WriteMessage(websocket.TextMessage, envelope); err != nil {
			conn.Close()
			delete(ms.clients, conn)
		}
	}
}

func (ms *mockServer) dropClient(conn *websocket.Conn) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	conn.Close()
	delete(ms.clients, conn)
}

// flipLoop randomly toggles one switch per interval, for watching push
// updates land on the panel.
func (ms *mockServer) flipLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ms.mu.Lock()
		ix := rand.Intn(len(ms.switches))
		ms.switches[ix].Value = 1 - ms.switches[ix].Value
		name := ms.switches[ix].Name
		ms.mu.Unlock()

		log.Println("flipped switch", name)
		ms.broadcastStatus()
	}
}

func main() {
	flag.Parse()

	log.Println("mock switch server started")

	ms := newMockServer()

	if len(*flip) > 0 {
		flipInterval, err := time.ParseDuration(*flip)
		if err != nil {
			log.Fatalf("failed to parse flip interval: %v", err)
		}
		go ms.flipLoop(flipInterval)
	}

	handler := httprouter.New()
	handler.GET("/api/status", ms.handleStatus)
	handler.POST("/api/set_switch", ms.handleSetSwitch)
	handler.GET("/ws", ms.handleWs)

	log.Println("listening on", *addr)
	log.Fatal(http.ListenAndServe(*addr, handler))
}
