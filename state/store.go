// Package state owns the panel's local view of the remote switch server.
// All mutation goes through Store, which is the single authoritative owner
// of SwitchState, the connection flag and the error banner; pull, push and
// toggle goroutines race for it and the last writer wins.
package state

import (
	"sync"

	"github.com/imperator765/swpanel/status"
)

// Generic banner messages, used when a failure carries no reason of its own.
const (
	GenericPullError   = "connection to switch server failed"
	GenericPushError   = "status feed reported an error"
	GenericToggleError = "switch request failed"
)

// Snapshot is an immutable copy of the store contents, safe to hand to
// renderers and observers.
type Snapshot struct {
	Switches  []status.SwitchValue
	Connected bool
	Error     string
}

// Get returns the value of a named switch from the snapshot.
func (snap Snapshot) Get(name string) (value int, found bool) {
	for _, sv := range snap.Switches {
		if sv.Name == name {
			return sv.Value, true
		}
	}
	return 0, false
}

// Store holds switch states in display order. Observers registered with
// OnChange are called after every mutation with a fresh snapshot.
type Store struct {
	mu        sync.Mutex
	order     []string
	values    map[string]int
	connected bool
	errorMsg  string

	observers []func(Snapshot)
}

func NewStore() *Store {
	return &Store{
		values:    make(map[string]int),
		connected: true,
	}
}

// OnChange registers an observer. Observers run synchronously on the
// goroutine that mutated the store, keep them short.
func (st *Store) OnChange(fn func(Snapshot)) {
	st.mu.Lock()
	st.observers = append(st.observers, fn)
	st.mu.Unlock()
}

func (st *Store) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshotLocked()
}

func (st *Store) snapshotLocked() Snapshot {
	switches := make([]status.SwitchValue, 0, len(st.order))
	for _, name := range st.order {
		switches = append(switches, status.SwitchValue{Name: name, Value: st.values[name]})
	}
	return Snapshot{
		Switches:  switches,
		Connected: st.connected,
		Error:     st.errorMsg,
	}
}

func (st *Store) replaceLocked(switches []status.SwitchValue) {
	st.order = st.order[:0]
	st.values = make(map[string]int, len(switches))
	for _, sv := range switches {
		if _, present := st.values[sv.Name]; !present {
			st.order = append(st.order, sv.Name)
		}
		st.values[sv.Name] = sv.Value
	}
}

// mergeLocked overwrites or appends individual switches, keys already known
// keep their position.
func (st *Store) mergeLocked(switches []status.SwitchValue) {
	for _, sv := range switches {
		if _, present := st.values[sv.Name]; !present {
			st.order = append(st.order, sv.Name)
		}
		st.values[sv.Name] = sv.Value
	}
}

func (st *Store) notify(snap Snapshot, observers []func(Snapshot)) {
	for _, fn := range observers {
		fn(snap)
	}
}

// PullSucceeded replaces the whole mapping with a fresh snapshot.
func (st *Store) PullSucceeded(switches []status.SwitchValue) {
	st.mu.Lock()
	st.replaceLocked(switches)
	st.connected = true
	st.errorMsg = ""
	snap, observers := st.snapshotLocked(), st.observers
	st.mu.Unlock()

	st.notify(snap, observers)
}

// PullFailed marks the connection lost. The switch mapping stays as it was.
func (st *Store) PullFailed() {
	st.mu.Lock()
	st.connected = false
	st.errorMsg = GenericPullError
	snap, observers := st.snapshotLocked(), st.observers
	st.mu.Unlock()

	st.notify(snap, observers)
}

// PushUpdate merges a full or partial mapping delivered by the push channel.
func (st *Store) PushUpdate(switches []status.SwitchValue) {
	st.mu.Lock()
	st.mergeLocked(switches)
	st.connected = true
	st.errorMsg = ""
	snap, observers := st.snapshotLocked(), st.observers
	st.mu.Unlock()

	st.notify(snap, observers)
}

// PushFailed records a push channel error, message may be empty.
func (st *Store) PushFailed(message string) {
	if len(message) == 0 {
		message = GenericPushError
	}
	st.mu.Lock()
	st.connected = false
	st.errorMsg = message
	snap, observers := st.snapshotLocked(), st.observers
	st.mu.Unlock()

	st.notify(snap, observers)
}

// Reconnected clears the banner only, it does not imply a state refresh.
func (st *Store) Reconnected() {
	st.mu.Lock()
	st.errorMsg = ""
	snap, observers := st.snapshotLocked(), st.observers
	st.mu.Unlock()

	st.notify(snap, observers)
}

// ToggleConfirmed adopts the mapping the server returned for a set request.
// The connection flag is not touched, toggles do not probe connectivity.
func (st *Store) ToggleConfirmed(switches []status.SwitchValue) {
	st.mu.Lock()
	st.replaceLocked(switches)
	st.errorMsg = ""
	snap, observers := st.snapshotLocked(), st.observers
	st.mu.Unlock()

	st.notify(snap, observers)
}

// ToggleFailed sets the banner and leaves everything else unchanged.
func (st *Store) ToggleFailed(message string) {
	if len(message) == 0 {
		message = GenericToggleError
	}
	st.mu.Lock()
	st.errorMsg = message
	snap, observers := st.snapshotLocked(), st.observers
	st.mu.Unlock()

	st.notify(snap, observers)
}
