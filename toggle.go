package swpanel

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/imperator765/swpanel/state"
	"github.com/imperator765/swpanel/status"
)

// ToggleDispatcher sends state change requests. Calls are independent, there
// is no queuing or debouncing; rapid toggles race and the server's answers
// apply in arrival order.
type ToggleDispatcher struct {
	client *status.Client
	store  *state.Store
	logger *log.Logger
}

func NewToggleDispatcher(client *status.Client, store *state.Store) *ToggleDispatcher {
	return &ToggleDispatcher{
		client: client,
		store:  store,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "Toggle: ",
			Level:  log.GetLevel(),
		}),
	}
}

// Toggle requests the opposite of the observed value.
func (td *ToggleDispatcher) Toggle(ctx context.Context, name string, observed int) error {
	desired := 1
	if observed != 0 {
		desired = 0
	}
	return td.Set(ctx, name, desired)
}

// Set requests an explicit state. On success the server's returned mapping
// is adopted verbatim; on failure the local state stays untouched and only
// the banner changes.
func (td *ToggleDispatcher) Set(ctx context.Context, name string, desired int) error {
	switches, err := td.client.SetSwitch(ctx, name, desired)
	if err != nil {
		var srvErr *status.ServerError
		message := ""
		if errors.As(err, &srvErr) {
			message = srvErr.Message
		}
		td.logger.Error("switch request failed", "switch", name, "err", err)
		td.store.ToggleFailed(message)
		return errors.Wrapf(err, "failed to set switch %s", name)
	}

	td.store.ToggleConfirmed(switches)
	return nil
}
