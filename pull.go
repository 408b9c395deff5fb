package swpanel

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/imperator765/swpanel/state"
	"github.com/imperator765/swpanel/status"
)

const defaultPollInterval = 10 * time.Second

// PullSynchronizer refreshes the whole switch mapping from the status
// endpoint: once immediately on Start, then on a fixed ticker until Stop or
// context cancellation.
type PullSynchronizer struct {
	client   *status.Client
	store    *state.Store
	interval time.Duration

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	logger   *log.Logger
}

func NewPullSynchronizer(client *status.Client, store *state.Store, interval time.Duration) *PullSynchronizer {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &PullSynchronizer{
		client:   client,
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "Pull: ",
			Level:  log.GetLevel(),
		}),
	}
}

// Start blocks until Stop is called or ctx is cancelled.
func (ps *PullSynchronizer) Start(ctx context.Context) {
	ps.SyncOnce(ctx)

	ps.ticker = time.NewTicker(ps.interval)
	defer ps.ticker.Stop()

	for {
		select {
		case <-ps.done:
			return
		case <-ctx.Done():
			return
		case <-ps.ticker.C:
			ps.SyncOnce(ctx)
		}
	}
}

func (ps *PullSynchronizer) Stop() {
	ps.stopOnce.Do(func() {
		close(ps.done)
	})
}

// SyncOnce performs a single pull. A response that arrives after teardown is
// dropped, there is no cancellation for the in-flight request itself.
func (ps *PullSynchronizer) SyncOnce(ctx context.Context) {
	switches, err := ps.client.FetchStatus(ctx)

	select {
	case <-ps.done:
		return
	case <-ctx.Done():
		return
	default:
	}

	if err != nil {
		ps.logger.Error("status pull failed", "err", err)
		ps.store.PullFailed()
		return
	}

	ps.store.PullSucceeded(switches)
}
