// Package swpanel is a panel for a remote switch server: it mirrors the
// server's switch states locally, keeps them fresh over pull and push
// synchronization and dispatches toggle requests.
package swpanel

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/imperator765/swpanel/history"
	"github.com/imperator765/swpanel/push"
	"github.com/imperator765/swpanel/state"
	"github.com/imperator765/swpanel/status"
)

const disconnectTimeout = 5 * time.Second

// Panel is the aggregate the json config file unmarshals into. Optional
// sections (push sources, HomeKit, history) stay nil when absent.
type Panel struct {
	Name string

	ServerAddress string
	PollInterval  string
	WebAddress    string

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	PushWebsocket *push.WebsocketSource
	PushMqtt      *push.MqttSource
	History       *history.Recorder

	store      *state.Store
	client     *status.Client
	pull       *PullSynchronizer
	dispatcher *ToggleDispatcher
	pushSource push.Source
	logger     *log.Logger
}

// Init validates the configuration and builds the internal components. It
// must run before any Start/Connect call.
func (p *Panel) Init() error {
	p.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "swpanel: ",
		Level:  log.GetLevel(),
	})

	interval := defaultPollInterval
	if len(p.PollInterval) > 0 {
		parsed, err := time.ParseDuration(p.PollInterval)
		if err != nil {
			return errors.Wrap(err, "failed to parse poll interval")
		}
		interval = parsed
	}

	client, err := status.NewClient(p.ServerAddress)
	if err != nil {
		return errors.Wrap(err, "failed to create status client")
	}
	p.client = client

	p.store = state.NewStore()
	p.dispatcher = NewToggleDispatcher(p.client, p.store)
	p.pull = NewPullSynchronizer(p.client, p.store, interval)

	if p.PushWebsocket != nil && p.PushMqtt != nil {
		return errors.New("only one push source can be configured")
	}

	if p.History != nil {
		err = p.History.Setup()
		if err != nil {
			return errors.Wrap(err, "failed to set up history recorder")
		}
		p.store.OnChange(p.History.Record)
	}

	return nil
}

// Store exposes the authoritative state for renderers and observers.
func (p *Panel) Store() *state.Store {
	return p.store
}

// SyncNow runs a single synchronous pull.
func (p *Panel) SyncNow(ctx context.Context) {
	p.pull.SyncOnce(ctx)
}

// StartSync blocks, running the pull loop until ctx is cancelled or Close is
// called.
func (p *Panel) StartSync(ctx context.Context) {
	p.pull.Start(ctx)
}

// ConnectPush establishes the configured push subscription, if any.
func (p *Panel) ConnectPush(ctx context.Context) error {
	switch {
	case p.PushWebsocket != nil:
		p.pushSource = p.PushWebsocket
	case p.PushMqtt != nil:
		p.pushSource = p.PushMqtt
	default:
		p.logger.Info("no push source configured, pull only")
		return nil
	}

	err := p.pushSource.Connect(ctx, p.handlePushEvent)
	if err != nil {
		return errors.Wrap(err, "failed to connect push source")
	}

	return nil
}

func (p *Panel) handlePushEvent(ev push.Event) {
	switch ev.Type {
	case push.EventStatusUpdate:
		p.store.PushUpdate(ev.Switches)
	case push.EventError:
		p.store.PushFailed(ev.Message)
	case push.EventReconnected:
		p.store.Reconnected()
	}
}

// Toggle flips the named switch based on its currently observed value.
func (p *Panel) Toggle(ctx context.Context, name string) error {
	observed, found := p.store.Snapshot().Get(name)
	if !found {
		return errors.Errorf("unknown switch: %s", name)
	}

	return p.dispatcher.Toggle(ctx, name, observed)
}

func (p *Panel) Close() (err error) {
	if p.pull != nil {
		p.pull.Stop()
	}

	if p.pushSource != nil {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		closeErr := p.pushSource.Disconnect(ctx)
		if closeErr != nil {
			err = errors.Wrap(closeErr, "failed to disconnect push source")
		}
	}

	if p.History != nil {
		p.History.Close()
	}

	return
}
