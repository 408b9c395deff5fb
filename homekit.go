package swpanel

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"os/signal"
	"syscall"
	"time"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	hklog "github.com/brutella/hap/log"
	"github.com/pkg/errors"

	"github.com/imperator765/swpanel/state"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "swpanel"
const homeKitBridgeAuthor = "github.com/imperator765"
const homeKitSetTimeout = 10 * time.Second

func switchUniqueId(name string) uint64 {
	hash := fnv.New64()
	hash.Write([]byte("Switch_" + name))
	return hash.Sum64()
}

// buildHkAccessories creates one HomeKit switch per known switch name.
// Remote writes are dispatched to the server; the panel state stays
// authoritative, so the accessory value follows the next confirmed update.
func (p *Panel) buildHkAccessories(firmwareVersion string) (acc []*accessory.A, byName map[string]*accessory.Switch) {
	byName = make(map[string]*accessory.Switch)

	for _, sv := range p.store.Snapshot().Switches {
		name := sv.Name
		hkSwitch := accessory.NewSwitch(accessory.Info{
			Name:         name,
			Manufacturer: homeKitBridgeAuthor,
			SerialNumber: fmt.Sprintf("switch:remote:%s", name),
			Firmware:     firmwareVersion,
		})
		hkSwitch.Switch.On.SetValue(sv.IsOn())
		hkSwitch.Switch.On.OnValueRemoteUpdate(func(value bool) {
			desired := 0
			if value {
				desired = 1
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), homeKitSetTimeout)
				defer cancel()
				err := p.dispatcher.Set(ctx, name, desired)
				if err != nil {
					p.logger.Error("HomeKit switch request failed", "switch", name, "err", err)
				}
			}()
		})
		hkSwitch.A.Id = switchUniqueId(name)

		acc = append(acc, hkSwitch.A)
		byName[name] = hkSwitch
	}

	return
}

// StartHomeKit exposes the panel as a HomeKit bridge. It needs an initial
// snapshot, run SyncNow first. Blocks until ctx is cancelled or a signal
// arrives.
func (p *Panel) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	hkName := p.Name
	if len(hkName) < 1 {
		hkName = homeKitBridgeName
	}
	bridge := accessory.NewBridge(accessory.Info{
		Name:         hkName,
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	accessories, byName := p.buildHkAccessories(firmwareVersion)
	if len(accessories) == 0 {
		return errors.New("no switches known yet, HomeKit needs an initial snapshot")
	}

	p.store.OnChange(func(snap state.Snapshot) {
		for _, sv := range snap.Switches {
			if hkSwitch, found := byName[sv.Name]; found {
				hkSwitch.Switch.On.SetValue(sv.IsOn())
			}
		}
	})

	var store hap.Store
	if len(p.HkDirectory) > 1 {
		store = hap.NewFsStore(p.HkDirectory)
	} else {
		store = hap.NewFsStore(defaultHomeKitDirectory)
	}
	hkServer, err := hap.NewServer(store, bridge.A, accessories...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = p.HkPin
	if len(p.HkAddress) > 0 {
		hkServer.Addr = p.HkAddress
	}

	if p.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-c
		// Stop delivering signals.
		signal.Stop(c)
		// Cancel the context to stop the server.
		cancel()
	}()

	return hkServer.ListenAndServe(ctx)
}
