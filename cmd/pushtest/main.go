package main

import (
	"context"
	"flag"
	"time"

	"github.com/charmbracelet/log"

	"github.com/imperator765/swpanel/push"
)

// pushtest subscribes to a push feed and logs every event, for checking a
// broker or websocket endpoint without running the whole panel.

var (
	wsUrl  = flag.String("ws", "", "websocket feed url (e.g. ws://localhost:9000/ws)")
	broker = flag.String("broker", "", "mqtt broker url (e.g. mqtt://localhost:1883)")
	prefix = flag.String("prefix", "", "mqtt topic prefix")
)

func main() {
	flag.Parse()

	log.SetLevel(log.DebugLevel)

	var source push.Source
	switch {
	case len(*wsUrl) > 0:
		source = &push.WebsocketSource{Url: *wsUrl}
	case len(*broker) > 0:
		source = &push.MqttSource{Broker: *broker, ClientId: "swpanel-pushtest", TopicPrefix: *prefix}
	default:
		log.Fatal("either -ws or -broker is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := source.Connect(ctx, func(ev push.Event) {
		log.Info("received push event", "type", ev.Type, "switches", len(ev.Switches), "message", ev.Message)
	})
	if err != nil {
		log.Fatal("failed to connect push source", "error", err)
	}

	log.Info("push source connected")
	log.Info("sleeping for 10 hours")
	time.Sleep(10 * time.Hour)
}
