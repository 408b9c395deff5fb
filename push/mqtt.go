package push

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"

	"github.com/imperator765/swpanel/status"
)

const defaultTopicPrefix = "swpanel"
const subscribeTimeoutSeconds = 15
const connectionTimeoutSeconds = 5

// MqttSource subscribes to <prefix>/status_update, <prefix>/error and
// <prefix>/reconnected on a broker. Payload of status_update is the same
// mapping json the status endpoint serves.
type MqttSource struct {
	Broker      string
	ClientId    string
	TopicPrefix string

	config    autopaho.ClientConfig
	conn      *autopaho.ConnectionManager
	logger    *log.Logger
	handler   Handler
	wasOnline bool
}

func (ms *MqttSource) topic(event string) string {
	prefix := ms.TopicPrefix
	if len(prefix) == 0 {
		prefix = defaultTopicPrefix
	}
	return prefix + "/" + event
}

func (ms *MqttSource) onConnUp(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
	ms.logger.Info("Connected to MQTT broker")

	if ms.wasOnline {
		ms.handler(Event{Type: EventReconnected})
	}
	ms.wasOnline = true

	subs := []paho.SubscribeOptions{}
	for _, event := range []string{"status_update", "error", "reconnected"} {
		subs = append(subs, paho.SubscribeOptions{
			QoS:   1,
			Topic: ms.topic(event),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeoutSeconds*time.Second)
	defer cancel()

	_, err := cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: subs,
	})
	if err != nil {
		ms.logger.Error("Failed to subscribe to topics", "err", err)
	}
}

func (ms *MqttSource) onConnError(err error) {
	ms.logger.Error("Received Mqtt connection error", "err", err)
	ms.handler(Event{Type: EventError})
}

func (ms *MqttSource) onSrvDisconnect(d *paho.Disconnect) {
	ms.logger.Info("Disconnected from MQTT broker")
	ms.handler(Event{Type: EventError})
}

func (ms *MqttSource) onPublishRecv() []func(paho.PublishReceived) (bool, error) {
	return []func(paho.PublishReceived) (bool, error){
		func(pr paho.PublishReceived) (bool, error) {
			ev, err := ms.eventFromPublish(pr.Packet)
			if err != nil {
				ms.logger.Error("dropping unreadable mqtt message", "topic", pr.Packet.Topic, "err", err)
				return false, err
			}
			ms.handler(ev)
			return true, nil
		},
	}
}

func (ms *MqttSource) eventFromPublish(pub *paho.Publish) (ev Event, err error) {
	switch pub.Topic {
	case ms.topic("status_update"):
		// both the bare mapping and the enveloped {"data":{...}} form are fine
		switches, parseErr := status.ParseSwitchMap(pub.Payload)
		if parseErr != nil {
			err = errors.Wrap(parseErr, "failed to parse status_update payload")
			return
		}
		ev = Event{Type: EventStatusUpdate, Switches: switches}
	case ms.topic("error"):
		message := errorMessage(pub.Payload)
		if len(message) == 0 {
			message = strings.TrimSpace(string(pub.Payload))
			if strings.HasPrefix(message, "{") {
				message = ""
			}
		}
		ev = Event{Type: EventError, Message: message}
	case ms.topic("reconnected"):
		ev = Event{Type: EventReconnected}
	default:
		err = errors.Errorf("message on unexpected topic: %s", pub.Topic)
	}

	return
}

func (ms *MqttSource) Connect(ctx context.Context, handler Handler) (err error) {
	if ms.conn != nil {
		return errors.New("mqtt source already connected")
	}

	addr, err := url.Parse(ms.Broker)
	if err != nil {
		return errors.Wrap(err, "failed to parse broker address")
	}

	ms.handler = handler
	ms.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "PushMqtt: ",
		Level:  log.GetLevel(),
	})

	clientId := ms.ClientId
	if len(clientId) == 0 {
		clientId = defaultTopicPrefix
	}

	ms.config = autopaho.ClientConfig{
		BrokerUrls:            []*url.URL{addr},
		KeepAlive:             20,
		SessionExpiryInterval: 60,
		OnConnectionUp:        ms.onConnUp,
		OnConnectError:        ms.onConnError,
		ClientConfig: paho.ClientConfig{
			ClientID:           clientId,
			OnClientError:      ms.onConnError,
			OnServerDisconnect: ms.onSrvDisconnect,
			OnPublishReceived:  ms.onPublishRecv(),
		},
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectionTimeoutSeconds*time.Second)
	defer cancel()

	ms.conn, err = autopaho.NewConnection(ctx, ms.config)
	if err != nil {
		return errors.Wrap(err, "failed to create mqtt connection")
	}

	err = ms.conn.AwaitConnection(connectCtx)
	if err != nil {
		return errors.Wrap(err, "failed to connect to mqtt broker")
	}

	return nil
}

func (ms *MqttSource) Disconnect(ctx context.Context) error {
	if ms.conn == nil {
		return nil
	}
	return ms.conn.Disconnect(ctx)
}
