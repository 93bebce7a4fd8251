package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/tofmotion/internal/monitoring"
)

const (
	DefaultMQTTTopic    = "tofmotion/direction"
	DefaultMQTTClientID = "tofmotion"
	defaultMQTTTimeout  = 5 * time.Second
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// MQTTOptions configures an MQTTPublisher.
type MQTTOptions struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string
	Timeout  time.Duration
}

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher sends each event as JSON to a topic at QoS 0, not retained.
type MQTTPublisher struct {
	client  mqttClient
	topic   string
	timeout time.Duration
}

// NewMQTTPublisher connects to the broker and returns a publisher for it.
func NewMQTTPublisher(opts MQTTOptions) (*MQTTPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt broker address is required")
	}
	if opts.ClientID == "" {
		opts.ClientID = DefaultMQTTClientID
	}
	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			monitoring.Logf("mqtt connection to %s lost: %v", opts.Broker, err)
		})

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", opts.Broker, token.Error())
	}
	monitoring.Logf("connected to MQTT broker at %s", opts.Broker)
	return newMQTTPublisher(client, opts.Topic, opts.Timeout), nil
}

func newMQTTPublisher(client mqttClient, topic string, timeout time.Duration) *MQTTPublisher {
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	if timeout <= 0 {
		timeout = defaultMQTTTimeout
	}
	return &MQTTPublisher{client: client, topic: topic, timeout: timeout}
}

// Topic returns the topic events are published to.
func (p *MQTTPublisher) Topic() string { return p.topic }

func (p *MQTTPublisher) Publish(ctx context.Context, ev DirectionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode direction event: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrPublishTimeout, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects, allowing in-flight work 250ms to complete.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
