package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/saadjs/niclog/internal/config"
)

const defaultTopicPrefix = "niclog"

// Publisher sends JSON payloads to an MQTT broker under a topic prefix.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	timeout     time.Duration
}

func New(cfg config.MQTTConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	opts := mqtt.NewClientOptions()
	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts.AddBroker(broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "niclog"
	}
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	return connect(mqtt.NewClient(opts), cfg, connectWait)
}

const connectWait = 15 * time.Second

// connect waits for the first connection. With connect retry enabled the
// token never completes against an unreachable broker, so the client is
// disconnected on timeout to stop its background retries.
func connect(client mqtt.Client, cfg config.MQTTConfig, wait time.Duration) (*Publisher, error) {
	token := client.Connect()
	if !token.WaitTimeout(wait) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to MQTT broker: %w", err)
	}
	return NewWithClient(client, cfg.TopicPrefix), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client mqtt.Client, topicPrefix string) *Publisher {
	topicPrefix = strings.Trim(strings.TrimSpace(topicPrefix), "/")
	if topicPrefix == "" {
		topicPrefix = defaultTopicPrefix
	}
	return &Publisher{client: client, topicPrefix: topicPrefix, timeout: 10 * time.Second}
}

func (p *Publisher) Topic(suffix string) string {
	return p.topicPrefix + "/" + strings.Trim(suffix, "/")
}

func (p *Publisher) Connected() bool {
	return p != nil && p.client != nil && p.client.IsConnected()
}

// PublishJSON encodes v and publishes it at QoS 1 on prefix/suffix.
func (p *Publisher) PublishJSON(suffix string, v any, retained bool) error {
	if !p.Connected() {
		return fmt.Errorf("MQTT client is not connected")
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	topic := p.Topic(suffix)
	token := p.client.Publish(topic, 1, retained, body)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
