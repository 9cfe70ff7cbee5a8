// Package mqtt publishes tag values to an MQTT broker.
package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"taglink/config"
)

// Publisher handles the MQTT connection and publishes tag values to a
// single broker.
type Publisher struct {
	config  config.MQTTConfig
	client  pahomqtt.Client
	log     *slog.Logger
	running bool
	mu      sync.RWMutex

	// Last published values, for change detection.
	lastValues map[string]string
	lastMu     sync.Mutex
}

// TagMessage is the JSON structure published per tag.
type TagMessage struct {
	Topic     string      `json:"topic"`
	Tag       string      `json:"tag"`
	Value     interface{} `json:"value"`
	Type      string      `json:"type,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewPublisher creates a publisher for one broker. It does not connect.
func NewPublisher(cfg config.MQTTConfig, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{
		config:     cfg,
		log:        log,
		lastValues: make(map[string]string),
	}
}

// IsRunning reports whether the publisher is connected.
func (p *Publisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Start connects to the broker. Safe to call when already running.
func (p *Publisher) Start() error {
	p.mu.RLock()
	if p.running {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	opts := pahomqtt.NewClientOptions()
	if p.config.UseTLS {
		opts.AddBroker(fmt.Sprintf("ssl://%s:%d", p.config.Broker, p.config.Port))
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		opts.AddBroker(fmt.Sprintf("tcp://%s:%d", p.config.Broker, p.config.Port))
	}
	opts.SetClientID(p.config.ClientID)
	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	client := pahomqtt.NewClient(opts)
	p.log.Debug("connecting to mqtt broker", "broker", p.config.Broker, "port", p.config.Port)

	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt: connect %s:%d: timeout", p.config.Broker, p.config.Port)
	}
	if token.Error() != nil {
		return fmt.Errorf("mqtt: connect %s:%d: %w", p.config.Broker, p.config.Port, token.Error())
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		client.Disconnect(100)
		return nil
	}
	p.client = client
	p.running = true
	p.mu.Unlock()

	// Force a republish of everything on reconnect.
	p.lastMu.Lock()
	p.lastValues = make(map[string]string)
	p.lastMu.Unlock()

	p.log.Info("mqtt publisher started", "broker", p.config.Broker)
	return nil
}

// Stop disconnects from the broker.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.running || p.client == nil {
		p.mu.Unlock()
		return
	}
	p.running = false
	client := p.client
	p.client = nil
	p.mu.Unlock()

	client.Disconnect(500)
}

// BuildTopic constructs the full topic path for a tag.
func (p *Publisher) BuildTopic(tagName string) string {
	return fmt.Sprintf("%s/tags/%s", p.config.RootTopic, tagName)
}

// Publish sends a tag value if it differs from the last published value.
// Set force to publish unconditionally. Returns whether a message went out.
func (p *Publisher) Publish(tagName, typeName string, value interface{}, force bool) bool {
	p.mu.RLock()
	running := p.running
	client := p.client
	p.mu.RUnlock()

	if !running || client == nil {
		return false
	}

	rendered := fmt.Sprintf("%v", value)
	p.lastMu.Lock()
	last, seen := p.lastValues[tagName]
	if seen && !force && last == rendered {
		p.lastMu.Unlock()
		return false
	}
	p.lastValues[tagName] = rendered
	p.lastMu.Unlock()

	topic := p.BuildTopic(tagName)
	msg := TagMessage{
		Topic:     topic,
		Tag:       tagName,
		Value:     value,
		Type:      typeName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		p.log.Warn("marshal tag message", "tag", tagName, "err", err)
		return false
	}

	token := client.Publish(topic, 0, false, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		p.log.Warn("publish failed", "topic", topic, "err", token.Error())
		return false
	}
	return true
}
