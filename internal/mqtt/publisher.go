package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"smogdash/internal/config"
	"smogdash/internal/modules/smog/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	publishQoS     = 1
	publishTimeout = 5 * time.Second
)

// Publisher pushes loaded station records to a retained MQTT topic so late
// subscribers always get the newest reading.
type Publisher struct {
	client    mqtt.Client
	topic     string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) (*Publisher, error) {
	if !cfg.MQTTEnabled() {
		return nil, fmt.Errorf("mqtt broker not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Publisher{
		topic:  cfg.MQTTTopic,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.MQTTClientID)

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p, nil
}

func brokerURL(cfg config.Config) string {
	return fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort)
}

// Connect waits for the initial broker connection. It respects ctx and
// Disconnect; paho keeps retrying in the background after ctx gives up.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// PublishStation publishes rec as a retained QoS 1 StationMessage.
func (p *Publisher) PublishStation(rec types.StationRecord, fetchedAt time.Time) error {
	if !p.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	data, err := encodeStationMessage(rec, fetchedAt)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, publishQoS, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish station: %w", err)
	}

	p.logger.Debug("published station",
		"topic", p.topic,
		"post_code", rec.School.PostCode,
		"timestamp", rec.Timestamp,
	)
	return nil
}

func encodeStationMessage(rec types.StationRecord, fetchedAt time.Time) ([]byte, error) {
	data, err := json.Marshal(types.NewStationMessage(rec, fetchedAt))
	if err != nil {
		return nil, fmt.Errorf("marshal station message: %w", err)
	}
	return data, nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher and closes the connection. Safe to call
// more than once.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
