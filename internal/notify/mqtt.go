package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nandhiniannika/online-voting/internal/config"
)

const (
	connectTimeout = 10 * time.Second
	publishQoS     = 1
)

// ErrPublishTimeout is returned when the broker did not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// MQTTPublisher publishes JSON events to <prefix>/enrollments and
// <prefix>/verifications.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// New returns an MQTT publisher when a broker is configured, otherwise Noop.
func New(cfg config.MQTTConfig) (Publisher, error) {
	if cfg.Broker == "" {
		return Noop{}, nil
	}
	return NewMQTTPublisher(cfg)
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	clientID := "faceauth-" + uuid.New().String()
	log.Printf("Connecting to MQTT %s with client ID %s", cfg.Broker, clientID)

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "faceauth"
	}
	return &MQTTPublisher{client: client, prefix: prefix}, nil
}

// EnrollmentTopic returns the topic enrollment events are published to.
func (p *MQTTPublisher) EnrollmentTopic() string { return p.prefix + "/enrollments" }

// VerificationTopic returns the topic verdicts are published to.
func (p *MQTTPublisher) VerificationTopic() string { return p.prefix + "/verifications" }

func (p *MQTTPublisher) PublishEnrollment(ctx context.Context, ev EnrollmentEvent) error {
	return p.publish(ctx, p.EnrollmentTopic(), ev)
}

func (p *MQTTPublisher) PublishVerification(ctx context.Context, ev VerificationEvent) error {
	return p.publish(ctx, p.VerificationTopic(), ev)
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	token := p.client.Publish(topic, publishQoS, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(connectTimeout):
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
}

// Close disconnects, waiting briefly for in-flight messages.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
