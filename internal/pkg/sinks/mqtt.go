package sinks

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second

	// milliseconds
	disconnectQuiesce = 250
)

var ErrPublishTimeout = errors.New("timed out waiting for MQTT publish")

// publisher is the part of a paho client the sink needs
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retained    bool
}

// MQTT publishes each reading as JSON to <prefix>/<alias>/state.
type MQTT struct {
	client         publisher
	topicPrefix    string
	qos            byte
	retained       bool
	publishTimeout time.Duration
}

func ConnectMQTT(cfg MQTTConfig) (*MQTT, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logging.Logger(nil).WithError(err).Warn("mqtt: connection lost")
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		logging.Logger(nil).Infof("mqtt: connected to %s", cfg.Broker)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, errors.Errorf("connecting to MQTT broker %s: timeout after %v", cfg.Broker, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "connecting to MQTT broker %s", cfg.Broker)
	}

	return newMQTT(client, cfg), nil
}

func newMQTT(client publisher, cfg MQTTConfig) *MQTT {
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "kasa"
	}

	return &MQTT{
		client:         client,
		topicPrefix:    prefix,
		qos:            cfg.QoS,
		retained:       cfg.Retained,
		publishTimeout: defaultPublishTimeout,
	}
}

// topicSegment makes an alias safe for use as one MQTT topic level
func topicSegment(alias string) string {
	r := strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")
	s := strings.ToLower(r.Replace(alias))
	if s == "" {
		return "unnamed"
	}
	return s
}

func (m *MQTT) Topic(alias string) string {
	return m.topicPrefix + "/" + topicSegment(alias) + "/state"
}

func (m *MQTT) Publish(ctx context.Context, r Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding reading")
	}

	topic := m.Topic(r.Alias)
	token := m.client.Publish(topic, m.qos, m.retained, payload)
	if !token.WaitTimeout(m.publishTimeout) {
		return errors.Wrapf(ErrPublishTimeout, "topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "publishing to %s", topic)
	}

	logging.Logger(ctx).Debugf("mqtt: published %d bytes to %s", len(payload), topic)
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(disconnectQuiesce)
	return nil
}
