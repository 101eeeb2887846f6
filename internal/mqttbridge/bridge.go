// Package mqttbridge mirrors the grid onto an MQTT broker: key events are
// published, LED commands are subscribed to.
package mqttbridge

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/grid40h/internal/config"
	"github.com/coreman2200/grid40h/internal/grid"
	"github.com/coreman2200/grid40h/monome"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 2 * time.Second
)

// KeyMsg is the payload published on <prefix>/key.
type KeyMsg struct {
	X uint `json:"x"`
	Y uint `json:"y"`
	S int  `json:"s"` // 1 down, 0 up
}

type Bridge struct {
	client pahomqtt.Client
	grid   *grid.Controller
	prefix string
	qos    byte
}

// New wraps an existing client. Start subscribes to commands.
func New(client pahomqtt.Client, g *grid.Controller, prefix string, qos byte) *Bridge {
	return &Bridge{client: client, grid: g, prefix: prefix, qos: qos}
}

// Connect dials the broker in cfg and returns a started bridge.
func Connect(cfg config.MQTT, g *grid.Controller) (*Bridge, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectTimeout)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	b := New(client, g, cfg.TopicPrefix, cfg.QoS)
	if err := b.Start(); err != nil {
		client.Disconnect(250)
		return nil, err
	}
	log.Info().Str("broker", cfg.Broker).Str("prefix", cfg.TopicPrefix).Msg("mqtt bridge connected")
	return b, nil
}

func (b *Bridge) KeyTopic() string { return b.prefix + "/key" }
func (b *Bridge) CmdTopic() string { return b.prefix + "/cmd" }

func (b *Bridge) Start() error {
	token := b.client.Subscribe(b.CmdTopic(), b.qos, func(_ pahomqtt.Client, m pahomqtt.Message) {
		if err := b.HandleCommand(m.Payload()); err != nil {
			log.Warn().Err(err).Str("topic", m.Topic()).Msg("mqtt command failed")
		}
	})
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout on %s", ErrSubscribeFailed, b.CmdTopic())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// HandleCommand applies one grid.Command JSON payload.
func (b *Bridge) HandleCommand(payload []byte) error {
	var cmd grid.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	return b.grid.Apply(cmd)
}

// Publish sends a key event. Aux events carry nothing and are not sent.
// It is meant to be registered as a poller handler.
func (b *Bridge) Publish(ev monome.Event) {
	if err := b.publish(ev); err != nil {
		log.Warn().Err(err).Str("event", ev.String()).Msg("mqtt publish failed")
	}
}

func (b *Bridge) publish(ev monome.Event) error {
	var s int
	switch ev.Type {
	case monome.ButtonDown:
		s = 1
	case monome.ButtonUp:
	default:
		return nil
	}
	payload, err := json.Marshal(KeyMsg{X: ev.X, Y: ev.Y, S: s})
	if err != nil {
		return err
	}
	token := b.client.Publish(b.KeyTopic(), b.qos, false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func (b *Bridge) Close() {
	b.client.Unsubscribe(b.CmdTopic()).WaitTimeout(defaultPublishTimeout)
	b.client.Disconnect(250)
}
