package sensors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type BridgeConfig struct {
	Brokers  []string
	ClientID string
	Username string
	Password string

	ObstructionTopic string
	ProximityTopic   string
	DoorTopic        string
	PowerTopic       string
}

// Bridge feeds MQTT sensor topics into the local signals and publishes door
// and power state back out.
type Bridge struct {
	cfg         BridgeConfig
	obstruction *Debounced
	proximity   *Presence
	logger      *slog.Logger
	client      mqtt.Client
}

func NewBridge(cfg BridgeConfig, obstruction *Debounced, proximity *Presence, logger *slog.Logger) *Bridge {
	if cfg.ClientID == "" {
		host, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("garage-%s-%d", host, time.Now().UnixNano())
	}
	return &Bridge{cfg: cfg, obstruction: obstruction, proximity: proximity, logger: logger}
}

// Connect dials the broker. Subscriptions are (re)made from the connect
// handler so they survive reconnects.
func (b *Bridge) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	for _, broker := range b.cfg.Brokers {
		opts.AddBroker(broker)
	}
	opts.SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectTimeout(10 * time.Second).
		SetOnConnectHandler(b.subscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.logger.Warn("mqtt connection lost", "error", err)
		})
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username).SetPassword(b.cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %v: %w", b.cfg.Brokers, err)
	}

	b.client = client
	b.logger.Info("mqtt connected", "brokers", b.cfg.Brokers, "client_id", b.cfg.ClientID)
	return nil
}

func (b *Bridge) subscribe(c mqtt.Client) {
	subs := map[string]mqtt.MessageHandler{}
	if b.cfg.ObstructionTopic != "" {
		subs[b.cfg.ObstructionTopic] = b.handleObstruction
	}
	if b.cfg.ProximityTopic != "" {
		subs[b.cfg.ProximityTopic] = b.handleProximity
	}
	for topic, h := range subs {
		if t := c.Subscribe(topic, 1, h); t.Wait() && t.Error() != nil {
			b.logger.Error("mqtt subscribe failed", "topic", topic, "error", t.Error())
			continue
		}
		b.logger.Info("mqtt subscribed", "topic", topic)
	}
}

func (b *Bridge) handleObstruction(_ mqtt.Client, m mqtt.Message) {
	v, err := ParseSwitch(m.Payload())
	if err != nil {
		b.logger.Warn("ignoring obstruction payload", "topic", m.Topic(), "error", err)
		return
	}
	b.obstruction.Set(v)
}

func (b *Bridge) handleProximity(_ mqtt.Client, m mqtt.Message) {
	v, err := ParseSwitch(m.Payload())
	if err != nil {
		b.logger.Warn("ignoring proximity payload", "topic", m.Topic(), "error", err)
		return
	}
	b.proximity.Set(v)
}

type doorMessage struct {
	State     types.DoorState `json:"state"`
	Timestamp string          `json:"timestamp"`
}

// PublishDoorState sends a retained door state message.
func (b *Bridge) PublishDoorState(s types.DoorState) {
	b.publish(b.cfg.DoorTopic, true, doorMessage{State: s, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
}

func (b *Bridge) PublishPower(s types.PowerSample) {
	b.publish(b.cfg.PowerTopic, false, s)
}

func (b *Bridge) publish(topic string, retained bool, v any) {
	if b.client == nil || topic == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("mqtt encode failed", "topic", topic, "error", err)
		return
	}
	token := b.client.Publish(topic, 0, retained, data)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("mqtt publish timed out", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			b.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
		}
	}()
}

func (b *Bridge) Close() {
	if b.client == nil {
		return
	}
	b.client.Disconnect(250)
	b.logger.Info("mqtt disconnected")
}

var errNoValue = errors.New(`switch payload has no "value"`)

func parseSwitchJSON(payload []byte) (bool, error) {
	var body struct {
		Value *bool `json:"value"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return false, fmt.Errorf("decode switch payload: %w", err)
	}
	if body.Value == nil {
		return false, errNoValue
	}
	return *body.Value, nil
}
