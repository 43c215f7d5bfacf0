package control

import (
	"context"
	"time"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/mqtt"
)

// ChannelDeviceStatus is the broadcast channel for node status changes.
const ChannelDeviceStatus = "device.status"

// Hub broadcasts to WebSocket clients.
type Hub interface {
	Broadcast(channel string, payload any)
}

// Publisher is the part of the MQTT client used for outbound messages.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Broadcaster fans engine events out to the WebSocket hub and to MQTT. Either
// side may be nil. It satisfies route.WSHub.
type Broadcaster struct {
	hub    Hub
	pub    Publisher
	logger Logger
}

// NewBroadcaster creates a fan-out over hub and pub.
func NewBroadcaster(hub Hub, pub Publisher, logger Logger) *Broadcaster {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Broadcaster{hub: hub, pub: pub, logger: logger}
}

// Broadcast sends payload on channel to every configured side.
func (b *Broadcaster) Broadcast(channel string, payload any) {
	if b.hub != nil {
		b.hub.Broadcast(channel, payload)
	}
	if b.pub != nil {
		if err := b.pub.PublishJSON(mqtt.Topics{}.Event(channel), payload, false); err != nil {
			b.logger.Warn("event publish failed", "channel", channel, "error", err)
		}
	}
}

// DeviceStatusMessage is the retained MQTT payload for a node.
type DeviceStatusMessage struct {
	DeviceID  string        `json:"device_id"`
	Name      string        `json:"name"`
	Status    device.Status `json:"status"`
	Previous  device.Status `json:"previous,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp string        `json:"timestamp"`
}

func statusMessage(c device.Change) DeviceStatusMessage {
	return DeviceStatusMessage{
		DeviceID:  c.DeviceID,
		Name:      c.Name,
		Status:    c.To,
		Previous:  c.From,
		Error:     c.Error,
		Timestamp: c.At.UTC().Format(time.RFC3339),
	}
}

// RelayChanges forwards registry changes until ctx ends or changes closes.
// Each change goes to the hub, to MQTT as retained status, and to every
// extra sink (telemetry, for instance).
func (b *Broadcaster) RelayChanges(ctx context.Context, changes <-chan device.Change, sinks ...func(device.Change)) {
	topics := mqtt.Topics{}
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			msg := statusMessage(c)
			if b.hub != nil {
				b.hub.Broadcast(ChannelDeviceStatus, msg)
			}
			if b.pub != nil {
				if err := b.pub.PublishJSON(topics.DeviceStatus(c.DeviceID), msg, true); err != nil {
					b.logger.Debug("device status publish failed", "device_id", c.DeviceID, "error", err)
				}
			}
			for _, sink := range sinks {
				sink(c)
			}
		}
	}
}
