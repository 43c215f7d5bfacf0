package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/audit"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/mqtt"
)

// Subscriber is the part of the MQTT client used for commands.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// RouteCommand is the payload of routelight/command/route/{name}. An empty
// payload means no trigger.
type RouteCommand struct {
	Trigger bool `json:"trigger"`
}

// BlinkCommand is the payload of routelight/command/blink.
type BlinkCommand struct {
	Duration uint16 `json:"duration"`
	Trigger  bool   `json:"trigger"`
}

var errBadCommandTopic = errors.New("control: not a route command topic")

// SubscribeCommands registers the route and blink command handlers.
//
// Commands run in the background so a long route does not hold up the MQTT
// client's delivery goroutine.
func (s *Service) SubscribeCommands(sub Subscriber, qos byte) error {
	topics := mqtt.Topics{}
	if err := sub.Subscribe(topics.AllRouteCommands(), qos, s.handleRouteCommand); err != nil {
		return fmt.Errorf("subscribing to route commands: %w", err)
	}
	if err := sub.Subscribe(topics.BlinkCommand(), qos, s.handleBlinkCommand); err != nil {
		return fmt.Errorf("subscribing to blink commands: %w", err)
	}
	return nil
}

func (s *Service) handleRouteCommand(topic string, payload []byte) error {
	name, ok := mqtt.ParseRouteCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", errBadCommandTopic, topic)
	}

	var cmd RouteCommand
	if err := decodeOptional(payload, &cmd); err != nil {
		return fmt.Errorf("decoding route command: %w", err)
	}

	s.logger.Info("route command received", "route", name, "trigger", cmd.Trigger)
	s.Go(func() {
		if _, err := s.RunRoute(commandContext(), name, cmd.Trigger); err != nil {
			s.logger.Warn("route command failed", "route", name, "error", err)
		}
	})
	return nil
}

func (s *Service) handleBlinkCommand(_ string, payload []byte) error {
	var cmd BlinkCommand
	if err := decodeOptional(payload, &cmd); err != nil {
		return fmt.Errorf("decoding blink command: %w", err)
	}

	s.logger.Info("blink command received", "duration", cmd.Duration, "trigger", cmd.Trigger)
	s.Go(func() {
		s.BlinkAll(commandContext(), cmd.Duration, cmd.Trigger)
	})
	return nil
}

func commandContext() context.Context {
	return audit.WithSource(context.Background(), audit.SourceMQTT)
}

func decodeOptional(payload []byte, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}
