// Sync listener.
//
// synclisten runs on the external controller. It follows the coordinator's
// trigger peripheral, logs every trigger notification and, when MQTT is
// enabled, republishes it so other programs can start their own show in
// step with the route.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/ble"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/config"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/logging"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/mqtt"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/trigger"
)

var version = "dev"

const defaultConfigPath = "configs/config.yaml"

// TriggerMessage is published on routelight/trigger for every notification.
type TriggerMessage struct {
	Source    string `json:"source"`
	Value     byte   `json:"value"`
	Timestamp string `json:"timestamp"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	path := defaultConfigPath
	if p := os.Getenv("ROUTELIGHT_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version).Component("synclisten")
	log.Info("starting sync listener", "version", version, "name", cfg.Trigger.Name)

	identity, err := ble.ParseIdentity(cfg.BLE.ServiceUUID, cfg.BLE.CharacteristicUUID)
	if err != nil {
		return fmt.Errorf("parsing BLE identity: %w", err)
	}

	adapter := bluetooth.DefaultAdapter
	if enableErr := adapter.Enable(); enableErr != nil {
		return fmt.Errorf("%w: %v", ble.ErrUnavailable, enableErr)
	}

	var client *mqtt.Client
	if cfg.MQTT.Enabled {
		client, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, logging triggers only", "error", err)
			client = nil
		} else {
			client.SetLogger(log)
			defer func() {
				if closeErr := client.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
		}
	}

	listener := ble.NewListener(adapter, ble.ListenerConfig{
		Identity:      identity,
		Name:          cfg.Trigger.Name,
		RetryInterval: cfg.Trigger.Listen.RetryInterval,
		ScanTimeout:   cfg.Trigger.Listen.ScanTimeout,
	})
	listener.SetLogger(log)

	topic := mqtt.Topics{}.Trigger()
	err = listener.Run(ctx, func(data []byte) {
		if len(data) == 0 || data[0] != trigger.Value {
			log.Debug("ignoring notification", "data", fmt.Sprintf("%x", data))
			return
		}
		log.Info("trigger received", "value", data[0])

		if client == nil {
			return
		}
		msg := TriggerMessage{
			Source:    cfg.Trigger.Name,
			Value:     data[0],
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}
		body, marshalErr := json.Marshal(msg)
		if marshalErr != nil {
			log.Error("encoding trigger message", "error", marshalErr)
			return
		}
		// #nosec G115 -- QoS validated to 0..2
		if pubErr := client.Publish(topic, body, byte(cfg.MQTT.QoS), false); pubErr != nil {
			log.Warn("trigger publish failed", "error", pubErr)
		}
	})
	if err != nil {
		return fmt.Errorf("listening for trigger: %w", err)
	}

	log.Info("sync listener stopped")
	return nil
}
