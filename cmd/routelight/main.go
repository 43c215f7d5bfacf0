// Route Light coordinator.
//
// This is the main entry point of the route-light coordinator. It discovers
// the LED nodes over Bluetooth LE, keeps them connected on demand, and plays
// routes across them as timed chase animations. Routes are started over
// HTTP or MQTT; each start can first notify an external controller through
// the BLE trigger signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tinygo.org/x/bluetooth"

	_ "github.com/TohokuUniv-HasegawaLab/OpenCampus/migrations"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/api"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/audit"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/control"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/ble"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/config"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/database"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/influxdb"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/logging"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/mqtt"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/payload"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/route"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/trigger"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// Event plumbing sizes.
const (
	loopBuffer         = 128
	changeBuffer       = 64
	startupCheckWindow = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the coordinator together and blocks until ctx is cancelled.
//
// Returns:
//   - error: nil on clean shutdown, or error describing a startup failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting route coordinator",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"site", cfg.Site.ID,
		"routes", len(cfg.Routes),
	)

	// Execution history
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)
	repo := route.NewSQLiteRepository(db.DB)
	journal := audit.NewSQLiteRepository(db.DB)

	// Device registry and its event loop
	registry := device.NewRegistry()
	registry.SetLogger(log.Component("device"))
	loop := device.NewLoop(registry, loopBuffer)
	loop.SetLogger(log.Component("device"))
	go loop.Run(ctx)

	// Radio
	identity, err := ble.ParseIdentity(cfg.BLE.ServiceUUID, cfg.BLE.CharacteristicUUID)
	if err != nil {
		return fmt.Errorf("parsing BLE identity: %w", err)
	}
	adapter := bluetooth.DefaultAdapter
	central := ble.NewCentral(adapter, loop, ble.CentralConfig{
		Identity:       identity,
		RequireService: cfg.BLE.RequireService,
		ScanWindow:     cfg.BLE.ScanWindow,
		ScanPause:      cfg.BLE.ScanPause,
	})
	central.SetLogger(log.Component("ble"))
	if enableErr := central.Enable(); enableErr != nil {
		// Keep running: every scan and connect becomes a logged no-op and
		// each hop is skipped as not ready.
		log.Warn("bluetooth unavailable, continuing without radio", "error", enableErr)
	}
	defer func() {
		log.Info("closing bluetooth links")
		central.Close()
	}()

	readiness := device.NewReadiness(registry, loop, central)
	readiness.SetLogger(log.Component("readiness"))

	// Routes
	table, err := route.TableFromConfig(cfg.Routes, cfg.Engine.OffsetStep)
	if err != nil {
		return fmt.Errorf("loading route table: %w", err)
	}

	// Optional infrastructure
	mqttClient := connectMQTT(cfg, log)
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	influxClient := connectInfluxDB(cfg, log)
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	// Event fan-out: WebSocket hub plus MQTT events
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	var publisher control.Publisher
	if mqttClient != nil {
		publisher = mqttClient
	}
	broadcaster := control.NewBroadcaster(hub, publisher, log.Component("events"))

	engine := route.NewEngine(table, registry, readiness, repo, broadcaster, route.EngineConfig{
		HopDelay:     cfg.Engine.HopDelay,
		ReadyTimeout: cfg.Readiness.Timeout,
		PollInterval: cfg.Readiness.PollInterval,
		Color:        payload.Color{R: cfg.Engine.Color.R, G: cfg.Engine.Color.G, B: cfg.Engine.Color.B},
	}, log.Component("route"))
	if influxClient != nil {
		engine.SetMetrics(influxClient)
	}
	log.Info("route engine ready", "routes", table.Names())

	// Trigger signal
	signalOut := startTrigger(cfg, adapter, identity, central.Enabled(), log)
	var notifier control.Notifier
	if signalOut != nil {
		notifier = signalOut.signal
		defer signalOut.stop()
	}

	svc := control.NewService(engine, notifier, cfg.Engine.BlinkDuration)
	svc.SetLogger(log.Component("control"))
	svc.SetJournal(journal)
	defer svc.Wait()

	if mqttClient != nil {
		if subErr := svc.SubscribeCommands(mqttClient, byte(cfg.MQTT.QoS)); subErr != nil { // #nosec G115 -- QoS validated to 0..2
			return fmt.Errorf("subscribing to MQTT commands: %w", subErr)
		}
	}

	// Device status relay
	changes, unsubscribe := registry.Subscribe(changeBuffer)
	defer unsubscribe()
	var sinks []func(device.Change)
	if influxClient != nil {
		sinks = append(sinks, influxClient.WriteDeviceStatus)
	}
	go broadcaster.RelayChanges(ctx, changes, sinks...)

	// HTTP API
	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{"database": db}
		if mqttClient != nil {
			checks["mqtt"] = mqttClient
		}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}

		server, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log.Component("api"),
			Registry:    registry,
			Readiness:   readiness,
			Scanner:     central,
			Routes:      table,
			Control:     svc,
			Repo:        repo,
			Journal:     journal,
			Checks:      checks,
			ExternalHub: hub,
			Version:     version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("HTTP API disabled")
	}

	if cfg.BLE.AutoScan && central.Enabled() {
		if scanErr := central.StartScan(ctx); scanErr != nil {
			log.Warn("auto scan failed to start", "error", scanErr)
		}
	}

	checkCtx, cancelCheck := context.WithTimeout(ctx, startupCheckWindow)
	if checkErr := db.HealthCheck(checkCtx); checkErr != nil {
		cancelCheck()
		return fmt.Errorf("database health check: %w", checkErr)
	}
	cancelCheck()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	central.StopScan()
	return nil
}

// getConfigPath returns ROUTELIGHT_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("ROUTELIGHT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects to the broker when enabled. A broker that cannot be
// reached is logged and the coordinator runs without MQTT.
func connectMQTT(cfg *config.Config, log *logging.Logger) *mqtt.Client {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, continuing without it", "error", err)
		return nil
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client
}

// connectInfluxDB connects telemetry when enabled.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		if errors.Is(err, influxdb.ErrDisabled) {
			log.Info("InfluxDB disabled")
		} else {
			log.Warn("InfluxDB unavailable, continuing without telemetry", "error", err)
		}
		return nil
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})

	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}

// triggerOutput bundles the running trigger signal with its peripheral.
type triggerOutput struct {
	signal *trigger.Signal
	stop   func()
}

// startTrigger advertises the trigger peripheral and wraps it in a Signal.
// It returns nil when the trigger is disabled or the radio is unavailable.
func startTrigger(cfg *config.Config, adapter *bluetooth.Adapter, identity ble.Identity, radioUp bool, log *logging.Logger) *triggerOutput {
	if !cfg.Trigger.Enabled {
		log.Info("trigger signal disabled")
		return nil
	}
	if !radioUp {
		log.Warn("trigger signal unavailable without bluetooth")
		return nil
	}

	peripheral := ble.NewPeripheral(adapter, cfg.Trigger.Name, identity)
	peripheral.SetLogger(log.Component("trigger"))
	if err := peripheral.Start(); err != nil {
		log.Warn("trigger peripheral failed to start", "error", err)
		return nil
	}

	sig := trigger.NewSignal(peripheral, trigger.Config{
		RetryDelay: cfg.Trigger.RetryDelay,
		MaxRetries: cfg.Trigger.MaxRetries,
	})
	sig.SetLogger(log.Component("trigger"))
	log.Info("trigger signal advertising", "name", cfg.Trigger.Name)

	return &triggerOutput{
		signal: sig,
		stop: func() {
			sig.Wait()
			if err := peripheral.Stop(); err != nil {
				log.Warn("error stopping trigger peripheral", "error", err)
			}
		},
	}
}
