// Package logging sets up the coordinator's structured logger on top of
// log/slog.
//
// Every entry carries service=routelight and the build version. Subsystems
// log through a Component child so a single JSON stream can be filtered per
// subsystem:
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("ble").Warn("connect failed", "device_id", id, "error", err)
//
// The MQTT password and the InfluxDB token must never be logged.
package logging
