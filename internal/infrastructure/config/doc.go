// Package config loads the coordinator's settings.
//
// Load starts from built-in defaults (including the five-route table used at
// the venue), overlays configs/config.yaml, applies ROUTELIGHT_* environment
// overrides and finally validates the result. Secrets such as the MQTT
// password and the InfluxDB token belong in the environment rather than the
// file:
//
//	ROUTELIGHT_MQTT_PASSWORD=... ROUTELIGHT_INFLUXDB_TOKEN=... routelight
package config
