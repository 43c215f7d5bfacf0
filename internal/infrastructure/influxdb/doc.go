// Package influxdb records route and node telemetry in InfluxDB v2.
//
// Every hop, every finished execution and every node status change becomes
// a point. Writes are non-blocking and batched; failures arrive on the
// SetOnError callback. Telemetry is optional: Connect returns ErrDisabled
// when influxdb.enabled is false and the coordinator runs without it.
package influxdb
