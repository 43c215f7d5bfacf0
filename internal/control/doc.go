// Package control ties the route engine, the trigger signal and the outside
// world together.
//
// Service is what the HTTP API and MQTT commands call: it fires the trigger
// when asked and then runs a route or a blink. Broadcaster carries engine
// events and node status changes out to WebSocket clients and MQTT.
package control
