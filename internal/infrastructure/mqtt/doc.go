// Package mqtt connects the coordinator to an MQTT broker using
// eclipse/paho.mqtt.golang.
//
// The broker is optional. When enabled it carries three things: route and
// blink commands from other systems, retained node status, and execution
// and trigger events. Topic names are built with Topics.
//
// The client sets a Last Will on routelight/system/status so subscribers see
// "offline" if the coordinator dies, restores subscriptions after
// reconnects, and recovers from panics in message handlers.
package mqtt
