package mqtt

import (
	"fmt"
	"strings"
)

// Topic roots.
const (
	TopicPrefix        = "routelight"
	TopicPrefixCore    = "routelight/core"
	TopicPrefixCommand = "routelight/command"
	TopicPrefixSystem  = "routelight/system"
)

// Topics builds the coordinator's topic names.
//
//	routelight/command/route/{name}        run a route      {"trigger":true}
//	routelight/command/blink               blink all nodes  {"duration":5000}
//	routelight/core/device/{id}/status     retained node status
//	routelight/core/event/{type}           execution and trigger events
//	routelight/system/status               retained online/offline (LWT)
//	routelight/trigger                     trigger relayed by synclisten
type Topics struct{}

// RouteCommand is the command topic for one route.
func (Topics) RouteCommand(name string) string {
	return fmt.Sprintf("%s/route/%s", TopicPrefixCommand, name)
}

// AllRouteCommands matches every route command.
func (Topics) AllRouteCommands() string {
	return TopicPrefixCommand + "/route/+"
}

// BlinkCommand is the blink-all command topic.
func (Topics) BlinkCommand() string {
	return TopicPrefixCommand + "/blink"
}

// DeviceStatus is the retained status topic of a node.
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/status", TopicPrefixCore, deviceID)
}

// Event is the topic for events of the given type.
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// SystemStatus is the coordinator's retained liveness topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Trigger is where cmd/synclisten republishes received triggers.
func (Topics) Trigger() string {
	return TopicPrefix + "/trigger"
}

// ParseRouteCommand extracts the route name from a route command topic.
// Route names may contain any character except '/', '+' and '#'.
func ParseRouteCommand(topic string) (string, bool) {
	name, ok := strings.CutPrefix(topic, TopicPrefixCommand+"/route/")
	if !ok || name == "" || strings.ContainsAny(name, "/+#") {
		return "", false
	}
	return name, true
}
