package device

import "fmt"

// EventKind identifies a discovery or connection event.
type EventKind int

// Event kinds. Transport callbacks translate into exactly one of these.
const (
	EventDiscovered EventKind = iota + 1
	EventConnectRequested
	EventConnected
	EventConnectFailed
	EventChannelReady
	EventNegotiationFailed
	EventDisconnected
	EventReset
)

var eventKindNames = map[EventKind]string{
	EventDiscovered:        "discovered",
	EventConnectRequested:  "connect_requested",
	EventConnected:         "connected",
	EventConnectFailed:     "connect_failed",
	EventChannelReady:      "channel_ready",
	EventNegotiationFailed: "negotiation_failed",
	EventDisconnected:      "disconnected",
	EventReset:             "reset",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a single asynchronous input to the registry.
type Event struct {
	Kind    EventKind
	ID      string
	Name    string
	RSSI    int16
	Channel Channel
	Err     error
}

// Sink accepts events. Loop implements it asynchronously; Registry
// implements it by applying the event immediately.
type Sink interface {
	Post(ev Event)
}

// Discovered reports an advertisement from id.
func Discovered(id, name string, rssi int16) Event {
	return Event{Kind: EventDiscovered, ID: id, Name: name, RSSI: rssi}
}

// ConnectRequested reports that a connect has been initiated for id.
func ConnectRequested(id string) Event {
	return Event{Kind: EventConnectRequested, ID: id}
}

// Connected reports a transport-level connection to id.
func Connected(id string) Event {
	return Event{Kind: EventConnected, ID: id}
}

// ConnectFailed reports that the transport could not connect to id.
func ConnectFailed(id string, err error) Event {
	return Event{Kind: EventConnectFailed, ID: id, Err: err}
}

// ChannelReady reports a negotiated command channel on id.
func ChannelReady(id string, ch Channel) Event {
	return Event{Kind: EventChannelReady, ID: id, Channel: ch}
}

// NegotiationFailed reports that id is connected but has no usable channel.
func NegotiationFailed(id string, err error) Event {
	return Event{Kind: EventNegotiationFailed, ID: id, Err: err}
}

// Disconnected reports that the link to id dropped.
func Disconnected(id string, err error) Event {
	return Event{Kind: EventDisconnected, ID: id, Err: err}
}

// Reset forgets every known device.
func Reset() Event {
	return Event{Kind: EventReset}
}
