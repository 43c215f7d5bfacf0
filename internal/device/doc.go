// Package device tracks the LED nodes the coordinator can drive.
//
// # Architecture
//
//	BLE callbacks ──Post──▶ Loop ──Apply──▶ Registry ──Subscribe──▶ API / MQTT / metrics
//	                                           ▲
//	route engine ──EnsureReady──▶ Readiness ───┘ (reads status, posts connect events)
//
// Every state change is an Event. Transport callbacks never touch the
// Registry directly; they post to the Loop, which applies events on one
// goroutine in arrival order.
//
// # State Machine
//
//	discovered ──connect──▶ connecting ──connected──▶ connected ──channel ready──▶ ready
//	                             │                        │
//	                             └─connect failed─▶ failed └─negotiation failed─▶ (stays connected)
//
//	any ──disconnected──▶ disconnected (channel cleared, device kept)
//
// Connect may be re-requested from discovered, disconnected, failed and
// connected. A device that stays connected without a channel is the
// observable symptom of a negotiation failure.
//
// # Name Matching
//
// Route hops name their targets. FindByName compares Normalize(name) against
// each device's normalized advertised name, preferring an exact match over a
// substring match.
//
// # Usage
//
//	registry := device.NewRegistry()
//	loop := device.NewLoop(registry, 0)
//	go loop.Run(ctx)
//
//	readiness := device.NewReadiness(registry, loop, transport)
//	if d, ok := registry.FindByName("SENDAI"); ok {
//	    ready := readiness.EnsureReady(ctx, d.ID, 6*time.Second, 250*time.Millisecond)
//	}
package device
