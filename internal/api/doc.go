// Package api implements the HTTP REST API and WebSocket event stream of the
// route coordinator.
//
// This package provides:
//   - Device endpoints: list, get, connect
//   - Scan control: start and stop the discovery cycle
//   - Route endpoints: list, inspect, execute, execution history
//   - Blink-all and stand-alone trigger endpoints
//   - A WebSocket hub broadcasting route.executed, route.blink_all and
//     device.status events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// All endpoints live under /api/v1. Route names are percent-encoded in paths.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Graceful Degradation
//
// Without a Bluetooth adapter the scan and connect endpoints answer 503;
// without a repository the execution history endpoints do. Everything else
// keeps working.
package api
