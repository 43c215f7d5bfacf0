// Package route holds the route table and the engine that plays a route
// across the light nodes.
//
// A route is a named, immutable Definition. BuildHops expands it into an
// ordered list of hops; each hop targets a node by display name and carries
// the duration, pixel count, tag and write mode of one chase frame.
//
// The Engine walks the hops in order. For each one it resolves the node in
// the device registry, waits for it to be ready and writes a frame whose
// offset is the running sum of the previous hops' advances. Nodes that are
// missing or never become ready are skipped; the route carries on with the
// next hop and the offset does not move. A write that fails still moves the
// offset, so later nodes stay in phase with the ones that did light.
//
// Executions are recorded through Repository (SQLite in production) and
// announced on the WebSocket hub.
//
// Usage:
//
//	table, err := route.TableFromConfig(cfg.Routes, cfg.Engine.OffsetStep)
//	engine := route.NewEngine(table, registry, readiness, repo, hub, engineCfg, log)
//	exec, err := engine.Execute(ctx, "SENDAI→MUMBAI→LONDON")
package route
