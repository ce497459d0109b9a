// Package monitor runs the background health machinery of the panel: the
// site availability checker, the device and database reachability probes,
// the agent heartbeat watcher and the websocket hub that pushes state
// changes to connected dashboards.
//
// Checkers read and write through the store interfaces and publish
// transitions as hub events, so the HTTP layer stays request-shaped while
// this package owns everything periodic.
package monitor
