// Package terminal bridges browser websockets to SSH sessions on managed
// servers. It resolves jump host chains, dials with the server's stored
// credential and relays a small JSON envelope protocol between the two
// ends. A process-wide registry tracks open sessions so they can be
// listed and force-closed.
package terminal
