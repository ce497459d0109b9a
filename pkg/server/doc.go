// Package server provides the HTTP server for the opsdeck API.
//
// This package implements the core HTTP server that handles all panel REST
// and WebSocket requests. It uses gorilla/mux for routing and gorilla/handlers
// for access logging and CORS.
//
// # Server Setup
//
//	srv := server.NewServer(cfg, cipher, issuer, db, host, port)
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Components
//
// The Server struct holds:
//
//   - Config: panel configuration
//   - Cipher: symmetric cipher for credential encryption
//   - Issuer: session token signing and parsing
//   - Router: HTTP request router
//   - DB: database connection
//   - Hub: monitoring WebSocket hub
//   - Sessions: live SSH terminal session registry
//   - one store per concern, constructed over DB
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//	endpoints.RegisterAll(srv)
//
// This registers all panel endpoints including:
//
//   - /api/auth/login - username/password login
//   - /api/servers, /api/devices, /api/databases, ... - inventory CRUD
//   - /api/servers/{id}/ssh/terminal - WebSocket SSH terminal bridge
//   - /api/agent/heartbeat - agent metric ingest
//   - /ws/monitoring - live monitoring push
//   - /api/status - health check
package server
