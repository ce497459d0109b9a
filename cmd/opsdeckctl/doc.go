// Package main implements opsdeckctl, the CLI for the opsdeck admin panel.
//
// opsdeck is the backend for an internal IT operations panel: managed
// servers, network devices, databases, business sites and applications,
// with SSH terminals, database backups, availability checks and an
// operation trail on top.
//
// # Architecture
//
// The server is organized into several packages:
//
//   - pkg/server: HTTP server and routing
//   - pkg/server/endpoints: REST API endpoint handlers
//   - pkg/server/store: storage interfaces and the GORM implementation
//   - pkg/monitor: site, device and database checkers plus the WS hub
//   - pkg/terminal: SSH dialing, jump chains and browser terminals
//   - pkg/backup: pg_dump backup and restore jobs
//   - pkg/inventory: declarative fleet loading from YAML
//   - pkg/vault: cryptographic operations (encryption at rest)
//   - pkg/model: database models
//   - pkg/db: database connection utilities
//   - pkg/audit: operation trail
//   - pkg/config: configuration management
//
// # Quick Start
//
// The server is run via the opsdeckctl CLI:
//
//	# Generate a data key for encryption
//	export OPSDECK_DATA_KEY="$(opsdeckctl data-key generate)"
//	export OPSDECK_TOKEN_SECRET="$(opsdeckctl data-key generate)"
//
//	# Run database migrations
//	opsdeckctl db migrate
//
//	# Create the first admin
//	opsdeckctl user create admin --role admin
//
//	# Start the server
//	opsdeckctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - OPSDECK_DATA_KEY: Base64-encoded 256-bit key for data encryption
//   - OPSDECK_TOKEN_SECRET: HMAC secret for API token signing
//   - OPSDECK_LOG_LEVEL: Log level (debug, info, warn, error)
//   - OPSDECK_CONFIG_PATH: Path to opsdeck.yml (default: /etc/opsdeck/opsdeck.yml)
//   - PORT: Server port (default: 8080)
package main
